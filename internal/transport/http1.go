package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/transport/chunked"
)

// maxHeadBytes bounds the status line plus header block of a response.
const maxHeadBytes = 1 << 20

type HTTP1 struct{}

var _ Transport = HTTP1{}

// WriteRequest writes head and body to w and returns what was written.
// the body is chunk encoded when the head announces chunked transfer.
func (t HTTP1) WriteRequest(w io.Writer, req *RequestHead, body io.Reader) (string, error) {
	raw := &bytes.Buffer{}
	bw := bufio.NewWriter(io.MultiWriter(w, raw)) // default bufsize is 4096

	if err := t.writeHeader(bw, req); err != nil {
		return raw.String(), err
	}
	if body != nil {
		var dst io.Writer = bw
		var cw *chunked.Writer
		if hasToken(req.Headers.Value("Transfer-Encoding"), "chunked") {
			cw = chunked.NewChunkedWriter(bw)
			dst = cw
		}
		if _, err := io.Copy(dst, body); err != nil {
			return raw.String(), err
		}
		if cw != nil {
			if err := cw.Close(); err != nil {
				return raw.String(), err
			}
		}
	}
	err := bw.Flush()
	return raw.String(), err
}

// writeHeader writes the request line and header part of an http 1.x request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w *bufio.Writer, req *RequestHead) error {
	version := req.Version
	if version == "" {
		version = "1.1"
	}
	w.WriteString(req.Method)
	w.WriteByte(' ')
	w.WriteString(req.Target)
	w.WriteString(" HTTP/")
	w.WriteString(version)
	w.WriteString("\r\n")
	_, err := w.WriteString(req.Headers.String())
	return err
}

// ReadResponse reads one response, skipping interim 100 Continue ones.
// when stream is set, the decoded body goes there instead of Message.Body.
func (t HTTP1) ReadResponse(r *bufio.Reader, method string, stream io.Writer) (*Message, error) {
	for {
		head, code, h, err := t.readHead(r)
		if err != nil {
			return nil, err
		}
		if code == 100 {
			continue
		}
		msg := &Message{Head: head, Close: hasToken(h.Value("Connection"), "close")}
		if bodyless(method, code) {
			return msg, nil
		}
		return msg, t.readTransfer(r, h, msg, stream)
	}
}

func (t HTTP1) readHead(r *bufio.Reader) (string, int, *header.Headers, error) {
	var sb strings.Builder
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", 0, nil, errs.Parse("response", err)
	}
	sb.WriteString(line)
	status := strings.TrimRight(line, "\r\n")
	proto, rest, ok := strings.Cut(status, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return "", 0, nil, errs.Parsef("response", "malformed HTTP status line %q", status)
	}
	statusCode, _, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if len(statusCode) != 3 {
		return "", 0, nil, errs.Parsef("response", "malformed HTTP status code %q", statusCode)
	}
	code, err := strconv.Atoi(statusCode)
	if err != nil || code < 100 {
		return "", 0, nil, errs.Parsef("response", "malformed HTTP status code %q", statusCode)
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", 0, nil, errs.Parse("response", err)
		}
		sb.WriteString(line)
		if sb.Len() > maxHeadBytes {
			return "", 0, nil, errs.Parsef("response", "header block exceeds %d bytes", maxHeadBytes)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	head := sb.String()
	_, block, _ := strings.Cut(head, "\n")
	h, err := header.ParseHeaders(block)
	if err != nil {
		return "", 0, nil, err
	}
	return head, code, h, nil
}

func (t HTTP1) readTransfer(r *bufio.Reader, h *header.Headers, msg *Message, stream io.Writer) error {
	if hasToken(h.Value("Transfer-Encoding"), "chunked") {
		cr := chunked.NewChunkedReader(r)
		if stream != nil {
			n, err := io.Copy(stream, cr)
			msg.Streamed = n
			return wrapBodyErr(err)
		}
		data, err := io.ReadAll(cr)
		if err != nil {
			return wrapBodyErr(err)
		}
		buf := &bytes.Buffer{}
		cw := chunked.NewChunkedWriter(buf)
		cw.Write(data)
		cw.CloseWithTrailer(http.Header(cr.Trailer()))
		msg.Body = buf.Bytes()
		return nil
	}

	cl := int64(-1)
	if fields := h.Get("Content-Length"); len(fields) > 0 {
		// Hardening against HTTP request smuggling, taken from standard library
		// Per RFC 7230 Section 3.3.2
		first := strings.TrimSpace(fields[0].FieldValue())
		for _, f := range fields[1:] {
			if first != strings.TrimSpace(f.FieldValue()) {
				return errs.Parsef("response", "message cannot contain multiple Content-Length headers; got %q", fieldValues(fields))
			}
		}
		n, err := strconv.ParseUint(first, 10, 63)
		if err != nil {
			return errs.Parsef("response", "bad Content-Length %q", first)
		}
		cl = int64(n)
	}

	var body io.Reader = r
	if cl >= 0 {
		body = io.LimitReader(r, cl)
	} else {
		msg.Close = true
	}
	if stream != nil {
		n, err := io.Copy(stream, body)
		msg.Streamed = n
		if err == nil && cl >= 0 && n < cl {
			err = io.ErrUnexpectedEOF
		}
		return wrapBodyErr(err)
	}
	data, err := io.ReadAll(body)
	if err == nil && cl >= 0 && int64(len(data)) < cl {
		err = io.ErrUnexpectedEOF
	}
	msg.Body = data
	return wrapBodyErr(err)
}

func fieldValues(fields []header.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.FieldValue()
	}
	return out
}

func wrapBodyErr(err error) error {
	if err == nil {
		return nil
	}
	return errs.Parse("response body", fmt.Errorf("reading body: %w", err))
}
