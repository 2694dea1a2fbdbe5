package model

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/transport/chunked"
)

// Response is a parsed response. Content holds the body exactly as
// received; Body decodes it. when the client streams to a file, Content is
// empty and Stream holds the body instead.
type Response struct {
	Version      string
	StatusCode   int
	ReasonPhrase string
	Headers      *header.Headers
	Content      []byte

	Stream *os.File
}

func NewResponse(code int) *Response {
	return &Response{Version: "1.1", StatusCode: code, ReasonPhrase: http.StatusText(code), Headers: header.NewHeaders()}
}

var statusLineRe = regexp.MustCompile(`^HTTP/(\d+(?:\.\d+)?) (\d{3})(?: (.*))?$`)

// ParseResponse parses a raw response. interim 100 Continue responses in
// front of the final one are skipped.
func ParseResponse(raw string, opts ...header.Option) (*Response, error) {
	for {
		head, body := splitMessage(raw)
		line, rest, _ := strings.Cut(head, "\n")
		line = strings.TrimSuffix(line, "\r")
		m := statusLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, errs.Parsef("status line", "a valid response status line was not found in %q", line)
		}
		code, _ := strconv.Atoi(m[2])
		if code < 100 || code > 599 {
			return nil, errs.Parsef("status line", "invalid status code %d", code)
		}
		if code == http.StatusContinue && strings.HasPrefix(body, "HTTP/") {
			raw = body
			continue
		}
		h, err := header.ParseHeaders(rest, opts...)
		if err != nil {
			return nil, err
		}
		reason := strings.TrimSpace(m[3])
		if reason == "" {
			reason = http.StatusText(code)
		}
		r := &Response{Version: m[1], StatusCode: code, ReasonPhrase: reason, Headers: h}
		if body != "" {
			r.Content = []byte(body)
		}
		return r, nil
	}
}

func (r *Response) IsInformational() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) IsSuccess() bool       { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirect() bool      { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool   { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool   { return r.StatusCode >= 500 && r.StatusCode < 600 }
func (r *Response) IsOK() bool            { return r.StatusCode == http.StatusOK }
func (r *Response) IsForbidden() bool     { return r.StatusCode == http.StatusForbidden }
func (r *Response) IsNotFound() bool      { return r.StatusCode == http.StatusNotFound }
func (r *Response) IsGone() bool          { return r.StatusCode == http.StatusGone }

func (r *Response) StatusLine() string {
	return "HTTP/" + r.Version + " " + strconv.Itoa(r.StatusCode) + " " + r.ReasonPhrase
}

func (r *Response) String() string {
	return r.StatusLine() + "\r\n" + r.Headers.String() + string(r.Content)
}

// Body returns the body with transfer and content codings removed.
func (r *Response) Body() ([]byte, error) {
	var raw []byte
	if r.Stream != nil {
		if _, err := r.Stream.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(r.Stream)
		if err != nil {
			return nil, err
		}
		raw = b
	} else {
		raw = r.Content
		if strings.Contains(strings.ToLower(r.Headers.Value("Transfer-Encoding")), "chunked") {
			b, err := io.ReadAll(chunked.NewChunkedReader(bytes.NewReader(raw)))
			if err != nil {
				return nil, errs.Parse("chunked body", err)
			}
			raw = b
		}
	}
	return decodeContent(strings.ToLower(strings.TrimSpace(r.Headers.Value("Content-Encoding"))), raw)
}

func decodeContent(coding string, raw []byte) ([]byte, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.Parse("gzip body", err)
		}
		defer zr.Close()
		b, err := io.ReadAll(zr)
		if err != nil {
			return nil, errs.Parse("gzip body", err)
		}
		return b, nil
	case "deflate":
		// servers disagree on whether deflate means zlib or raw deflate
		var rd io.ReadCloser
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			rd = zr
		} else {
			rd = flate.NewReader(bytes.NewReader(raw))
		}
		defer rd.Close()
		b, err := io.ReadAll(rd)
		if err != nil {
			return nil, errs.Parse("deflate body", err)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// Text returns the body converted to UTF-8 according to the charset of the
// Content-Type field.
func (r *Response) Text() (string, error) {
	b, err := r.Body()
	if err != nil {
		return "", err
	}
	ct, ok := r.Headers.First("Content-Type").(*header.ContentType)
	if !ok || ct.Charset() == "" {
		return string(b), nil
	}
	enc, err := htmlindex.Get(ct.Charset())
	if err != nil {
		return string(b), nil
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return string(b), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", errs.Parse("body charset", err)
	}
	return string(out), nil
}
