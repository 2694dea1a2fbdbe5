package model

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
)

const (
	EncURLEncoded = "application/x-www-form-urlencoded"
	EncFormData   = "multipart/form-data"
)

// ErrBodyNotReplayable is returned when a streamed body would have to be
// sent a second time, e.g. on a method preserving redirect.
var ErrBodyNotReplayable = errors.New("request body is a stream and cannot be sent twice")

// Payload is an encoded request body. GetBody yields a fresh reader for
// every transmission, so the same payload can follow redirects.
type Payload struct {
	ContentType   string
	ContentLength int64 // -1 when unknown
	GetBody       func() (io.Reader, error)
}

// NewBoundary returns a random multipart boundary.
func NewBoundary() string {
	return "---GOHTTPCLIENT-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PreparedRequest is one request exactly as it is handed to an adapter:
// the final target, the merged header block and the encoded body.
type PreparedRequest struct {
	Method  string
	URI     *url.URL
	Version string
	Headers *header.Headers
	Payload *Payload
}

// Body returns a fresh reader over the payload, nil when there's none.
func (pr *PreparedRequest) Body() (io.Reader, error) {
	if pr.Payload == nil || pr.Payload.GetBody == nil {
		return nil, nil
	}
	return pr.Payload.GetBody()
}

// FormOptions tunes urlencoded bodies.
type FormOptions struct {
	Separator string // "&" when empty
	RFC3986   bool   // encode spaces as %20 instead of '+'
}

// Encode prepares the body of r. a raw Body is sent as is with encType as
// its content type; otherwise Post and Files are encoded according to
// encType, defaulting to urlencoded (multipart when files are present).
// it returns nil when there's nothing to send.
func (r *Request) Encode(encType, boundary string) (*Payload, error) {
	return r.EncodeWith(encType, boundary, FormOptions{})
}

// EncodeWith is Encode with control over the urlencoded form.
func (r *Request) EncodeWith(encType, boundary string, form FormOptions) (*Payload, error) {
	if r.Body != nil {
		p, err := rawPayload(r.Body)
		if err != nil {
			return nil, err
		}
		p.ContentType = encType
		return p, nil
	}
	hasPost := r.Post != nil && r.Post.Len() > 0
	if !hasPost && len(r.Files) == 0 {
		return nil, nil
	}
	if len(r.Files) > 0 {
		if mt, _, _ := mime.ParseMediaType(encType); mt != EncFormData {
			encType = EncFormData
		}
	}
	if encType == "" {
		encType = EncURLEncoded
	}
	mt, params, err := mime.ParseMediaType(encType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(encType))
	}
	switch mt {
	case EncURLEncoded:
		body := ""
		if hasPost {
			body = r.Post.Encode(form.Separator, form.RFC3986)
		}
		return bytesPayload(EncURLEncoded, []byte(body)), nil
	case EncFormData:
		if b := params["boundary"]; b != "" {
			boundary = b
		}
		if boundary == "" {
			boundary = NewBoundary()
		}
		data, err := r.encodeFormData(boundary)
		if err != nil {
			return nil, err
		}
		return bytesPayload(EncFormData+"; boundary="+boundary, data), nil
	default:
		return nil, errs.Configf("cannot handle content type '%s' automatically", encType)
	}
}

// same escaping as multipart.Writer.CreateFormFile
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (r *Request) encodeFormData(boundary string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, errs.Configf("invalid multipart boundary %q: %v", boundary, err)
	}
	if r.Post != nil {
		for _, p := range r.Post.Pairs(false) {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range r.Files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.FormName), quoteEscaper.Replace(f.Filename)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bytesPayload(ct string, b []byte) *Payload {
	return &Payload{
		ContentType:   ct,
		ContentLength: int64(len(b)),
		GetBody:       func() (io.Reader, error) { return bytes.NewReader(b), nil },
	}
}

// Replayable reports whether a raw body can be sent more than once.
func Replayable(body interface{}) bool {
	switch body.(type) {
	case nil, string, []byte, *bytes.Buffer, *bytes.Reader, *strings.Reader:
		return true
	}
	return false
}

// rawPayload turns the supported body types into a payload. in-memory
// bodies replay; plain readers may be read once.
func rawPayload(body interface{}) (*Payload, error) {
	p := &Payload{ContentLength: -1}
	switch b := body.(type) {
	case string:
		p.ContentLength = int64(len(b))
		p.GetBody = func() (io.Reader, error) {
			return strings.NewReader(b), nil
		}
	case []byte:
		p.ContentLength = int64(len(b))
		p.GetBody = func() (io.Reader, error) {
			return bytes.NewReader(b), nil
		}
	case *bytes.Buffer: // below is taken from http.NewRequest
		p.ContentLength = int64(b.Len())
		buf := b.Bytes()
		p.GetBody = func() (io.Reader, error) {
			return bytes.NewReader(buf), nil
		}
	case *bytes.Reader:
		p.ContentLength = int64(b.Len())
		snapshot := *b
		p.GetBody = func() (io.Reader, error) {
			r := snapshot
			return &r, nil
		}
	case *strings.Reader:
		p.ContentLength = int64(b.Len())
		snapshot := *b
		p.GetBody = func() (io.Reader, error) {
			r := snapshot
			return &r, nil
		}
	case io.Reader:
		if sizer, ok := b.(interface{ Size() int64 }); ok {
			p.ContentLength = sizer.Size()
		}
		once := uint32(0)
		p.GetBody = func() (io.Reader, error) {
			if atomic.CompareAndSwapUint32(&once, 0, 1) {
				return b, nil
			}
			return nil, ErrBodyNotReplayable
		}
	default:
		return nil, errs.Configf("unsupported body type: %T", body)
	}
	return p, nil
}
