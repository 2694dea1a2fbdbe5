package model

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
)

const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodPatch   = "PATCH"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
	MethodConnect = "CONNECT"
)

var methodRe = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

// ValidMethod reports whether m is an RFC 7230 token.
func ValidMethod(m string) bool { return methodRe.MatchString(m) }

// File is one multipart upload.
type File struct {
	FormName    string
	Filename    string
	ContentType string
	Data        []byte
}

// Request is an outgoing request. Body, when set, takes precedence over
// Post and Files; it may be a string, []byte, *bytes.Buffer, *bytes.Reader,
// *strings.Reader or any io.Reader.
type Request struct {
	Method  string
	URI     *url.URL
	Version string
	Headers *header.Headers
	Query   *Params
	Post    *Params
	Files   []File
	Body    interface{}
}

// NewRequest returns a GET request for "/" when method and uri are empty.
func NewRequest(method, uri string) (*Request, error) {
	r := &Request{
		Method:  MethodGet,
		URI:     &url.URL{Path: "/"},
		Version: "1.1",
		Headers: header.NewHeaders(),
		Query:   NewParams(),
		Post:    NewParams(),
	}
	if method != "" {
		if err := r.SetMethod(method); err != nil {
			return nil, err
		}
	}
	if uri != "" {
		if err := r.SetURI(uri); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetMethod upper-cases and validates m.
func (r *Request) SetMethod(m string) error {
	m = strings.ToUpper(m)
	if !ValidMethod(m) {
		return errs.Configf("invalid HTTP method passed: %q", m)
	}
	r.Method = m
	return nil
}

func (r *Request) SetURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errs.Configf("invalid URI passed: %v", err)
	}
	r.URI = u
	return nil
}

// Normalize fills zero fields so hand-built requests behave like ones from
// NewRequest.
func (r *Request) Normalize() error {
	if r.Method == "" {
		r.Method = MethodGet
	}
	if err := r.SetMethod(r.Method); err != nil {
		return err
	}
	if r.URI == nil {
		r.URI = &url.URL{Path: "/"}
	}
	if r.Version == "" {
		r.Version = "1.1"
	}
	if r.Version != "1.0" && r.Version != "1.1" {
		return errs.Configf("unsupported HTTP version %q", r.Version)
	}
	if r.Headers == nil {
		r.Headers = header.NewHeaders()
	}
	if r.Query == nil {
		r.Query = NewParams()
	}
	if r.Post == nil {
		r.Post = NewParams()
	}
	return nil
}

func (r *Request) IsGet() bool     { return r.Method == MethodGet }
func (r *Request) IsPost() bool    { return r.Method == MethodPost }
func (r *Request) IsPut() bool     { return r.Method == MethodPut }
func (r *Request) IsDelete() bool  { return r.Method == MethodDelete }
func (r *Request) IsPatch() bool   { return r.Method == MethodPatch }
func (r *Request) IsHead() bool    { return r.Method == MethodHead }
func (r *Request) IsOptions() bool { return r.Method == MethodOptions }
func (r *Request) IsTrace() bool   { return r.Method == MethodTrace }

func (r *Request) IsXMLHttpRequest() bool {
	return r.Headers != nil && r.Headers.Value("X-Requested-With") == "XMLHttpRequest"
}

func (r *Request) IsFlashRequest() bool {
	return r.Headers != nil && strings.Contains(strings.ToLower(r.Headers.Value("User-Agent")), " flash")
}

var requestLineRe = regexp.MustCompile(`^(\S+)\s(\S*)(?:\sHTTP/(\d+(?:\.\d+)?))?$`)

// ParseRequest parses a raw request. the HTTP version of the request line
// is optional and defaults to 1.1.
func ParseRequest(raw string, opts ...header.Option) (*Request, error) {
	head, body := splitMessage(raw)
	line, rest, _ := strings.Cut(head, "\n")
	line = strings.TrimSuffix(line, "\r")
	m := requestLineRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errs.Parsef("request line", "a valid request line was not found in %q", line)
	}
	r, err := NewRequest("", "")
	if err != nil {
		return nil, err
	}
	if err := r.SetMethod(m[1]); err != nil {
		return nil, errs.Parse("request line", err)
	}
	if err := r.SetURI(m[2]); err != nil {
		return nil, errs.Parse("request line", err)
	}
	if m[3] != "" {
		r.Version = m[3]
	}
	if r.Headers, err = header.ParseHeaders(rest, opts...); err != nil {
		return nil, err
	}
	r.Query = ParseParams(r.URI.RawQuery)
	if body != "" {
		r.Body = []byte(body)
	}
	return r, nil
}

// splitMessage cuts a raw message at the blank line ending the head.
func splitMessage(raw string) (head, body string) {
	if i := strings.Index(raw, "\r\n\r\n"); i >= 0 {
		if j := strings.Index(raw, "\n\n"); j < 0 || j > i {
			return raw[:i+2], raw[i+4:]
		}
	}
	if i := strings.Index(raw, "\n\n"); i >= 0 {
		return raw[:i+1], raw[i+2:]
	}
	return raw, ""
}

// Content returns the raw body when it lives in memory, or the Post
// parameters urlencoded with the default form options.
func (r *Request) Content() []byte { return r.ContentWith(FormOptions{}) }

// ContentWith is Content with the Post parameters encoded the way
// EncodeWith sends them.
func (r *Request) ContentWith(form FormOptions) []byte {
	switch b := r.Body.(type) {
	case string:
		return []byte(b)
	case []byte:
		return b
	case *bytes.Buffer:
		return b.Bytes()
	case *bytes.Reader:
		snapshot := *b
		d, _ := io.ReadAll(&snapshot)
		return d
	case *strings.Reader:
		snapshot := *b
		d, _ := io.ReadAll(&snapshot)
		return d
	}
	if r.Body == nil && r.Post != nil && r.Post.Len() > 0 {
		return []byte(r.Post.Encode(form.Separator, form.RFC3986))
	}
	return nil
}

func (r *Request) RequestLine() string {
	target := "/"
	if r.URI != nil {
		target = r.URI.String()
	}
	v := r.Version
	if v == "" {
		v = "1.1"
	}
	return r.Method + " " + target + " HTTP/" + v
}

// String renders the request: request line, header block, body.
func (r *Request) String() string { return r.StringWith(FormOptions{}) }

// StringWith renders the request with ContentWith(form) as its body.
func (r *Request) StringWith(form FormOptions) string {
	headers := "\r\n"
	if r.Headers != nil {
		headers = r.Headers.String()
	}
	return r.RequestLine() + "\r\n" + headers + string(r.ContentWith(form))
}
