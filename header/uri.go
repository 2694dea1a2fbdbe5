package header

import (
	"net/url"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// URIHeader is the shape of Location, Content-Location and Referer.
type URIHeader struct {
	name string
	uri  *url.URL
}

func newURIHeader(name, raw string) (*URIHeader, error) {
	if err := AssertValid(raw); err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.Configf("invalid URI in %s header: %v", name, err)
	}
	h := &URIHeader{name: name}
	h.SetURI(u)
	return h, nil
}

func NewLocation(uri string) (*URIHeader, error)        { return newURIHeader("Location", uri) }
func NewContentLocation(uri string) (*URIHeader, error) { return newURIHeader("Content-Location", uri) }
func NewReferer(uri string) (*URIHeader, error)         { return newURIHeader("Referer", uri) }

func uriParser(name string) func(string) (*URIHeader, error) {
	return func(line string) (*URIHeader, error) {
		value, err := splitNamed(name, line)
		if err != nil {
			return nil, err
		}
		return newURIHeader(name, value)
	}
}

func ParseLocation(line string) (*URIHeader, error) { return uriParser("Location")(line) }
func ParseReferer(line string) (*URIHeader, error)  { return uriParser("Referer")(line) }

// SetURI replaces the value. Referer never carries a fragment.
func (h *URIHeader) SetURI(u *url.URL) {
	c := *u
	if h.name == "Referer" {
		c.Fragment, c.RawFragment = "", ""
	}
	h.uri = &c
}

func (h *URIHeader) URI() *url.URL {
	c := *h.uri
	return &c
}

func (h *URIHeader) IsAbsolute() bool { return h.uri.IsAbs() }
func (h *URIHeader) IsRelative() bool { return !h.uri.IsAbs() }

func (h *URIHeader) FieldName() string  { return h.name }
func (h *URIHeader) FieldValue() string { return h.uri.String() }
func (h *URIHeader) String() string     { return h.name + ": " + h.FieldValue() }
