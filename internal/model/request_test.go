package model

import (
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/internal/errs"
)

func TestParseRequestRoundTrip(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n\r\nfoo=bar&bar=baz"
	r, err := ParseRequest(raw)
	require.NoError(t, err)
	assert.True(t, r.IsGet())
	assert.Equal(t, "1.1", r.Version)
	assert.Equal(t, "foo=bar&bar=baz", string(r.Content()))
	assert.Equal(t, raw, r.String())
}

func TestParseRequestLine(t *testing.T) {
	r, err := ParseRequest("post /search?q=go+lang&page=2 HTTP/1.0\r\nHost: example.com\r\nX-Requested-With: XMLHttpRequest\r\n\r\n")
	require.NoError(t, err)
	assert.True(t, r.IsPost())
	assert.Equal(t, "1.0", r.Version)
	assert.Equal(t, "/search", r.URI.Path)
	v, ok := r.Query.Get("q")
	assert.True(t, ok)
	assert.Equal(t, "go lang", v)
	assert.Equal(t, []string{"q", "page"}, r.Query.Keys())
	assert.True(t, r.IsXMLHttpRequest())
	assert.False(t, r.IsFlashRequest())

	// version is optional
	r, err = ParseRequest("DELETE /thing\r\n\r\n")
	require.NoError(t, err)
	assert.True(t, r.IsDelete())
	assert.Equal(t, "1.1", r.Version)
}

func TestParseRequestInvalid(t *testing.T) {
	_, err := ParseRequest("G(ET / HTTP/1.1\r\n\r\n")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = ParseRequest("\r\n\r\n")
	assert.True(t, errors.Is(err, errs.ErrRuntime))
}

func TestSetMethod(t *testing.T) {
	r, err := NewRequest("", "")
	require.NoError(t, err)
	assert.True(t, r.IsGet())
	require.NoError(t, r.SetMethod("propfind"))
	assert.Equal(t, "PROPFIND", r.Method)
	err = r.SetMethod("bad method")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP method passed")
	assert.Equal(t, "PROPFIND", r.Method)
}

func TestNormalize(t *testing.T) {
	r := &Request{}
	require.NoError(t, r.Normalize())
	assert.Equal(t, "GET / HTTP/1.1", r.RequestLine())
	r.Version = "2"
	assert.Error(t, r.Normalize())
}

func TestParamsEncode(t *testing.T) {
	p := NewParams()
	p.Set("name", "a b")
	p.Set("list", []string{"x", "y"})
	p.Set("map", map[string]string{"k2": "2", "k1": "1"})
	p.Set("flag", true)
	p.Set("gone", "x")
	p.Set("gone", nil)

	assert.Equal(t, "name=a+b;list%5B0%5D=x;list%5B1%5D=y;map%5Bk1%5D=1;map%5Bk2%5D=2;flag=1", p.Encode(";", false))
	assert.Equal(t, "name=a%20b", strings.SplitN(p.Encode("&", true), "&", 2)[0])

	c := p.Clone()
	c.Del("name")
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 3, c.Len())
}

func TestEncodeURLEncoded(t *testing.T) {
	r, _ := NewRequest("POST", "http://example.com/")
	r.Post.Set("foo", "bar")
	r.Post.Set("baz", "1 2")
	p, err := r.Encode("", "")
	require.NoError(t, err)
	assert.Equal(t, EncURLEncoded, p.ContentType)
	assert.EqualValues(t, 15, p.ContentLength)
	body, _ := p.GetBody()
	b, _ := io.ReadAll(body)
	assert.Equal(t, "foo=bar&baz=1+2", string(b))

	// replays
	body, _ = p.GetBody()
	b, _ = io.ReadAll(body)
	assert.Equal(t, "foo=bar&baz=1+2", string(b))
}

func TestEncodeMultipart(t *testing.T) {
	r, _ := NewRequest("POST", "http://example.com/")
	r.Post.Set("tags", []string{"a", "b"})
	r.Files = append(r.Files, File{FormName: "upload", Filename: "x.txt", ContentType: "text/plain", Data: []byte("content")})
	p, err := r.Encode("", "BOUNDARY")
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=BOUNDARY", p.ContentType)
	body, _ := p.GetBody()
	b, _ := io.ReadAll(body)
	s := string(b)
	assert.Contains(t, s, "--BOUNDARY\r\nContent-Disposition: form-data; name=\"tags[]\"\r\n\r\na\r\n")
	assert.Contains(t, s, "Content-Disposition: form-data; name=\"upload\"; filename=\"x.txt\"\r\nContent-Type: text/plain\r\n\r\ncontent\r\n")
	assert.True(t, strings.HasSuffix(s, "--BOUNDARY--\r\n"))
	assert.EqualValues(t, len(b), p.ContentLength)
}

func TestEncodeMultipartQuotes(t *testing.T) {
	r, _ := NewRequest("POST", "http://example.com/")
	r.Files = append(r.Files, File{FormName: "up", Filename: `a "b"\c.txt`, Data: []byte("x")})
	p, err := r.Encode("", "BOUNDARY")
	require.NoError(t, err)
	body, _ := p.GetBody()
	b, _ := io.ReadAll(body)
	assert.Contains(t, string(b), `Content-Disposition: form-data; name="up"; filename="a \"b\"\\c.txt"`)
	assert.Contains(t, string(b), "Content-Type: application/octet-stream\r\n")
}

func TestContentWith(t *testing.T) {
	r, _ := NewRequest("POST", "http://example.com/")
	r.Post.Set("a", "1 2")
	r.Post.Set("b", "3")
	assert.Equal(t, "a=1+2&b=3", string(r.Content()))
	form := FormOptions{Separator: ";", RFC3986: true}
	assert.Equal(t, "a=1%202;b=3", string(r.ContentWith(form)))
	assert.True(t, strings.HasSuffix(r.StringWith(form), "\r\n\r\na=1%202;b=3"))

	p, err := r.EncodeWith("", "", form)
	require.NoError(t, err)
	body, _ := p.GetBody()
	sent, _ := io.ReadAll(body)
	assert.Equal(t, r.ContentWith(form), sent)
}

func TestReplayable(t *testing.T) {
	assert.True(t, Replayable("x"))
	assert.True(t, Replayable([]byte("x")))
	assert.True(t, Replayable(strings.NewReader("x")))
	assert.False(t, Replayable(io.NopCloser(strings.NewReader("x"))))
}

func TestEncodeRawBody(t *testing.T) {
	r, _ := NewRequest("PUT", "/")
	r.Post.Set("ignored", "1")
	r.Body = "{\"a\":1}"
	p, err := r.Encode("application/json", "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", p.ContentType)
	assert.EqualValues(t, 7, p.ContentLength)

	r.Body = io.NopCloser(strings.NewReader("once"))
	p, err = r.Encode("", "")
	require.NoError(t, err)
	assert.EqualValues(t, -1, p.ContentLength)
	_, err = p.GetBody()
	require.NoError(t, err)
	_, err = p.GetBody()
	assert.ErrorIs(t, err, ErrBodyNotReplayable)
}

func TestEncodeUnknownType(t *testing.T) {
	r, _ := NewRequest("POST", "/")
	r.Post.Set("a", "1")
	_, err := r.Encode("text/xml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot handle content type 'text/xml' automatically")

	r.Post.Reset()
	p, err := r.Encode("text/xml", "")
	require.NoError(t, err)
	assert.Nil(t, p)
}
