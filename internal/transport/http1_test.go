package transport

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/header"
)

func read(t *testing.T, raw, method string) *Message {
	t.Helper()
	msg, err := HTTP1{}.ReadResponse(bufio.NewReader(strings.NewReader(raw)), method, nil)
	require.NoError(t, err)
	return msg
}

func TestWriteRequest(t *testing.T) {
	h := header.NewHeaders()
	require.NoError(t, h.AddPair("Host", "example.com"))
	require.NoError(t, h.AddPair("Content-Length", "7"))
	out := &bytes.Buffer{}
	raw, err := HTTP1{}.WriteRequest(out, &RequestHead{Method: "POST", Target: "/x?a=1", Headers: h}, strings.NewReader("foo=bar"))
	require.NoError(t, err)
	want := "POST /x?a=1 HTTP/1.1\r\nHost: example.com\r\nContent-Length: 7\r\n\r\nfoo=bar"
	assert.Equal(t, want, out.String())
	assert.Equal(t, want, raw)
}

func TestWriteRequestChunked(t *testing.T) {
	h := header.NewHeaders()
	require.NoError(t, h.AddPair("Transfer-Encoding", "chunked"))
	out := &bytes.Buffer{}
	_, err := HTTP1{}.WriteRequest(out, &RequestHead{Method: "PUT", Target: "/", Version: "1.0", Headers: h}, strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "PUT / HTTP/1.0\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\n\r\n", out.String())
}

func TestReadContentLength(t *testing.T) {
	msg := read(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhelloEXTRA", "GET")
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n", msg.Head)
	assert.Equal(t, "hello", string(msg.Body))
	assert.False(t, msg.Close)
}

func TestReadSkipsContinue(t *testing.T) {
	msg := read(t, "HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 201 Created\r\nContent-Length: 2\r\n\r\nok", "POST")
	assert.True(t, strings.HasPrefix(msg.Head, "HTTP/1.1 201 Created"))
	assert.Equal(t, "ok", string(msg.Body))
}

func TestReadBodyless(t *testing.T) {
	msg := read(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n", "HEAD")
	assert.Empty(t, msg.Body)
	msg = read(t, "HTTP/1.1 304 Not Modified\r\n\r\n", "GET")
	assert.Empty(t, msg.Body)
}

func TestReadChunkedReframes(t *testing.T) {
	msg := read(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nab\r\n3;x=y\r\ncde\r\n0\r\n\r\n", "GET")
	assert.Equal(t, "5\r\nabcde\r\n0\r\n\r\n", string(msg.Body))

	msg = read(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nab\r\n0\r\nX-Sum: 7\r\n\r\n", "GET")
	assert.Equal(t, "2\r\nab\r\n0\r\nX-Sum: 7\r\n\r\n", string(msg.Body))
}

func TestReadStreamChunked(t *testing.T) {
	out := &bytes.Buffer{}
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\n\r\n"
	msg, err := HTTP1{}.ReadResponse(bufio.NewReader(strings.NewReader(raw)), "GET", out)
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
	assert.EqualValues(t, 3, msg.Streamed)
	assert.Equal(t, "abc", out.String())
}

func TestReadUntilClose(t *testing.T) {
	msg := read(t, "HTTP/1.0 200 OK\r\n\r\nall of it", "GET")
	assert.Equal(t, "all of it", string(msg.Body))
	assert.True(t, msg.Close)

	msg = read(t, "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", "GET")
	assert.True(t, msg.Close)
}

func TestReadStream(t *testing.T) {
	out := &bytes.Buffer{}
	msg, err := HTTP1{}.ReadResponse(bufio.NewReader(strings.NewReader("HTTP/1.1 200 OK\r\nContent-Length: 3\r\n\r\nabc")), "GET", out)
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
	assert.EqualValues(t, 3, msg.Streamed)
	assert.Equal(t, "abc", out.String())
}

func TestReadErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":     "hello\r\n\r\n",
		"bad code":    "HTTP/1.1 2000 OK\r\n\r\n",
		"truncated":   "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc",
		"no head end": "HTTP/1.1 200 OK\r\nA: b\r\n",
		"smuggling":   "HTTP/1.1 200 OK\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\nab",
	} {
		_, err := HTTP1{}.ReadResponse(bufio.NewReader(strings.NewReader(raw)), "GET", nil)
		assert.Error(t, err, name)
	}
}
