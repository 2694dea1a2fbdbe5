package model

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	r, err := ParseResponse("HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nContent-Length: 4\r\n\r\nnope")
	require.NoError(t, err)
	assert.Equal(t, 404, r.StatusCode)
	assert.Equal(t, "Not Found", r.ReasonPhrase)
	assert.True(t, r.IsNotFound())
	assert.True(t, r.IsClientError())
	assert.False(t, r.IsSuccess())
	assert.Equal(t, "nope", string(r.Content))
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nContent-Length: 4\r\n\r\nnope", r.String())
}

func TestParseResponseDefaults(t *testing.T) {
	r, err := ParseResponse("HTTP/1.0 410\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, "Gone", r.ReasonPhrase)
	assert.True(t, r.IsGone())
	assert.Nil(t, r.Content)

	r, err = ParseResponse("HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 200 OK\r\n\r\nbody")
	require.NoError(t, err)
	assert.True(t, r.IsOK())
	assert.Equal(t, "body", string(r.Content))
}

func TestParseResponseInvalid(t *testing.T) {
	for _, raw := range []string{"", "HTTP/1.1 OK\r\n\r\n", "HTTP/1.1 600 Nope\r\n\r\n", "HTTP/1.1 099 x\r\n\r\n"} {
		_, err := ParseResponse(raw)
		assert.Error(t, err, raw)
	}
}

func TestBodyDecoding(t *testing.T) {
	r, err := ParseResponse("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n")
	require.NoError(t, err)
	b, err := r.Body()
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(b))

	gz := &bytes.Buffer{}
	w := gzip.NewWriter(gz)
	w.Write([]byte("zipped"))
	w.Close()
	r, err = ParseResponse("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\n\r\n" + gz.String())
	require.NoError(t, err)
	b, err = r.Body()
	require.NoError(t, err)
	assert.Equal(t, "zipped", string(b))

	zl := &bytes.Buffer{}
	zw := zlib.NewWriter(zl)
	zw.Write([]byte("deflated"))
	zw.Close()
	r, err = ParseResponse("HTTP/1.1 200 OK\r\nContent-Encoding: deflate\r\n\r\n" + zl.String())
	require.NoError(t, err)
	b, err = r.Body()
	require.NoError(t, err)
	assert.Equal(t, "deflated", string(b))

	r, err = ParseResponse("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\n\r\nnot gzip")
	require.NoError(t, err)
	_, err = r.Body()
	assert.Error(t, err)
}

func TestBodyFromStream(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "body")
	require.NoError(t, err)
	defer f.Close()
	f.WriteString("streamed")
	r := NewResponse(200)
	r.Stream = f
	b, err := r.Body()
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(b))
}

func TestText(t *testing.T) {
	r, err := ParseResponse("HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=ISO-8859-1\r\n\r\ncaf\xe9")
	require.NoError(t, err)
	s, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, "café", s)

	r, err = ParseResponse("HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=utf-8\r\n\r\ncafé")
	require.NoError(t, err)
	s, err = r.Text()
	require.NoError(t, err)
	assert.Equal(t, "café", s)
}

func TestEmitToResponseWriter(t *testing.T) {
	gz := &bytes.Buffer{}
	w := gzip.NewWriter(gz)
	w.Write([]byte("hello"))
	w.Close()
	r, err := ParseResponse("HTTP/1.1 201 Created\r\nX-Id: 7\r\nContent-Encoding: gzip\r\nContent-Length: 99\r\n\r\n" + gz.String())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Emit(WriterSink{W: rec}))
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-Id"))
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "hello", rec.Body.String())
}
