package transport

import (
	"bufio"
	"io"

	"github.com/frankli0324/go-http-client/header"
)

// Transport frames requests and responses on an established connection.
type Transport interface {
	WriteRequest(w io.Writer, req *RequestHead, body io.Reader) (string, error)
	ReadResponse(r *bufio.Reader, method string, stream io.Writer) (*Message, error)
}

// RequestHead is everything in front of a request body.
type RequestHead struct {
	Method  string
	Target  string
	Version string
	Headers *header.Headers
}

// Message is a response as read off the wire. Head holds the status line
// and header block including the terminating blank line. a chunked body is
// kept chunked, re-framed into a single chunk plus trailers.
type Message struct {
	Head string
	Body []byte

	// Close is set when the connection can't carry another exchange:
	// the server asked for it or the body was delimited by closing.
	Close bool
	// Streamed counts body bytes copied to the stream writer instead of Body.
	Streamed int64
}

func (m *Message) Raw() string {
	return m.Head + string(m.Body)
}
