// Package adapter moves raw HTTP messages between the client and a server.
// adapters handle pretty much everything related to the actual connection,
// including proxies, TLS and connection reuse; the client only deals with
// message semantics.
package adapter

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/obs"
)

type Adapter interface {
	SetOptions(Options) error
	// Connect makes sure a connection to host:port is established,
	// reusing the current one when allowed.
	Connect(ctx context.Context, host string, port int, secure bool) error
	// Write sends one request and returns it as it went on the wire.
	Write(method string, target *url.URL, version string, headers *header.Headers, body io.Reader) (string, error)
	// Read returns the raw response to the last written request.
	Read() (string, error)
	Close() error
}

// StreamAdapter can copy the response body to a writer instead of
// returning it from Read.
type StreamAdapter interface {
	Adapter
	SetOutputStream(w io.Writer)
}

// New returns the adapter registered under name: "socket", "proxy" or
// "test".
func New(name string, log obs.Logger) (Adapter, error) {
	switch strings.ToLower(name) {
	case "", "socket":
		return NewSocket(log), nil
	case "proxy":
		return NewProxy(log), nil
	case "test":
		return NewTest(), nil
	}
	return nil, errs.Configf("unknown adapter %q", name)
}
