// Package adapter exposes the transports a [http.Client] sends through.
//
// Adapters are responsible for the underlying streams that requests are
// written to and responses read from, for example a raw TCP connection, a
// tunnel through a proxy or an in-memory script of responses.
//
// Unlike [net/http.Transport], an Adapter holds at most one connection, so
// it can be swapped out from a client without pain. Like
// [net/http.Transport], it holds the connection related configuration,
// passed in through SetOptions before every request.
package adapter

import (
	"github.com/frankli0324/go-http-client/internal/adapter"
	"github.com/frankli0324/go-http-client/internal/obs"
)

type Adapter = adapter.Adapter

// StreamAdapter copies response bodies to a writer instead of returning
// them from Read.
type StreamAdapter = adapter.StreamAdapter

type Options = adapter.Options

// Socket is the default adapter: plain TCP or TLS, with keep-alive and a
// process wide persistent pool.
type Socket = adapter.Socket

// Proxy sends through an HTTP proxy (CONNECT for https targets) or a
// SOCKS5 one. without a proxy host it behaves like Socket.
type Proxy = adapter.Proxy

// Test never touches the network. it answers with the responses it is
// given and records every request written to it.
type Test = adapter.Test

// New returns the adapter registered under name: "socket", "proxy" or
// "test".
func New(name string, log obs.Logger) (Adapter, error) { return adapter.New(name, log) }

func NewSocket(log obs.Logger) *Socket { return adapter.NewSocket(log) }
func NewProxy(log obs.Logger) *Proxy   { return adapter.NewProxy(log) }
func NewTest() *Test                   { return adapter.NewTest() }
