package adapter

import (
	"context"
	"crypto/tls"
	"net"
	"net/http/httptrace"
)

// a ClientTrace installed with httptrace.WithClientTrace also reaches the
// net package through the context, which fires the DNS and connect hooks on
// its own. the HTTP level hooks are left to the adapter.

func traceOf(ctx context.Context) *httptrace.ClientTrace {
	if ctx == nil {
		return nil
	}
	return httptrace.ContextClientTrace(ctx)
}

func traceGetConn(ctx context.Context, hostPort string) {
	if t := traceOf(ctx); t != nil && t.GetConn != nil {
		t.GetConn(hostPort)
	}
}

func traceGotConn(ctx context.Context, conn net.Conn, reused bool) {
	if t := traceOf(ctx); t != nil && t.GotConn != nil {
		t.GotConn(httptrace.GotConnInfo{Conn: conn, Reused: reused, WasIdle: reused})
	}
}

func traceTLSStart(ctx context.Context) {
	if t := traceOf(ctx); t != nil && t.TLSHandshakeStart != nil {
		t.TLSHandshakeStart()
	}
}

func traceTLSDone(ctx context.Context, state tls.ConnectionState, err error) {
	if t := traceOf(ctx); t != nil && t.TLSHandshakeDone != nil {
		t.TLSHandshakeDone(state, err)
	}
}

func traceWrote(ctx context.Context, err error) {
	if t := traceOf(ctx); t != nil && t.WroteRequest != nil {
		t.WroteRequest(httptrace.WroteRequestInfo{Err: err})
	}
}

func traceFirstByte(ctx context.Context) {
	if t := traceOf(ctx); t != nil && t.GotFirstResponseByte != nil {
		t.GotFirstResponseByte()
	}
}
