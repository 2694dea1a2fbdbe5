package adapter

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/obs"
	"github.com/frankli0324/go-http-client/internal/transport"
	"github.com/frankli0324/go-http-client/utils/netpool"
	"github.com/frankli0324/go-http-client/utils/nettools"
)

// persistent connections outlive the adapter that dialed them and are
// shared by every Socket in the process.
var persistentPool = netpool.NewGroup(16, 4,
	netpool.WithMaxIdleDuration(90*time.Second), netpool.WithLogger(&poolLog))

var poolLog obs.Delegate

// SetPoolLogger sets the logger of the persistent pool.
func SetPoolLogger(l obs.Logger) { poolLog.Set(l) }

var h1 transport.Transport = transport.HTTP1{}

type wire interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Socket talks HTTP/1.x over TCP, optionally wrapped in TLS.
type Socket struct {
	opts Options
	log  obs.Logger
	out  io.Writer

	conn   wire
	br     *bufio.Reader
	key    string
	addr   string
	method string
	ctx    context.Context
	stop   func() bool

	// dialer opens a connection usable for requests to host:port; the
	// proxy adapter replaces it
	dialer func(ctx context.Context, host string, port int, secure bool) (net.Conn, error)
	// keyPrefix separates proxied connections from direct ones
	keyPrefix string
	// target renders the request target, origin form by default, and may
	// return amended headers
	target func(u *url.URL, headers *header.Headers) (string, *header.Headers)
}

func NewSocket(log obs.Logger) *Socket {
	s := &Socket{opts: DefaultOptions(), log: obs.OrNop(log)}
	s.dialer = s.dialDirect
	return s
}

func (s *Socket) SetOptions(o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.opts = o
	return nil
}

func (s *Socket) Options() Options { return s.opts }

func (s *Socket) SetOutputStream(w io.Writer) { s.out = w }

func (s *Socket) reusable() bool { return s.opts.KeepAlive || s.opts.Persistent }

func (s *Socket) Connect(ctx context.Context, host string, port int, secure bool) error {
	if host == "" {
		return errs.Config("cannot connect without a host")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	key := fmt.Sprintf("%s%s|%t", s.keyPrefix, addr, secure)
	traceGetConn(ctx, addr)
	if s.conn != nil && s.key == key && s.reusable() && nettools.IsAlive(rawConn(s.conn)) {
		s.log.Logf(obs.Debug, "socket: reusing connection to %s", addr)
		s.bind(ctx)
		traceGotConn(ctx, rawConn(s.conn), true)
		return nil
	}
	s.Close()

	dialed := false
	dial := func(ctx context.Context) (net.Conn, error) {
		dialed = true
		return s.dialer(ctx, host, port, secure)
	}
	var (
		conn wire
		err  error
	)
	if s.opts.Persistent {
		conn, err = persistentPool.Connect(ctx, key, dial)
	} else {
		conn, err = dial(ctx)
	}
	if err != nil {
		return errs.Connection(addr, err)
	}
	s.log.Logf(obs.Debug, "socket: connected to %s (tls: %t)", addr, secure)
	s.conn, s.br, s.key, s.addr = conn, bufio.NewReader(conn), key, addr
	s.bind(ctx)
	traceGotConn(ctx, rawConn(conn), !dialed)
	return nil
}

// bind makes ctx cancellation interrupt blocked reads and writes.
func (s *Socket) bind(ctx context.Context) {
	if s.stop != nil {
		s.stop()
	}
	s.ctx = ctx
	conn := s.conn
	s.stop = context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
}

func (s *Socket) deadline() {
	if s.ctx != nil && s.ctx.Err() != nil {
		return // already interrupted
	}
	if s.opts.Timeout > 0 {
		s.conn.SetDeadline(time.Now().Add(s.opts.Timeout))
	}
}

func (s *Socket) dialDirect(ctx context.Context, host string, port int, secure bool) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ip, err := resolve(ctx, s.opts, host)
	if err != nil {
		return nil, errs.Connection(addr, err)
	}
	if ip != host {
		s.log.Logf(obs.Debug, "socket: %s resolved to %s", host, ip)
	}
	d := net.Dialer{Timeout: s.opts.DialTimeout(), KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return nil, errs.Connection(addr, err)
	}
	if secure {
		return s.handshake(ctx, conn, host, addr)
	}
	return conn, nil
}

func (s *Socket) handshake(ctx context.Context, conn net.Conn, host, addr string) (net.Conn, error) {
	cfg, err := tlsConfig(s.opts, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if t := s.opts.DialTimeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	c := tls.Client(conn, cfg)
	traceTLSStart(ctx)
	err = c.HandshakeContext(ctx)
	traceTLSDone(ctx, c.ConnectionState(), err)
	if err != nil {
		conn.Close()
		return nil, errs.Connection(addr, fmt.Errorf("unable to enable crypto on TCP connection: %w", err))
	}
	return c, nil
}

func (s *Socket) Write(method string, target *url.URL, version string, headers *header.Headers, body io.Reader) (string, error) {
	if s.conn == nil {
		return "", errs.Connection(s.addr, errors.New("trying to write but we are not connected"))
	}
	if headers == nil {
		headers = header.NewHeaders()
	}
	t := "/"
	if target != nil {
		t = target.RequestURI()
	}
	if s.target != nil {
		t, headers = s.target(target, headers)
	}
	s.deadline()
	raw, err := h1.WriteRequest(s.conn, &transport.RequestHead{Method: method, Target: t, Version: version, Headers: headers}, body)
	traceWrote(s.ctx, err)
	if err != nil {
		s.Close()
		return raw, s.wireErr(err)
	}
	s.method = method
	return raw, nil
}

func (s *Socket) Read() (string, error) {
	if s.conn == nil {
		return "", errs.Connection(s.addr, errors.New("trying to read but we are not connected"))
	}
	s.deadline()
	if _, err := s.br.Peek(1); err == nil {
		traceFirstByte(s.ctx)
	}
	msg, err := h1.ReadResponse(s.br, s.method, s.out)
	if err != nil {
		s.Close()
		return "", s.wireErr(err)
	}
	switch {
	case msg.Close || !s.reusable():
		s.Close()
	default:
		if pc, ok := s.conn.(netpool.Conn); ok {
			s.conn.SetDeadline(time.Time{})
			s.unbind()
			pc.Release()
			s.conn = nil
		}
	}
	return msg.Raw(), nil
}

// wireErr classifies I/O failures as connection errors and leaves
// malformed responses as parse errors.
func (s *Socket) wireErr(err error) error {
	if s.ctx != nil && s.ctx.Err() != nil {
		return errs.Connection(s.addr, s.ctx.Err())
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return errs.Connection(s.addr, err)
	}
	return err
}

func (s *Socket) unbind() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *Socket) Close() error {
	s.unbind()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn, s.br, s.key = nil, nil, ""
	return err
}

func rawConn(w wire) net.Conn {
	switch c := w.(type) {
	case netpool.Conn:
		return c.Raw()
	case net.Conn:
		return c
	}
	return nil
}
