package adapter

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
	"github.com/frankli0324/go-http-client/internal/obs"
	"github.com/frankli0324/go-http-client/internal/transport"
)

// Proxy is a Socket that reaches the server through an HTTP or SOCKS5
// proxy. without a proxy_host it behaves exactly like Socket.
type Proxy struct {
	*Socket

	host   string
	port   int
	secure bool
}

func NewProxy(log obs.Logger) *Proxy {
	p := &Proxy{Socket: NewSocket(log)}
	p.Socket.dialer = p.dial
	p.Socket.target = p.requestTarget
	return p
}

func (p *Proxy) enabled() bool { return p.opts.ProxyHost != "" }

func (p *Proxy) socks() bool { return strings.EqualFold(p.opts.ProxyType, "socks5") }

func (p *Proxy) proxyAddr() string {
	port := p.opts.ProxyPort
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(p.opts.ProxyHost, strconv.Itoa(port))
}

func (p *Proxy) Connect(ctx context.Context, host string, port int, secure bool) error {
	p.host, p.port, p.secure = host, port, secure
	p.keyPrefix = ""
	if p.enabled() {
		p.keyPrefix = strings.ToLower(p.opts.ProxyType) + "://" + p.proxyAddr() + "|"
	}
	return p.Socket.Connect(ctx, host, port, secure)
}

func (p *Proxy) authorization() string {
	if p.opts.ProxyUser == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(p.opts.ProxyUser+":"+p.opts.ProxyPass))
}

func (p *Proxy) dial(ctx context.Context, host string, port int, secure bool) (net.Conn, error) {
	if !p.enabled() {
		return p.dialDirect(ctx, host, port, secure)
	}
	hp := net.JoinHostPort(host, strconv.Itoa(port))
	paddr := p.proxyAddr()
	p.log.Logf(obs.Debug, "proxy: reaching %s through %s proxy %s", hp, p.opts.ProxyType, paddr)

	if p.socks() {
		var auth *proxy.Auth
		if p.opts.ProxyUser != "" {
			auth = &proxy.Auth{User: p.opts.ProxyUser, Password: p.opts.ProxyPass}
		}
		d, err := proxy.SOCKS5("tcp", paddr, auth, &net.Dialer{Timeout: p.opts.DialTimeout()})
		if err != nil {
			return nil, errs.Connection(paddr, err)
		}
		var conn net.Conn
		if cd, ok := d.(proxy.ContextDialer); ok {
			conn, err = cd.DialContext(ctx, "tcp", hp)
		} else {
			conn, err = d.Dial("tcp", hp)
		}
		if err != nil {
			return nil, errs.Connection(paddr, err)
		}
		if secure {
			return p.handshake(ctx, conn, host, hp)
		}
		return conn, nil
	}

	d := net.Dialer{Timeout: p.opts.DialTimeout(), KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", paddr)
	if err != nil {
		return nil, errs.Connection(paddr, err)
	}
	if !secure {
		return conn, nil
	}
	if err := p.tunnel(conn, hp, paddr); err != nil {
		conn.Close()
		return nil, err
	}
	return p.handshake(ctx, conn, host, hp)
}

// tunnel asks the proxy for a raw connection to hp.
func (p *Proxy) tunnel(conn net.Conn, hp, paddr string) error {
	h := header.NewHeaders()
	if err := h.AddPair("Host", hp); err != nil {
		return err
	}
	if auth := p.authorization(); auth != "" {
		if err := h.AddPair("Proxy-Authorization", auth); err != nil {
			return err
		}
	}
	if err := h.AddPair("User-Agent", p.opts.UserAgent); err != nil {
		return err
	}
	if p.opts.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(p.opts.Timeout))
		defer conn.SetDeadline(time.Time{})
	}
	head := &transport.RequestHead{Method: "CONNECT", Target: hp, Version: p.opts.HTTPVersion, Headers: h}
	if _, err := h1.WriteRequest(conn, head, nil); err != nil {
		return errs.Connection(paddr, err)
	}
	msg, err := h1.ReadResponse(bufio.NewReader(conn), "CONNECT", nil)
	if err != nil {
		return errs.Connection(paddr, err)
	}
	resp, err := model.ParseResponse(msg.Raw())
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return errs.Connection(paddr, fmt.Errorf("unable to connect to HTTPS proxy. Server response: %s", resp.StatusLine()))
	}
	return nil
}

// requestTarget sends absolute-form targets to a plain HTTP proxy;
// tunnels and SOCKS connections use origin form.
func (p *Proxy) requestTarget(u *url.URL, headers *header.Headers) (string, *header.Headers) {
	if u == nil {
		u = &url.URL{Path: "/"}
	}
	if !p.enabled() || p.socks() || p.secure {
		return u.RequestURI(), headers
	}
	abs := *u
	abs.Fragment = ""
	if abs.Scheme == "" {
		abs.Scheme = "http"
	}
	if abs.Host == "" {
		abs.Host = p.host
		if p.port != 80 {
			abs.Host = net.JoinHostPort(p.host, strconv.Itoa(p.port))
		}
	}
	if abs.Path == "" {
		abs.Path = "/"
	}
	if auth := p.authorization(); auth != "" {
		headers = headers.Clone()
		headers.Set("Proxy-Authorization", auth)
	}
	return abs.String(), headers
}
