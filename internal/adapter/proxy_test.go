package adapter

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/internal/errs"
)

func proxyOptions(t *testing.T, addr, kind string) Options {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	o := DefaultOptions()
	o.ProxyHost = host
	o.ProxyPort, _ = strconv.Atoi(port)
	o.ProxyType = kind
	o.SSLVerifyPeer = false
	return o
}

func pipe(a, b net.Conn) {
	go func() { io.Copy(a, b); a.Close() }()
	io.Copy(b, a)
	b.Close()
}

// connectProxy tunnels CONNECT requests and rejects everything else with
// status.
func connectProxy(t *testing.T, status int, seen chan<- *http.Request) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				req, err := http.ReadRequest(bufio.NewReader(c))
				if err != nil {
					c.Close()
					return
				}
				seen <- req
				if status != http.StatusOK {
					fmt.Fprintf(c, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
					c.Close()
					return
				}
				target, err := net.Dial("tcp", req.Host)
				if err != nil {
					c.Close()
					return
				}
				io.WriteString(c, "HTTP/1.1 200 Connection established\r\n\r\n")
				pipe(c, target)
			}(c)
		}
	}()
	return ln
}

func TestProxyPlainHTTP(t *testing.T) {
	seen := make(chan *http.Request, 1)
	proxySrv, _ := countingServer(t, false, func(w http.ResponseWriter, r *http.Request) {
		seen <- r
		io.WriteString(w, "proxied")
	})
	p := NewProxy(nil)
	o := proxyOptions(t, proxySrv.Listener.Addr().String(), "http")
	o.ProxyUser, o.ProxyPass = "user", "secret"
	require.NoError(t, p.SetOptions(o))

	resp, err := roundTrip(t, p, "GET", "http://example.test:8081/some/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "proxied", string(resp.Content))
	req := <-seen
	assert.Equal(t, "http://example.test:8081/some/path?q=1", req.RequestURI)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("user:secret")), req.Header.Get("Proxy-Authorization"))
}

func TestProxyConnectTunnel(t *testing.T) {
	target, _ := countingServer(t, true, hello)
	seen := make(chan *http.Request, 1)
	ln := connectProxy(t, http.StatusOK, seen)

	p := NewProxy(nil)
	require.NoError(t, p.SetOptions(proxyOptions(t, ln.Addr().String(), "http")))
	resp, err := roundTrip(t, p, "GET", target.URL+"/tunnelled")
	require.NoError(t, err)
	assert.Equal(t, "hello GET /tunnelled", string(resp.Content))

	req := <-seen
	assert.Equal(t, http.MethodConnect, req.Method)
	assert.Equal(t, target.Listener.Addr().String(), req.Host)
}

func TestProxyConnectRefused(t *testing.T) {
	seen := make(chan *http.Request, 1)
	ln := connectProxy(t, http.StatusProxyAuthRequired, seen)
	p := NewProxy(nil)
	require.NoError(t, p.SetOptions(proxyOptions(t, ln.Addr().String(), "http")))
	_, err := roundTrip(t, p, "GET", "https://127.0.0.1:1/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRuntime))
	assert.Contains(t, err.Error(), "unable to connect to HTTPS proxy")
	assert.Contains(t, err.Error(), "407")
}

// socks5Server is just enough of RFC 1928 for a no-auth CONNECT.
func socks5Server(t *testing.T) (net.Listener, *int32) {
	t.Helper()
	var served int32
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				br := bufio.NewReader(c)
				head := make([]byte, 2)
				if _, err := io.ReadFull(br, head); err != nil {
					c.Close()
					return
				}
				io.ReadFull(br, make([]byte, head[1]))
				c.Write([]byte{5, 0})
				req := make([]byte, 4)
				if _, err := io.ReadFull(br, req); err != nil {
					c.Close()
					return
				}
				var host string
				switch req[3] {
				case 1:
					ip := make([]byte, 4)
					io.ReadFull(br, ip)
					host = net.IP(ip).String()
				case 3:
					l, _ := br.ReadByte()
					name := make([]byte, l)
					io.ReadFull(br, name)
					host = string(name)
				}
				port := make([]byte, 2)
				io.ReadFull(br, port)
				target, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(port)))))
				if err != nil {
					c.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
					c.Close()
					return
				}
				atomic.AddInt32(&served, 1)
				c.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
				pipe(c, target)
			}(c)
		}
	}()
	return ln, &served
}

func TestProxySocks5(t *testing.T) {
	target, _ := countingServer(t, false, hello)
	ln, served := socks5Server(t)
	p := NewProxy(nil)
	require.NoError(t, p.SetOptions(proxyOptions(t, ln.Addr().String(), "socks5")))
	resp, err := roundTrip(t, p, "GET", target.URL+"/via-socks")
	require.NoError(t, err)
	assert.Equal(t, "hello GET /via-socks", string(resp.Content))
	assert.EqualValues(t, 1, atomic.LoadInt32(served))
}

func TestProxyWithoutHostIsSocket(t *testing.T) {
	target, _ := countingServer(t, false, hello)
	resp, err := roundTrip(t, NewProxy(nil), "GET", target.URL+"/direct")
	require.NoError(t, err)
	assert.Equal(t, "hello GET /direct", string(resp.Content))
}
