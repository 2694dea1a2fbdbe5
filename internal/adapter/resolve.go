package adapter

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// the standard library only follows the system configuration (e.g.
// /etc/resolv.conf) when picking a DNS server, which leaves the Dial hook of
// a pure Go resolver as the one place a custom server can be plugged in.
// the server travels in the lookup context.

type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"}

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var resolverDialer net.Dialer

var customServerResolver = &net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return resolverDialer.DialContext(ctx, network, v)
		}
		return resolverDialer.DialContext(ctx, network, address)
	},
}

// LookupIPServer resolves host on dns, or on the system servers when dns
// is empty.
func LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	if network == "" {
		network = "ip"
	}
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}

// resolve returns the address to dial for host. static entries win; the
// host is returned as is when no resolution option is set, so the dialer
// keeps its own happy eyeballs logic.
func resolve(ctx context.Context, o Options, host string) (string, error) {
	for name, addr := range o.Hosts {
		if strings.EqualFold(name, host) {
			return addr, nil
		}
	}
	if net.ParseIP(host) != nil || (o.DNSServer == "" && (o.DNSNetwork == "" || o.DNSNetwork == "ip")) {
		return host, nil
	}
	ips, err := LookupIPServer(ctx, o.DNSNetwork, host, o.DNSServer)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.Errorf("no %s address found for %s", o.DNSNetwork, host)
	}
	return ips[0].String(), nil
}
