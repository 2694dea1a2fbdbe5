package adapter

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// Options configures the client and its adapters. build it with
// DefaultOptions, or from a loosely typed map with OptionsFromMap.
type Options struct {
	MaxRedirects    int
	StrictRedirects bool
	Timeout         time.Duration
	ConnectTimeout  time.Duration // defaults to Timeout when zero
	UserAgent       string
	KeepAlive       bool
	Persistent      bool
	StoreResponse   bool
	EncodeCookies   bool
	OutputStream    string
	ArgSeparator    string
	RFC3986Strict   bool
	HTTPVersion     string
	Adapter         string

	SSLVerifyPeer      bool
	SSLAllowSelfSigned bool
	SSLCAFile          string
	SSLCAPath          string
	SSLCert            string
	SSLKey             string

	ProxyHost string
	ProxyPort int
	ProxyUser string
	ProxyPass string
	ProxyAuth string
	ProxyType string

	// name resolution, the system resolver when all are empty
	DNSServer  string            // "host:port" of the DNS server to ask
	DNSNetwork string            // "ip4", "ip6" or "ip"
	Hosts      map[string]string // static host -> address entries, like /etc/hosts

	// Extra keeps keys no field knows about.
	Extra map[string]interface{}
}

func DefaultOptions() Options {
	return Options{
		MaxRedirects:  5,
		Timeout:       10 * time.Second,
		UserAgent:     "go-http-client",
		StoreResponse: true,
		EncodeCookies: true,
		ArgSeparator:  "&",
		HTTPVersion:   "1.1",
		Adapter:       "socket",
		SSLVerifyPeer: true,
		ProxyPort:     8080,
		ProxyAuth:     "basic",
		ProxyType:     "http",
	}
}

func (o Options) DialTimeout() time.Duration {
	if o.ConnectTimeout > 0 {
		return o.ConnectTimeout
	}
	return o.Timeout
}

// NormalizeKey folds an option name the way every config source spells it:
// "max_redirects", "MaxRedirects" and "max-redirects" are the same key.
func NormalizeKey(k string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "", ".", "").Replace(strings.ToLower(k))
}

// OptionsFromMap turns a map[string]interface{}, map[string]string or an
// Options value into validated Options, starting from the defaults.
func OptionsFromMap(v interface{}) (Options, error) {
	return DefaultOptions().Merge(v)
}

// Merge applies the keys of v on top of o.
func (o Options) Merge(v interface{}) (Options, error) {
	var m map[string]interface{}
	switch t := v.(type) {
	case Options:
		return t, t.Validate()
	case *Options:
		if t == nil {
			return o, errs.Config("config parameter is not valid")
		}
		return *t, t.Validate()
	case map[string]interface{}:
		m = t
	case map[string]string:
		m = make(map[string]interface{}, len(t))
		for k, s := range t {
			m[k] = s
		}
	default:
		return o, errs.Config("config parameter is not valid")
	}
	extra := make(map[string]interface{}, len(o.Extra))
	for k, v := range o.Extra {
		extra[k] = v
	}
	o.Extra = extra
	for k, v := range m {
		if err := o.set(NormalizeKey(k), v); err != nil {
			return o, err
		}
	}
	return o, o.Validate()
}

func (o *Options) set(k string, v interface{}) (err error) {
	switch k {
	case "maxredirects":
		o.MaxRedirects, err = toInt(k, v)
	case "strictredirects":
		o.StrictRedirects, err = toBool(k, v)
	case "timeout":
		o.Timeout, err = toDuration(k, v)
	case "connecttimeout":
		o.ConnectTimeout, err = toDuration(k, v)
	case "useragent":
		o.UserAgent, err = toString(k, v)
	case "keepalive":
		o.KeepAlive, err = toBool(k, v)
	case "persistent":
		o.Persistent, err = toBool(k, v)
	case "storeresponse":
		o.StoreResponse, err = toBool(k, v)
	case "encodecookies":
		o.EncodeCookies, err = toBool(k, v)
	case "outputstream":
		o.OutputStream, err = toString(k, v)
	case "argseparator":
		o.ArgSeparator, err = toString(k, v)
	case "rfc3986strict":
		o.RFC3986Strict, err = toBool(k, v)
	case "httpversion":
		o.HTTPVersion, err = toString(k, v)
	case "adapter":
		o.Adapter, err = toString(k, v)
	case "sslverifypeer":
		o.SSLVerifyPeer, err = toBool(k, v)
	case "sslallowselfsigned":
		o.SSLAllowSelfSigned, err = toBool(k, v)
	case "sslcafile":
		o.SSLCAFile, err = toString(k, v)
	case "sslcapath":
		o.SSLCAPath, err = toString(k, v)
	case "sslcert":
		o.SSLCert, err = toString(k, v)
	case "sslkey":
		o.SSLKey, err = toString(k, v)
	case "proxyhost":
		o.ProxyHost, err = toString(k, v)
	case "proxyport":
		o.ProxyPort, err = toInt(k, v)
	case "proxyuser":
		o.ProxyUser, err = toString(k, v)
	case "proxypass":
		o.ProxyPass, err = toString(k, v)
	case "proxyauth":
		o.ProxyAuth, err = toString(k, v)
	case "proxytype":
		o.ProxyType, err = toString(k, v)
	case "dnsserver":
		o.DNSServer, err = toString(k, v)
	case "dnsnetwork":
		o.DNSNetwork, err = toString(k, v)
	case "hosts":
		o.Hosts, err = toStringMap(k, v)
	default:
		o.Extra[k] = v
	}
	return err
}

func (o Options) Validate() error {
	switch {
	case o.MaxRedirects < 0:
		return errs.Configf("maxredirects must not be negative, got %d", o.MaxRedirects)
	case o.Timeout < 0 || o.ConnectTimeout < 0:
		return errs.Config("timeouts must not be negative")
	case o.HTTPVersion != "1.0" && o.HTTPVersion != "1.1":
		return errs.Configf("unsupported HTTP version %q", o.HTTPVersion)
	case o.ProxyPort < 0 || o.ProxyPort > 65535:
		return errs.Configf("invalid proxy port %d", o.ProxyPort)
	}
	switch strings.ToLower(o.ProxyType) {
	case "", "http", "socks5":
	default:
		return errs.Configf("unsupported proxy type %q", o.ProxyType)
	}
	switch o.DNSNetwork {
	case "", "ip", "ip4", "ip6":
	default:
		return errs.Configf("unsupported DNS network %q", o.DNSNetwork)
	}
	if o.DNSServer != "" {
		if _, _, err := net.SplitHostPort(o.DNSServer); err != nil {
			return errs.Configf("invalid DNS server address %q", o.DNSServer)
		}
	}
	if !strings.EqualFold(o.ProxyAuth, "basic") && o.ProxyAuth != "" {
		return errs.Configf("unsupported proxy authentication method %q", o.ProxyAuth)
	}
	if strings.ContainsAny(o.UserAgent, "\r\n") {
		return errs.Config("useragent must not contain line breaks")
	}
	return nil
}

func toString(k string, v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	}
	return "", errs.Configf("invalid value for option %q: %T", k, v)
}

func toInt(k string, v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errs.Configf("invalid value for option %q: %q", k, t)
		}
		return n, nil
	}
	return 0, errs.Configf("invalid value for option %q: %T", k, v)
}

func toBool(k string, v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "on", "yes":
			return true, nil
		case "0", "false", "off", "no", "":
			return false, nil
		}
		return false, errs.Configf("invalid value for option %q: %q", k, t)
	}
	return false, errs.Configf("invalid value for option %q: %T", k, v)
}

func toStringMap(k string, v interface{}) (map[string]string, error) {
	switch t := v.(type) {
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		m := make(map[string]string, len(t))
		for host, addr := range t {
			s, err := toString(k, addr)
			if err != nil {
				return nil, err
			}
			m[host] = s
		}
		return m, nil
	}
	return nil, errs.Configf("invalid value for option %q: %T", k, v)
}

// toDuration reads plain numbers as seconds and strings either as seconds
// or as a Go duration ("1500ms").
func toDuration(k string, v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		t = strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, errs.Configf("invalid value for option %q: %q", k, t)
		}
		return d, nil
	}
	return 0, errs.Configf("invalid value for option %q: %T", k, v)
}
