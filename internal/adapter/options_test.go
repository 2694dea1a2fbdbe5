package adapter

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/internal/errs"
)

func TestOptionsFromMapRejectsNonMaps(t *testing.T) {
	for _, v := range []interface{}{"foo", 3, nil, []string{"a"}, (*Options)(nil)} {
		_, err := OptionsFromMap(v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
		assert.Equal(t, "config parameter is not valid", err.Error())
	}
}

func TestOptionsFromMap(t *testing.T) {
	o, err := OptionsFromMap(map[string]interface{}{
		"max_redirects":   "3",
		"Timeout":         2,
		"connecttimeout":  "1500ms",
		"keepalive":       "on",
		"StrictRedirects": true,
		"proxy-host":      "proxy.local",
		"proxy_port":      3128.0,
		"somethingElse":   42,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, o.MaxRedirects)
	assert.Equal(t, 2*time.Second, o.Timeout)
	assert.Equal(t, 1500*time.Millisecond, o.DialTimeout())
	assert.True(t, o.KeepAlive)
	assert.True(t, o.StrictRedirects)
	assert.Equal(t, "proxy.local", o.ProxyHost)
	assert.Equal(t, 3128, o.ProxyPort)
	assert.Equal(t, 42, o.Extra["somethingelse"])

	// untouched defaults
	assert.Equal(t, "go-http-client", o.UserAgent)
	assert.True(t, o.EncodeCookies)
	assert.True(t, o.StoreResponse)
	assert.Equal(t, "&", o.ArgSeparator)
}

func TestOptionsFromStringMap(t *testing.T) {
	o, err := OptionsFromMap(map[string]string{"useragent": "agent/1.0", "sslverifypeer": "false", "timeout": "0.5"})
	require.NoError(t, err)
	assert.Equal(t, "agent/1.0", o.UserAgent)
	assert.False(t, o.SSLVerifyPeer)
	assert.Equal(t, 500*time.Millisecond, o.Timeout)
	assert.Equal(t, o.Timeout, o.DialTimeout())
}

func TestOptionsInvalidValues(t *testing.T) {
	for name, m := range map[string]map[string]interface{}{
		"negative redirects": {"maxredirects": -1},
		"http version":       {"httpversion": "2.0"},
		"bool":               {"keepalive": "maybe"},
		"duration":           {"timeout": "soon"},
		"int type":           {"maxredirects": []int{1}},
		"proxy type":         {"proxytype": "socks4"},
		"proxy auth":         {"proxyauth": "digest"},
		"user agent":         {"useragent": "a\r\nX-Injected: 1"},
		"dns network":        {"dnsnetwork": "tcp"},
		"dns server":         {"dnsserver": "1.1.1.1"},
		"hosts":              {"hosts": []string{"a"}},
	} {
		_, err := OptionsFromMap(m)
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument), name)
	}
}

func TestOptionsDNS(t *testing.T) {
	o, err := OptionsFromMap(map[string]interface{}{
		"dns_server":  "1.1.1.1:53",
		"dns-network": "ip4",
		"hosts":       map[string]interface{}{"api.local": "10.0.0.7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1:53", o.DNSServer)
	assert.Equal(t, "ip4", o.DNSNetwork)
	assert.Equal(t, map[string]string{"api.local": "10.0.0.7"}, o.Hosts)
}

func TestMergeKeepsEarlierValues(t *testing.T) {
	o, err := OptionsFromMap(map[string]interface{}{"maxredirects": 1})
	require.NoError(t, err)
	o, err = o.Merge(map[string]interface{}{"keepalive": true})
	require.NoError(t, err)
	assert.Equal(t, 1, o.MaxRedirects)
	assert.True(t, o.KeepAlive)

	typed := DefaultOptions()
	typed.Adapter = "test"
	got, err := OptionsFromMap(typed)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Adapter)
}
