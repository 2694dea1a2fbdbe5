package transport

import (
	"strings"
)

// hasToken reports whether the comma separated list v contains token,
// case-insensitively.
func hasToken(v, token string) bool {
	for _, t := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return true
		}
	}
	return false
}

// bodyless reports whether a response to method with the given status can
// not carry a body. a successful CONNECT turns the connection into a tunnel.
func bodyless(method string, code int) bool {
	return method == "HEAD" || (code >= 100 && code < 200) || code == 204 || code == 304 ||
		(method == "CONNECT" && code >= 200 && code < 300)
}
