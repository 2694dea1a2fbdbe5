package header

import (
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-http-client/internal/errs"
)

func isCTL(c byte) bool {
	return (c < 32 && c != '\t') || c == 127 || c == 255
}

// IsValid reports whether v may be used as a header field value. control
// characters are rejected, except HT and a CRLF immediately followed by SP
// or HT (an obs-fold).
func IsValid(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' {
			if i+2 < len(v) && v[i+1] == '\n' && (v[i+2] == ' ' || v[i+2] == '\t') {
				i += 2
				continue
			}
			return false
		}
		if isCTL(c) {
			return false
		}
	}
	return true
}

// AssertValid returns a ConfigurationError when v is not a valid value.
func AssertValid(v string) error {
	if !IsValid(v) {
		return errs.Configf("invalid header value detected: %q", v)
	}
	return nil
}

// Filter strips every control character except HT from v, which also turns
// an obs-fold into its leading whitespace.
func Filter(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if !isCTL(v[i]) {
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// IsValidName reports whether name is an RFC 7230 token.
func IsValidName(name string) bool {
	return httpguts.ValidHeaderFieldName(name)
}

func AssertValidName(name string) error {
	if !IsValidName(name) {
		return errs.Configf("header name must be a valid RFC 7230 (section 3.2) field-name, got %q", name)
	}
	return nil
}
