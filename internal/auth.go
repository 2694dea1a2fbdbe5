package internal

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

const (
	AuthBasic  = "basic"
	AuthDigest = "digest"
)

type credentials struct {
	user, pass, typ string
}

// EncodeAuthHeader returns the Authorization value for a basic login.
// digest needs a server challenge and can't be encoded up front.
func EncodeAuthHeader(user, pass, typ string) (string, error) {
	if typ == "" {
		typ = AuthBasic
	}
	switch strings.ToLower(typ) {
	case AuthBasic:
		if strings.Contains(user, ":") {
			return "", errs.Config("the user name cannot contain ':' in 'Basic' HTTP authentication")
		}
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass)), nil
	}
	return "", errs.Configf("not a supported HTTP authentication type: '%s'", typ)
}

// digestChallenge is the parsed "WWW-Authenticate: Digest ..." value.
type digestChallenge struct {
	realm, nonce, opaque, qop, algorithm string
}

func parseDigestChallenge(v string) (*digestChallenge, bool) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(v), " ")
	if !strings.EqualFold(scheme, "Digest") {
		return nil, false
	}
	c := &digestChallenge{}
	for _, part := range splitChallenge(rest) {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "realm":
			c.realm = val
		case "nonce":
			c.nonce = val
		case "opaque":
			c.opaque = val
		case "qop":
			// prefer auth when the server offers a list
			for _, q := range strings.Split(val, ",") {
				if strings.TrimSpace(q) == "auth" {
					c.qop = "auth"
				}
			}
		case "algorithm":
			c.algorithm = val
		}
	}
	if c.nonce == "" {
		return nil, false
	}
	return c, true
}

// splitChallenge splits on commas outside of quoted strings.
func splitChallenge(s string) []string {
	var out []string
	quoted, start := false, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// digestState answers one challenge; nc counts the requests made with the
// same nonce.
type digestState struct {
	challenge *digestChallenge
	nc        int
}

func (d *digestState) authorization(cred *credentials, method, uri string) (string, error) {
	c := d.challenge
	if c.algorithm != "" && !strings.EqualFold(c.algorithm, "MD5") {
		return "", errs.Configf("unsupported digest algorithm %q", c.algorithm)
	}
	d.nc++
	nc := fmt.Sprintf("%08x", d.nc)
	ha1 := md5Hex(cred.user + ":" + c.realm + ":" + cred.pass)
	ha2 := md5Hex(method + ":" + uri)
	parts := []string{
		fmt.Sprintf(`username="%s"`, cred.user),
		fmt.Sprintf(`realm="%s"`, c.realm),
		fmt.Sprintf(`nonce="%s"`, c.nonce),
		fmt.Sprintf(`uri="%s"`, uri),
	}
	var response string
	if c.qop != "" {
		cnonce, err := newCnonce()
		if err != nil {
			return "", err
		}
		response = md5Hex(ha1 + ":" + c.nonce + ":" + nc + ":" + cnonce + ":" + c.qop + ":" + ha2)
		parts = append(parts, fmt.Sprintf(`response="%s"`, response), "qop="+c.qop, "nc="+nc, fmt.Sprintf(`cnonce="%s"`, cnonce))
	} else {
		response = md5Hex(ha1 + ":" + c.nonce + ":" + ha2)
		parts = append(parts, fmt.Sprintf(`response="%s"`, response))
	}
	if c.algorithm != "" {
		parts = append(parts, "algorithm="+c.algorithm)
	}
	if c.opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, c.opaque))
	}
	return "Digest " + strings.Join(parts, ", "), nil
}

func newCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// inAuthScope reports whether credentials given for origin may be sent to
// host: the same host or one of its subdomains.
func inAuthScope(host, origin string) bool {
	host, origin = strings.ToLower(host), strings.ToLower(origin)
	return host == origin || strings.HasSuffix(host, "."+origin)
}
