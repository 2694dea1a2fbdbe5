package header

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// CookieTimeFormat is the Expires layout written by SetCookie.
const CookieTimeFormat = "Mon, 02-Jan-2006 15:04:05 GMT"

var invalidCookieName = regexp.MustCompile("[=,; \t\r\n\x0b\x0c]")

// SetCookie is the response side cookie field. Expires nil means a session
// cookie. values are stored decoded and rendered percent-encoded unless
// RawValue is set.
type SetCookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  *time.Time
	MaxAge   *int
	Version  int
	Comment  string
	Secure   bool
	HTTPOnly bool
	SameSite string
	RawValue bool
}

// NewSetCookie validates name and value.
func NewSetCookie(name, value string) (*SetCookie, error) {
	c := &SetCookie{}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	return c, c.SetValue(value)
}

func (c *SetCookie) SetName(name string) error {
	if name == "" || invalidCookieName.MatchString(name) {
		return errs.Configf("cookie name cannot be empty or contain =,; \\t\\r\\n\\013\\014 (%q)", name)
	}
	c.Name = name
	return nil
}

func (c *SetCookie) SetValue(value string) error {
	if err := AssertValid(value); err != nil {
		return err
	}
	c.Value = value
	return nil
}

// SetMaxAge also moves Expires, the way a browser would on receipt.
func (c *SetCookie) SetMaxAge(seconds int, now time.Time) {
	c.MaxAge = &seconds
	exp := now.Add(time.Duration(seconds) * time.Second)
	c.Expires = &exp
}

func (c *SetCookie) IsSession() bool { return c.Expires == nil }

// IsExpired reports whether the cookie is dead at now. session cookies
// never expire on their own.
func (c *SetCookie) IsExpired(now time.Time) bool {
	return c.Expires != nil && !c.Expires.After(now)
}

func (c *SetCookie) encodedValue() string {
	if c.RawValue {
		return c.Value
	}
	return url.QueryEscape(c.Value)
}

func (c *SetCookie) FieldName() string { return "Set-Cookie" }

func (c *SetCookie) FieldValue() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.encodedValue())
	if c.Version != 0 {
		b.WriteString("; Version=" + strconv.Itoa(c.Version))
	}
	if c.Expires != nil {
		b.WriteString("; Expires=" + c.Expires.UTC().Format(CookieTimeFormat))
	}
	if c.MaxAge != nil {
		b.WriteString("; Max-Age=" + strconv.Itoa(*c.MaxAge))
	}
	if c.Domain != "" {
		b.WriteString("; Domain=" + c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=" + c.Path)
	}
	if c.Comment != "" {
		b.WriteString("; Comment=" + c.Comment)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != "" {
		b.WriteString("; SameSite=" + c.SameSite)
	}
	return b.String()
}

func (c *SetCookie) String() string { return "Set-Cookie: " + c.FieldValue() }

func (c *SetCookie) StringMultiple(others []Field) (string, error) {
	return stringMultiple(c, others, func(f Field) bool {
		_, ok := f.(*SetCookie)
		return ok
	})
}

// setCookieSplit finds commas separating cookies, skipping the one inside
// an Expires date ("Wed, 09 Jun 2021" or "Wednesday, 09-Jun-21").
var setCookieSplit = regexp.MustCompile(`(?i)(\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*)?,\s*`)

func splitSetCookies(value string) []string {
	var parts []string
	start := 0
	for _, m := range setCookieSplit.FindAllStringSubmatchIndex(value, -1) {
		if m[2] != -1 { // weekday before the comma
			continue
		}
		parts = append(parts, value[start:m[0]])
		start = m[1]
	}
	return append(parts, value[start:])
}

// ParseSetCookie parses a Set-Cookie line, which may carry several cookies
// separated by commas.
func ParseSetCookie(line string) ([]*SetCookie, error) {
	value, err := splitNamed("Set-Cookie", line)
	if err != nil {
		return nil, err
	}
	return parseSetCookieValue(value, time.Now())
}

func parseSetCookieValue(value string, now time.Time) ([]*SetCookie, error) {
	var cookies []*SetCookie
	for _, part := range splitSetCookies(value) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := parseOneSetCookie(part, now)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	if len(cookies) == 0 {
		return nil, errs.Config("Set-Cookie header carries no cookie")
	}
	return cookies, nil
}

func parseOneSetCookie(s string, now time.Time) (*SetCookie, error) {
	attrs := strings.Split(s, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(attrs[0]), "=")
	if !ok {
		return nil, errs.Configf("invalid Set-Cookie pair %q", attrs[0])
	}
	if dv, err := url.QueryUnescape(value); err == nil {
		value = dv
	}
	c, err := NewSetCookie(strings.TrimSpace(name), strings.Trim(value, `"`))
	if err != nil {
		return nil, err
	}
	var maxAge *int
	for _, a := range attrs[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(a), "=")
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "expires":
			if t, err := parseCookieTime(v); err == nil {
				c.Expires = &t
			}
		case "max-age":
			if n, err := strconv.Atoi(v); err == nil {
				maxAge = &n
			}
		case "domain":
			c.Domain = strings.ToLower(v)
		case "path":
			c.Path = v
		case "version":
			c.Version, _ = strconv.Atoi(v)
		case "comment":
			c.Comment = v
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		case "samesite":
			c.SameSite = v
		}
	}
	if maxAge != nil { // Max-Age wins over Expires
		c.SetMaxAge(*maxAge, now)
	}
	return c, nil
}

func parseCookieTime(v string) (time.Time, error) {
	if t, err := time.Parse(CookieTimeFormat, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("Mon, 02-Jan-06 15:04:05 MST", v); err == nil {
		return t, nil
	}
	return http.ParseTime(v)
}

// Cookie is the request side field: "a=b; c=d".
type Cookie struct {
	pairs     []Param
	RawValues bool
}

func NewCookie() *Cookie { return &Cookie{} }

func ParseCookie(line string) (*Cookie, error) {
	value, err := splitNamed("Cookie", line)
	if err != nil {
		return nil, err
	}
	c := &Cookie{}
	for _, p := range strings.Split(value, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, _ := strings.Cut(p, "=")
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		if err := c.Add(k, v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a pair, replacing an earlier pair with the same name.
func (c *Cookie) Add(name, value string) error {
	if name == "" || invalidCookieName.MatchString(name) {
		return errs.Configf("invalid cookie name %q", name)
	}
	if err := AssertValid(value); err != nil {
		return err
	}
	for i := range c.pairs {
		if c.pairs[i].Key == name {
			c.pairs[i].Value = value
			return nil
		}
	}
	c.pairs = append(c.pairs, Param{name, value})
	return nil
}

func (c *Cookie) Get(name string) (string, bool) {
	for _, p := range c.pairs {
		if p.Key == name {
			return p.Value, true
		}
	}
	return "", false
}

func (c *Cookie) Pairs() []Param { return append([]Param(nil), c.pairs...) }
func (c *Cookie) Len() int       { return len(c.pairs) }

func (c *Cookie) FieldName() string { return "Cookie" }

func (c *Cookie) FieldValue() string {
	parts := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		v := p.Value
		if !c.RawValues {
			v = url.QueryEscape(v)
		}
		parts[i] = p.Key + "=" + v
	}
	return strings.Join(parts, "; ")
}

func (c *Cookie) String() string { return "Cookie: " + c.FieldValue() }
