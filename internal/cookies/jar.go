// Package cookies keeps the cookies a client collected across requests.
package cookies

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
)

type key struct {
	domain, path, name string
}

type entry struct {
	cookie   *header.SetCookie
	domain   string // normalised, without leading dot
	path     string
	hostOnly bool
	seq      uint64
}

// Jar stores cookies keyed by (domain, path, name); a later cookie with
// the same key replaces the earlier one.
type Jar struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[key]*entry
	seq     uint64
}

type Option func(*Jar)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(j *Jar) { j.now = now }
}

func New(opts ...Option) *Jar {
	j := &Jar{now: time.Now, entries: map[key]*entry{}}
	for _, o := range opts {
		o(j)
	}
	return j
}

// FromResponse builds a jar holding the cookies resp sets for ref.
func FromResponse(resp *model.Response, ref *url.URL, opts ...Option) *Jar {
	j := New(opts...)
	j.AddCookiesFromResponse(resp, ref)
	return j
}

func canonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if a, err := idna.Lookup.ToASCII(host); err == nil {
		return a
	}
	return host
}

func isIP(host string) bool { return net.ParseIP(host) != nil }

// defaultPath is the directory of the request path, RFC 6265 section 5.1.4.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func domainMatch(e *entry, host string) bool {
	if e.hostOnly || isIP(host) {
		return host == e.domain
	}
	return host == e.domain || strings.HasSuffix(host, "."+e.domain)
}

func pathMatch(cookiePath, reqPath string) bool {
	if reqPath == "" {
		reqPath = "/"
	}
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

// AddCookie stores c as received from ref. cookies for a domain the
// request host does not belong to, or for a public suffix, are refused.
// an expired cookie deletes any stored cookie with the same key.
func (j *Jar) AddCookie(c *header.SetCookie, ref *url.URL) error {
	if c == nil {
		return errs.Config("cookie must not be nil")
	}
	if ref == nil || ref.Hostname() == "" {
		return errs.Configf("a request URI with a host is required to store cookie %q", c.Name)
	}
	host := canonicalHost(ref.Hostname())
	e := &entry{cookie: c, domain: host, hostOnly: true, path: c.Path}
	if d := strings.TrimPrefix(strings.ToLower(c.Domain), "."); d != "" {
		d = canonicalHost(d)
		if d != host {
			if isIP(host) || !strings.HasSuffix(host, "."+d) {
				return errs.Configf("cookie %q domain %q does not match host %q", c.Name, c.Domain, host)
			}
			if ps, _ := publicsuffix.PublicSuffix(d); ps == d {
				return errs.Configf("cookie %q domain %q is a public suffix", c.Name, c.Domain)
			}
		}
		e.domain, e.hostOnly = d, false
	}
	if e.path == "" || e.path[0] != '/' {
		e.path = defaultPath(ref.EscapedPath())
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	j.sweep(now)
	k := key{e.domain, e.path, c.Name}
	if c.IsExpired(now) {
		delete(j.entries, k)
		return nil
	}
	if old, ok := j.entries[k]; ok {
		e.seq = old.seq
	} else {
		j.seq++
		e.seq = j.seq
	}
	j.entries[k] = e
	return nil
}

// AddCookiesFromResponse stores every Set-Cookie field of resp and returns
// how many were accepted.
func (j *Jar) AddCookiesFromResponse(resp *model.Response, ref *url.URL) int {
	if resp == nil || resp.Headers == nil {
		return 0
	}
	n := 0
	for _, f := range resp.Headers.Get("Set-Cookie") {
		if c, ok := f.(*header.SetCookie); ok && j.AddCookie(c, ref) == nil {
			n++
		}
	}
	return n
}

func (j *Jar) sweep(now time.Time) {
	for k, e := range j.entries {
		if e.cookie.IsExpired(now) {
			delete(j.entries, k)
		}
	}
}

type matchOptions struct {
	secure   *bool
	sessions bool
	now      time.Time
}

type MatchOption func(*matchOptions)

// OnlySecure overrides the scheme based decision on secure cookies.
func OnlySecure(secure bool) MatchOption {
	return func(o *matchOptions) { o.secure = &secure }
}

// MatchSessionCookies controls whether session cookies are returned.
func MatchSessionCookies(match bool) MatchOption {
	return func(o *matchOptions) { o.sessions = match }
}

// At evaluates expiry at t instead of the jar clock.
func At(t time.Time) MatchOption {
	return func(o *matchOptions) { o.now = t }
}

// MatchingCookies returns the live cookies to send to u, longest path
// first then in insertion order. the jar is not modified.
func (j *Jar) MatchingCookies(u *url.URL, opts ...MatchOption) []*header.SetCookie {
	if u == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	o := matchOptions{sessions: true, now: j.now()}
	for _, opt := range opts {
		opt(&o)
	}
	secure := strings.EqualFold(u.Scheme, "https")
	if o.secure != nil {
		secure = *o.secure
	}
	host := canonicalHost(u.Hostname())
	var matched []*entry
	for _, e := range j.entries {
		switch {
		case e.cookie.IsExpired(o.now),
			!o.sessions && e.cookie.IsSession(),
			e.cookie.Secure && !secure,
			!domainMatch(e, host),
			!pathMatch(e.path, u.EscapedPath()):
			continue
		}
		matched = append(matched, e)
	}
	sortEntries(matched)
	out := make([]*header.SetCookie, len(matched))
	for i, e := range matched {
		out[i] = e.cookie
	}
	return out
}

func sortEntries(es []*entry) {
	sort.Slice(es, func(a, b int) bool {
		if len(es[a].path) != len(es[b].path) {
			return len(es[a].path) > len(es[b].path)
		}
		return es[a].seq < es[b].seq
	})
}

// Cookie returns the first cookie named name that would be sent to u.
func (j *Jar) Cookie(u *url.URL, name string) (*header.SetCookie, bool) {
	for _, c := range j.MatchingCookies(u) {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Header renders the Cookie field for u, nil when nothing matches.
func (j *Jar) Header(u *url.URL, encode bool) *header.Cookie {
	cs := j.MatchingCookies(u)
	if len(cs) == 0 {
		return nil
	}
	h := header.NewCookie()
	h.RawValues = !encode
	for _, c := range cs {
		if _, dup := h.Get(c.Name); dup {
			continue // the more specific path already won
		}
		// values were validated on the way into the jar
		_ = h.Add(c.Name, c.Value)
	}
	return h
}

// All returns every stored cookie in insertion order, expired ones included.
func (j *Jar) All() []*header.SetCookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	es := make([]*entry, 0, len(j.entries))
	for _, e := range j.entries {
		es = append(es, e)
	}
	sort.Slice(es, func(a, b int) bool { return es[a].seq < es[b].seq })
	out := make([]*header.SetCookie, len(es))
	for i, e := range es {
		out[i] = e.cookie
	}
	return out
}

func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = map[key]*entry{}
}

// Purge drops expired cookies, and session cookies too when sessions is
// set, the way a browser does on exit.
func (j *Jar) Purge(sessions bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sweep(j.now())
	if !sessions {
		return
	}
	for k, e := range j.entries {
		if e.cookie.IsSession() {
			delete(j.entries, k)
		}
	}
}
