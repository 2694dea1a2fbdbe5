package header

import (
	"strings"
	"sync"
)

// Factory parses a complete "Name: value" line. most factories yield exactly
// one field; Set-Cookie may yield several from a comma separated line.
type Factory func(line string) ([]Field, error)

// One adapts a single-field parser into a Factory.
func One[F Field](parse func(line string) (F, error)) Factory {
	return func(line string) ([]Field, error) {
		f, err := parse(line)
		if err != nil {
			return nil, err
		}
		return []Field{f}, nil
	}
}

// Registry maps lower-cased field names to factories. it is built once and
// handed to the collections that parse with it; unknown names parse into
// *Generic so new headers never break parsing.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with every known field.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	for _, name := range opaqueFields {
		r.factories[strings.ToLower(name)] = named(name)
	}
	for _, name := range []string{"Accept", "Accept-Charset", "Accept-Encoding", "Accept-Language"} {
		r.factories[strings.ToLower(name)] = One(weightedParser(name))
	}
	for _, name := range []string{"Content-Security-Policy", "Content-Security-Policy-Report-Only", "Feature-Policy"} {
		r.factories[strings.ToLower(name)] = One(directivesParser(name))
	}
	for _, name := range []string{"Location", "Content-Location", "Referer"} {
		r.factories[strings.ToLower(name)] = One(uriParser(name))
	}
	for _, name := range []string{"Age", "Content-Length", "Max-Forwards"} {
		r.factories[strings.ToLower(name)] = One(intParser(name))
	}
	for _, name := range []string{"Date", "Expires", "Last-Modified", "If-Modified-Since", "If-Unmodified-Since", "Retry-After"} {
		r.factories[strings.ToLower(name)] = One(dateParser(name))
	}
	r.factories["content-type"] = One(ParseContentType)
	r.factories["cookie"] = One(ParseCookie)
	r.factories["set-cookie"] = func(line string) ([]Field, error) {
		cookies, err := ParseSetCookie(line)
		if err != nil {
			return nil, err
		}
		fields := make([]Field, len(cookies))
		for i, c := range cookies {
			fields[i] = c
		}
		return fields, nil
	}
	return r
}

// opaqueFields are known fields without structure of their own.
var opaqueFields = []string{
	"Accept-Ranges", "Allow", "Authentication-Info", "Authorization",
	"Cache-Control", "Connection", "Content-Disposition", "Content-Encoding",
	"Content-Language", "Content-MD5", "Content-Range", "Content-Transfer-Encoding",
	"Etag", "Expect", "From", "Host", "If-Match", "If-None-Match", "If-Range",
	"Keep-Alive", "Origin", "Pragma", "Proxy-Authenticate", "Proxy-Authorization",
	"Range", "Refresh", "Server", "TE", "Trailer", "Transfer-Encoding", "Upgrade",
	"User-Agent", "Vary", "Via", "Warning", "WWW-Authenticate",
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is used by collections created without WithRegistry.
// it is shared, so register custom fields on a registry of your own.
func DefaultRegistry() *Registry { return defaultRegistry }

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[normalizeName(name)] = f
	r.mu.Unlock()
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.factories, normalizeName(name))
	r.mu.Unlock()
}

// Lookup returns the factory registered for name, if any.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()
	return f, ok
}

// Parse turns a raw line into fields using the factory for its name.
func (r *Registry) Parse(line string) ([]Field, error) {
	name, _, err := SplitLine(line)
	if err != nil {
		return nil, err
	}
	if f, ok := r.Lookup(name); ok {
		return f(line)
	}
	g, err := ParseGeneric(line)
	if err != nil {
		return nil, err
	}
	return []Field{g}, nil
}

// New builds fields from a name and a value.
func (r *Registry) New(name, value string) ([]Field, error) {
	if err := AssertValidName(name); err != nil {
		return nil, err
	}
	return r.Parse(name + ": " + value)
}
