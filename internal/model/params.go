package model

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params is an ordered set of form or query parameters. values may be
// scalars, slices or string keyed maps, which flatten into "key[0]" /
// "key[sub]" names on encoding.
type Params struct {
	keys []string
	vals map[string]interface{}
}

func NewParams() *Params {
	return &Params{vals: map[string]interface{}{}}
}

// Set stores v under key; a nil v removes key.
func (p *Params) Set(key string, v interface{}) {
	if v == nil {
		p.Del(key)
		return
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = v
}

func (p *Params) Del(key string) {
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Params) Get(key string) (interface{}, bool) {
	v, ok := p.vals[key]
	return v, ok
}

func (p *Params) Len() int       { return len(p.keys) }
func (p *Params) Keys() []string { return append([]string(nil), p.keys...) }

func (p *Params) Reset() {
	p.keys = nil
	p.vals = map[string]interface{}{}
}

func (p *Params) Clone() *Params {
	c := NewParams()
	for _, k := range p.keys {
		c.Set(k, p.vals[k])
	}
	return c
}

// Pair is one flattened parameter.
type Pair struct {
	Name, Value string
}

// Pairs flattens the parameters. list elements are named "key[0]" when
// indexed is set and "key[]" otherwise; map entries are "key[sub]" in
// sorted order.
func (p *Params) Pairs(indexed bool) []Pair {
	var out []Pair
	for _, k := range p.keys {
		out = flatten(out, k, p.vals[k], indexed)
	}
	return out
}

func flatten(out []Pair, name string, v interface{}, indexed bool) []Pair {
	sub := func(i int) string {
		if indexed {
			return name + "[" + strconv.Itoa(i) + "]"
		}
		return name + "[]"
	}
	switch t := v.(type) {
	case nil:
		return out
	case []string:
		for i, s := range t {
			out = append(out, Pair{sub(i), s})
		}
	case []interface{}:
		for i, s := range t {
			out = flatten(out, sub(i), s, indexed)
		}
	case map[string]string:
		for _, k := range sortedKeys(t) {
			out = append(out, Pair{name + "[" + k + "]", t[k]})
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = flatten(out, name+"["+k+"]", t[k], indexed)
		}
	case url.Values:
		return flatten(out, name, map[string][]string(t), indexed)
	case map[string][]string:
		for _, k := range sortedKeys(t) {
			out = flatten(out, name+"["+k+"]", t[k], indexed)
		}
	default:
		out = append(out, Pair{name, scalar(v)})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Encode renders the parameters as an urlencoded query joined by sep.
// spaces become '+' unless rfc3986 is set.
func (p *Params) Encode(sep string, rfc3986 bool) string {
	if sep == "" {
		sep = "&"
	}
	pairs := p.Pairs(true)
	parts := make([]string, len(pairs))
	for i, pr := range pairs {
		parts[i] = url.QueryEscape(pr.Name) + "=" + url.QueryEscape(pr.Value)
	}
	s := strings.Join(parts, sep)
	if rfc3986 {
		s = strings.ReplaceAll(s, "+", "%20")
	}
	return s
}

// ParseParams reads an urlencoded string keeping the order of first
// appearance. repeated keys keep their last value.
func ParseParams(raw string) *Params {
	p := NewParams()
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		k, v, _ := strings.Cut(part, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		if k != "" {
			p.Set(k, v)
		}
	}
	return p
}
