package header

import (
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// Headers is an ordered multiset of fields with case-insensitive lookup.
// duplicates are preserved in insertion order.
type Headers struct {
	reg    *Registry
	fields []Field
}

type Option func(*Headers)

// WithRegistry selects the registry used to parse lines into fields.
func WithRegistry(r *Registry) Option {
	return func(h *Headers) {
		if r != nil {
			h.reg = r
		}
	}
}

func NewHeaders(opts ...Option) *Headers {
	h := &Headers{reg: defaultRegistry}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ParseHeaders parses a raw header block. lines are separated by CRLF (a bare
// LF is tolerated), continuation lines starting with SP or HT are joined to
// the previous line with a single space and the block ends at the first empty
// line; anything after it is an error.
func ParseHeaders(raw string, opts ...Option) (*Headers, error) {
	h := NewHeaders(opts...)
	var current string
	flush := func() error {
		if current == "" {
			return nil
		}
		err := h.AddLine(current)
		current = ""
		return err
	}
	ended := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if ended {
			if line != "" {
				return nil, errs.Parse("header block", errs.Configf("content after the end of the header block: %q", line))
			}
			continue
		}
		switch {
		case line == "":
			ended = true
		case line[0] == ' ' || line[0] == '\t':
			if current == "" {
				return nil, errs.Parse("header block", errs.Configf("continuation line without a field: %q", line))
			}
			current += " " + strings.Trim(line, " \t")
			continue
		}
		if err := flush(); err != nil {
			return nil, errs.Parse("header block", err)
		}
		if !ended {
			current = line
		}
	}
	if err := flush(); err != nil {
		return nil, errs.Parse("header block", err)
	}
	return h, nil
}

func (h *Headers) Registry() *Registry { return h.reg }

// Add appends fields as they are.
func (h *Headers) Add(fields ...Field) {
	for _, f := range fields {
		if f != nil {
			h.fields = append(h.fields, f)
		}
	}
}

// AddLine parses "Name: value" with the registry and appends the result.
// when a structured shape refuses an otherwise well formed line, the field
// is kept as *Generic so odd server values don't break whole messages.
func (h *Headers) AddLine(line string) error {
	name, value, err := SplitLine(line)
	if err != nil {
		return err
	}
	fields, err := h.reg.Parse(line)
	if err != nil {
		fields = []Field{&Generic{name, value}}
	}
	h.Add(fields...)
	return nil
}

// AddPair appends a field built from name and value.
func (h *Headers) AddPair(name, value string) error {
	if err := AssertValidName(name); err != nil {
		return err
	}
	return h.AddLine(name + ": " + value)
}

// Set replaces every field named name with a new one.
func (h *Headers) Set(name, value string) error {
	if err := AssertValidName(name); err != nil {
		return err
	}
	fields, err := h.reg.New(name, value)
	if err != nil {
		return err
	}
	h.Remove(name)
	h.Add(fields...)
	return nil
}

// Replace swaps every field named like f for f.
func (h *Headers) Replace(f Field) {
	h.Remove(f.FieldName())
	h.Add(f)
}

// Get returns every field named name, in order.
func (h *Headers) Get(name string) []Field {
	var out []Field
	for _, f := range h.fields {
		if strings.EqualFold(f.FieldName(), name) {
			out = append(out, f)
		}
	}
	return out
}

// First returns the first field named name, or nil.
func (h *Headers) First(name string) Field {
	for _, f := range h.fields {
		if strings.EqualFold(f.FieldName(), name) {
			return f
		}
	}
	return nil
}

// Value returns the value of the first field named name.
func (h *Headers) Value(name string) string {
	if f := h.First(name); f != nil {
		return f.FieldValue()
	}
	return ""
}

func (h *Headers) Has(name string) bool { return h.First(name) != nil }

// Remove drops every field named name and reports whether any existed.
func (h *Headers) Remove(name string) bool {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.FieldName(), name) {
			kept = append(kept, f)
		}
	}
	removed := len(kept) != len(h.fields)
	for i := len(kept); i < len(h.fields); i++ {
		h.fields[i] = nil
	}
	h.fields = kept
	return removed
}

// RemoveField drops exactly f.
func (h *Headers) RemoveField(f Field) bool {
	for i := range h.fields {
		if h.fields[i] == f {
			h.fields = append(h.fields[:i], h.fields[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Headers) Len() int { return len(h.fields) }

// Fields returns the fields in insertion order.
func (h *Headers) Fields() []Field { return append([]Field(nil), h.fields...) }

// Clone copies the collection. fields are shared, which is fine as long as
// they're treated as immutable once added.
func (h *Headers) Clone() *Headers {
	return &Headers{reg: h.reg, fields: h.Fields()}
}

// Map flattens the collection into name -> values, keyed by the first
// spelling of each name.
func (h *Headers) Map() map[string][]string {
	m := map[string][]string{}
	keys := map[string]string{}
	for _, f := range h.fields {
		lk := strings.ToLower(f.FieldName())
		k, ok := keys[lk]
		if !ok {
			k = f.FieldName()
			keys[lk] = k
		}
		m[k] = append(m[k], f.FieldValue())
	}
	return m
}

// String renders every field followed by CRLF, then the blank line closing
// the header section. repeatable fields are rendered as one block at the
// position of their first occurrence.
func (h *Headers) String() string {
	var b strings.Builder
	done := map[string]bool{}
	for _, f := range h.fields {
		lk := strings.ToLower(f.FieldName())
		if done[lk] {
			continue
		}
		if m, ok := f.(Multiple); ok {
			done[lk] = true
			if s, err := m.StringMultiple(h.Get(lk)[1:]); err == nil {
				b.WriteString(s)
				continue
			}
			for _, o := range h.Get(lk) {
				b.WriteString(o.String())
				b.WriteString("\r\n")
			}
			continue
		}
		b.WriteString(f.String())
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}
