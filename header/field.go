// package header models HTTP header fields: a shared Field capability, a few
// structured shapes (quality weighted lists, directive maps, URIs, cookies,
// dates, integers), a Registry deciding which shape a field name parses into
// and the ordered Headers collection.
//
// every constructor, parser and setter runs values through [AssertValid], so
// no field ever holds a CR or LF that could split the message.
package header

import (
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// Field is implemented by every header shape.
type Field interface {
	FieldName() string
	FieldValue() string
	// String renders the field as "Name: value", without line terminator.
	String() string
}

// Multiple is implemented by fields which legally repeat on several lines,
// such as Set-Cookie. StringMultiple renders the receiver followed by others,
// one CRLF terminated line each. it fails if others holds a different shape.
type Multiple interface {
	Field
	StringMultiple(others []Field) (string, error)
}

// SplitLine cuts "Name: value" on the first colon, trimming optional
// whitespace around the value. name and value are both validated.
func SplitLine(line string) (name, value string, err error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", errs.Configf("header line must have the form 'Name: value', got %q", line)
	}
	if err := AssertValidName(name); err != nil {
		return "", "", err
	}
	value = strings.Trim(value, " \t")
	if err := AssertValid(value); err != nil {
		return "", "", err
	}
	return name, value, nil
}

// normalizeName lowers name and maps the separators people tend to use
// instead of '-' so "content_type" and "Content.Type" find Content-Type.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '.':
			return '-'
		}
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, name)
}

// splitNamed splits line and makes sure it names the canonical field.
func splitNamed(canonical, line string) (string, error) {
	name, value, err := SplitLine(line)
	if err != nil {
		return "", err
	}
	if normalizeName(name) != strings.ToLower(canonical) {
		return "", errs.Configf("invalid header line for %s string: %q", canonical, name)
	}
	return value, nil
}

// Generic is an opaque field, the fallback for every name without a more
// specific shape. the name keeps the case it was created with.
type Generic struct {
	name, value string
}

func NewGeneric(name, value string) (*Generic, error) {
	if err := AssertValidName(name); err != nil {
		return nil, err
	}
	g := &Generic{name: name}
	return g, g.SetValue(value)
}

func ParseGeneric(line string) (*Generic, error) {
	name, value, err := SplitLine(line)
	if err != nil {
		return nil, err
	}
	return &Generic{name, value}, nil
}

func (g *Generic) FieldName() string  { return g.name }
func (g *Generic) FieldValue() string { return g.value }
func (g *Generic) String() string     { return g.name + ": " + g.value }

func (g *Generic) SetValue(v string) error {
	v = strings.Trim(v, " \t")
	if err := AssertValid(v); err != nil {
		return err
	}
	g.value = v
	return nil
}

// named builds the factory for an opaque field with a canonical name, e.g.
// "Cache-Control". the line must name that field.
func named(canonical string) Factory {
	return func(line string) ([]Field, error) {
		value, err := splitNamed(canonical, line)
		if err != nil {
			return nil, err
		}
		return []Field{&Generic{canonical, value}}, nil
	}
}

// stringMultiple is the shared body of Multiple implementations. same reports
// whether another field has the receiver's shape.
func stringMultiple(self Field, others []Field, same func(Field) bool) (string, error) {
	var b strings.Builder
	b.WriteString(self.String())
	b.WriteString("\r\n")
	for _, o := range others {
		if !same(o) || !strings.EqualFold(o.FieldName(), self.FieldName()) {
			return "", errs.Configf("cannot render %T together with %T as multiple %s headers", o, self, self.FieldName())
		}
		b.WriteString(o.String())
		b.WriteString("\r\n")
	}
	return b.String(), nil
}
