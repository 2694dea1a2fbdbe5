package header

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

type Param struct {
	Key, Value string
}

// WeightedItem is one entry of a quality weighted list, e.g. "da;q=0.8".
type WeightedItem struct {
	Value   string
	Quality float64
	Params  []Param
}

// PrimaryTag and SubTag split language ranges and media types, so
// "en-gb" gives "en" and "gb" while "text/html" gives "text" and "html".
func (w *WeightedItem) PrimaryTag() string {
	p, _, _ := strings.Cut(w.Value, w.sep())
	return p
}

func (w *WeightedItem) SubTag() string {
	_, s, _ := strings.Cut(w.Value, w.sep())
	return s
}

func (w *WeightedItem) sep() string {
	if strings.Contains(w.Value, "/") {
		return "/"
	}
	return "-"
}

func (w *WeightedItem) String() string {
	var b strings.Builder
	b.WriteString(w.Value)
	for _, p := range w.Params {
		b.WriteByte(';')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	if w.Quality != 1 {
		b.WriteString(";q=")
		b.WriteString(strconv.FormatFloat(w.Quality, 'f', -1, 64))
	}
	return b.String()
}

// matches reports whether the entry accepts v.
func (w *WeightedItem) matches(v string) bool {
	if w.Value == "*" || w.Value == "*/*" || strings.EqualFold(w.Value, v) {
		return true
	}
	if strings.HasSuffix(w.Value, "/*") {
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(strings.TrimSuffix(w.Value, "*")))
	}
	if strings.HasSuffix(w.Value, "-*") {
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(strings.TrimSuffix(w.Value, "*")))
	}
	// language range without a subtag covers its subtags
	if !strings.Contains(w.Value, "/") && !strings.Contains(w.Value, "-") {
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(w.Value)+"-")
	}
	return false
}

var (
	mediaRangeRe = regexp.MustCompile(`^(\*|[a-zA-Z0-9!#$&^_.+-]+)/(\*|[a-zA-Z0-9!#$&^_.+-]+)$`)
	tokenRangeRe = regexp.MustCompile(`^(\*|[a-zA-Z0-9!#$&^_.+-]+(-\*)?)$`)
)

// Weighted is the shape of Accept, Accept-Charset, Accept-Encoding and
// Accept-Language: a list of values with optional q weights.
type Weighted struct {
	name  string
	items []*WeightedItem
}

func NewAccept() *Weighted         { return &Weighted{name: "Accept"} }
func NewAcceptCharset() *Weighted  { return &Weighted{name: "Accept-Charset"} }
func NewAcceptEncoding() *Weighted { return &Weighted{name: "Accept-Encoding"} }
func NewAcceptLanguage() *Weighted { return &Weighted{name: "Accept-Language"} }

func weightedParser(name string) func(string) (*Weighted, error) {
	return func(line string) (*Weighted, error) {
		value, err := splitNamed(name, line)
		if err != nil {
			return nil, err
		}
		w := &Weighted{name: name}
		for _, entry := range splitQuoted(value, ',') {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := splitQuoted(entry, ';')
			q := 1.0
			var params []Param
			for _, p := range parts[1:] {
				k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
				k, v = strings.TrimSpace(k), strings.TrimSpace(v)
				if k == "q" || k == "Q" {
					q, err = strconv.ParseFloat(v, 64)
					if err != nil || q < 0 || q > 1 {
						return nil, errs.Configf("invalid quality %q in %s header", v, name)
					}
					continue
				}
				params = append(params, Param{k, v})
			}
			if err := w.add(strings.TrimSpace(parts[0]), q, params); err != nil {
				return nil, err
			}
		}
		return w, nil
	}
}

func ParseAccept(line string) (*Weighted, error) {
	return weightedParser("Accept")(line)
}

func ParseAcceptCharset(line string) (*Weighted, error) {
	return weightedParser("Accept-Charset")(line)
}

func ParseAcceptEncoding(line string) (*Weighted, error) {
	return weightedParser("Accept-Encoding")(line)
}

func ParseAcceptLanguage(line string) (*Weighted, error) {
	return weightedParser("Accept-Language")(line)
}

// Add appends a value with quality q (0 to 1; 1 is rendered without q).
func (w *Weighted) Add(value string, q float64, params ...Param) error {
	return w.add(value, q, params)
}

func (w *Weighted) add(value string, q float64, params []Param) error {
	re := tokenRangeRe
	if w.name == "Accept" {
		re = mediaRangeRe
	}
	if !re.MatchString(value) {
		return errs.Configf("%s expects a valid type; received %q", w.name, value)
	}
	if q < 0 || q > 1 {
		return errs.Configf("%s expects a quality between 0 and 1; received %v", w.name, q)
	}
	for _, p := range params {
		if !IsValidName(p.Key) || !IsValid(p.Value) || strings.ContainsAny(p.Value, ",;") && !isQuoted(p.Value) {
			return errs.Configf("%s received an invalid parameter %q", w.name, p.Key)
		}
	}
	w.items = append(w.items, &WeightedItem{Value: value, Quality: q, Params: params})
	return nil
}

func (w *Weighted) FieldName() string { return w.name }

func (w *Weighted) FieldValue() string {
	parts := make([]string, len(w.items))
	for i, it := range w.items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

func (w *Weighted) String() string { return w.name + ": " + w.FieldValue() }

// Items returns the entries in declaration order.
func (w *Weighted) Items() []*WeightedItem {
	return append([]*WeightedItem(nil), w.items...)
}

// Prioritized orders entries by descending quality, ties kept in
// declaration order.
func (w *Weighted) Prioritized() []*WeightedItem {
	items := w.Items()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Quality > items[j].Quality })
	return items
}

// Match returns the highest priority entry accepting v, or nil.
// entries weighted q=0 refuse v.
func (w *Weighted) Match(v string) *WeightedItem {
	for _, it := range w.Prioritized() {
		if it.matches(v) {
			if it.Quality == 0 {
				return nil
			}
			return it
		}
	}
	return nil
}

func (w *Weighted) Has(v string) bool { return w.Match(v) != nil }

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// splitQuoted splits s on sep outside of double quotes.
func splitQuoted(s string, sep byte) []string {
	var parts []string
	inQuote, start := false, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
