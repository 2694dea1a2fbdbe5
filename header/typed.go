package header

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// ContentType is a media type with its parameters, e.g.
// "text/html; charset=UTF-8".
type ContentType struct {
	mediaType string
	params    []Param
}

func NewContentType(mediaType string, params ...Param) (*ContentType, error) {
	if !mediaRangeRe.MatchString(mediaType) || strings.Contains(mediaType, "*") {
		return nil, errs.Configf("invalid media type %q", mediaType)
	}
	ct := &ContentType{mediaType: strings.ToLower(mediaType)}
	for _, p := range params {
		if err := ct.SetParam(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	return ct, nil
}

func ParseContentType(line string) (*ContentType, error) {
	value, err := splitNamed("Content-Type", line)
	if err != nil {
		return nil, err
	}
	parts := splitQuoted(value, ';')
	var params []Param
	for _, p := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
		if k = strings.TrimSpace(k); k != "" {
			params = append(params, Param{strings.ToLower(k), strings.TrimSpace(v)})
		}
	}
	return NewContentType(strings.TrimSpace(parts[0]), params...)
}

func (c *ContentType) MediaType() string { return c.mediaType }

func (c *ContentType) SetParam(key, value string) error {
	if !IsValidName(key) || !IsValid(value) || strings.ContainsAny(value, "\r\n;") && !isQuoted(value) {
		return errs.Configf("invalid Content-Type parameter %q", key)
	}
	key = strings.ToLower(key)
	for i := range c.params {
		if c.params[i].Key == key {
			c.params[i].Value = value
			return nil
		}
	}
	c.params = append(c.params, Param{key, value})
	return nil
}

func (c *ContentType) Param(key string) string {
	key = strings.ToLower(key)
	for _, p := range c.params {
		if p.Key == key {
			return strings.Trim(p.Value, `"`)
		}
	}
	return ""
}

func (c *ContentType) Charset() string { return c.Param("charset") }

// Match reports whether the media type satisfies ranges such as
// "text/*" or "application/json".
func (c *ContentType) Match(ranges ...string) bool {
	for _, r := range ranges {
		it := &WeightedItem{Value: strings.ToLower(strings.TrimSpace(r)), Quality: 1}
		if it.matches(c.mediaType) {
			return true
		}
	}
	return false
}

func (c *ContentType) FieldName() string { return "Content-Type" }

func (c *ContentType) FieldValue() string {
	var b strings.Builder
	b.WriteString(c.mediaType)
	for _, p := range c.params {
		b.WriteString("; " + p.Key + "=" + p.Value)
	}
	return b.String()
}

func (c *ContentType) String() string { return "Content-Type: " + c.FieldValue() }

// Int is the shape of fields carrying a non-negative integer: Age,
// Content-Length and Max-Forwards.
type Int struct {
	name string
	n    int64
}

func NewInt(name string, n int64) (*Int, error) {
	if n < 0 {
		return nil, errs.Configf("%s must be a non-negative integer, got %d", name, n)
	}
	return &Int{name, n}, nil
}

func intParser(name string) func(string) (*Int, error) {
	return func(line string) (*Int, error) {
		value, err := splitNamed(name, line)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return nil, errs.Configf("%s must be a non-negative integer, got %q", name, value)
		}
		return &Int{name, n}, nil
	}
}

func ParseAge(line string) (*Int, error)           { return intParser("Age")(line) }
func ParseContentLength(line string) (*Int, error) { return intParser("Content-Length")(line) }

func (i *Int) Value() int64       { return i.n }
func (i *Int) FieldName() string  { return i.name }
func (i *Int) FieldValue() string { return strconv.FormatInt(i.n, 10) }
func (i *Int) String() string     { return i.name + ": " + i.FieldValue() }

// Date is the shape of date valued fields. Retry-After may instead hold a
// delay in seconds.
type Date struct {
	name  string
	t     time.Time
	delay int64
	delta bool
}

func NewDate(name string, t time.Time) *Date { return &Date{name: name, t: t.UTC()} }

// NewRetryAfterDelay builds "Retry-After: <seconds>".
func NewRetryAfterDelay(seconds int64) *Date {
	return &Date{name: "Retry-After", delay: seconds, delta: true}
}

func dateParser(name string) func(string) (*Date, error) {
	return func(line string) (*Date, error) {
		value, err := splitNamed(name, line)
		if err != nil {
			return nil, err
		}
		if name == "Retry-After" {
			if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
				return NewRetryAfterDelay(n), nil
			}
		}
		t, err := http.ParseTime(value)
		if err != nil {
			return nil, errs.Configf("invalid date in %s header: %q", name, value)
		}
		return NewDate(name, t), nil
	}
}

func ParseDate(line string) (*Date, error) { return dateParser("Date")(line) }

// Time returns the date; for delay values it's the delay added to now.
func (d *Date) Time(now time.Time) time.Time {
	if d.delta {
		return now.Add(time.Duration(d.delay) * time.Second)
	}
	return d.t
}

// Delay returns the delay of a delta Retry-After.
func (d *Date) Delay() (time.Duration, bool) {
	return time.Duration(d.delay) * time.Second, d.delta
}

func (d *Date) FieldName() string { return d.name }

func (d *Date) FieldValue() string {
	if d.delta {
		return strconv.FormatInt(d.delay, 10)
	}
	return d.t.Format(http.TimeFormat)
}

func (d *Date) String() string { return d.name + ": " + d.FieldValue() }
