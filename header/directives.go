package header

import (
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

var cspDirectives = toSet(
	"base-uri", "child-src", "connect-src", "default-src", "font-src", "form-action",
	"frame-ancestors", "frame-src", "img-src", "manifest-src", "media-src", "object-src",
	"plugin-types", "prefetch-src", "require-sri-for", "report-to", "report-uri",
	"sandbox", "script-src", "script-src-attr", "script-src-elem", "style-src",
	"style-src-attr", "style-src-elem", "worker-src", "navigate-to", "trusted-types",
	"require-trusted-types-for", "block-all-mixed-content", "upgrade-insecure-requests",
	"disown-opener",
)

// directives that are complete without a source list
var cspBare = toSet("block-all-mixed-content", "upgrade-insecure-requests", "disown-opener", "sandbox")

var featurePolicyDirectives = toSet(
	"accelerometer", "ambient-light-sensor", "autoplay", "battery", "camera",
	"display-capture", "document-domain", "document-write", "encrypted-media",
	"execution-while-not-rendered", "execution-while-out-of-viewport", "fontsize",
	"fullscreen", "geolocation", "gyroscope", "layout-animations", "legacy-image-formats",
	"loading-frame-default-eager", "magnetometer", "microphone", "midi",
	"navigation-override", "notifications", "oversized-images", "payment",
	"picture-in-picture", "publickey-credentials", "push", "serial", "speaker",
	"sync-script", "sync-xhr", "unoptimized-images", "unoptimized-lossless-images",
	"unoptimized-lossy-images", "unsized-media", "usb", "vertical-scroll", "vibrate",
	"vr", "wake-lock", "xr", "xr-spatial-tracking",
)

func toSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Directives is the shape of Content-Security-Policy (and its Report-Only
// twin) and Feature-Policy: an ordered map of directive name to source list.
type Directives struct {
	name   string
	known  map[string]bool
	order  []string
	values map[string]string
}

func newDirectives(name string) *Directives {
	d := &Directives{name: name, values: map[string]string{}, known: cspDirectives}
	if name == "Feature-Policy" {
		d.known = featurePolicyDirectives
	}
	return d
}

func NewContentSecurityPolicy() *Directives { return newDirectives("Content-Security-Policy") }
func NewContentSecurityPolicyReportOnly() *Directives {
	return newDirectives("Content-Security-Policy-Report-Only")
}
func NewFeaturePolicy() *Directives { return newDirectives("Feature-Policy") }

func directivesParser(name string) func(string) (*Directives, error) {
	return func(line string) (*Directives, error) {
		value, err := splitNamed(name, line)
		if err != nil {
			return nil, err
		}
		d := newDirectives(name)
		for _, token := range strings.Split(value, ";") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			dn, dv, _ := strings.Cut(token, " ")
			dn = strings.ToLower(dn)
			if !IsValidName(dn) {
				return nil, errs.Configf("invalid %s directive %q", name, dn)
			}
			d.set(dn, strings.TrimSpace(dv))
		}
		return d, nil
	}
}

func ParseContentSecurityPolicy(line string) (*Directives, error) {
	return directivesParser("Content-Security-Policy")(line)
}

func ParseFeaturePolicy(line string) (*Directives, error) {
	return directivesParser("Feature-Policy")(line)
}

// SetDirective sets the source list of a known directive. an empty list
// renders as 'none' unless the directive stands on its own.
func (d *Directives) SetDirective(name string, sources ...string) error {
	name = strings.ToLower(name)
	if !d.known[name] {
		return errs.Configf("%s expects a valid directive name; received %q", d.name, name)
	}
	for _, s := range sources {
		if !IsValid(s) || strings.ContainsAny(s, ";,\r\n") {
			return errs.Configf("%s received an invalid source %q for %s", d.name, s, name)
		}
	}
	value := strings.Join(sources, " ")
	if value == "" && !(d.name != "Feature-Policy" && cspBare[name]) {
		value = "'none'"
	}
	d.set(name, value)
	return nil
}

func (d *Directives) set(name, value string) {
	if _, ok := d.values[name]; !ok {
		d.order = append(d.order, name)
	}
	d.values[name] = value
}

// Directive returns the source list of name.
func (d *Directives) Directive(name string) (string, bool) {
	v, ok := d.values[strings.ToLower(name)]
	return v, ok
}

// Names returns the directive names in declaration order.
func (d *Directives) Names() []string { return append([]string(nil), d.order...) }

func (d *Directives) FieldName() string { return d.name }

func (d *Directives) FieldValue() string {
	parts := make([]string, 0, len(d.order))
	for _, n := range d.order {
		if v := d.values[n]; v != "" {
			parts = append(parts, n+" "+v)
		} else {
			parts = append(parts, n)
		}
	}
	if d.name == "Feature-Policy" {
		return strings.Join(parts, "; ")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func (d *Directives) String() string { return d.name + ": " + d.FieldValue() }

// StringMultiple renders several policies of the same kind, one per line.
func (d *Directives) StringMultiple(others []Field) (string, error) {
	return stringMultiple(d, others, func(f Field) bool {
		_, ok := f.(*Directives)
		return ok
	})
}
