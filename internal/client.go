package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/adapter"
	"github.com/frankli0324/go-http-client/internal/cookies"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
	"github.com/frankli0324/go-http-client/internal/obs"
)

type Handler = func(ctx context.Context, req *model.PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

type Option func(*Client)

func WithLogger(l obs.Logger) Option {
	return func(c *Client) { c.log = obs.OrNop(l) }
}

// WithAdapter installs a ready made adapter instead of the one named by
// the "adapter" option.
func WithAdapter(a adapter.Adapter) Option {
	return func(c *Client) { c.adapter, c.adapterName = a, "" }
}

func WithJar(j *cookies.Jar) Option {
	return func(c *Client) { c.jar = j }
}

// WithRegistry sets the header registry used for request headers and for
// parsing responses.
func WithRegistry(r *header.Registry) Option {
	return func(c *Client) { c.reg = r }
}

func WithOptions(o adapter.Options) Option {
	return func(c *Client) { c.opts = o }
}

// Client accumulates a request, sends it and chases redirects. a Client is
// not safe for concurrent use; it owns one request/response slot, its
// cookies and its adapter connection.
type Client struct {
	opts        adapter.Options
	log         obs.Logger
	reg         *header.Registry
	adapter     adapter.Adapter
	adapterName string // name the adapter was built from, "" when injected
	middlewares []Middleware

	req      *model.Request
	encType  string
	boundary string

	cred     *credentials
	authHost string
	digest   *digestState

	jar     *cookies.Jar
	cookies []*header.SetCookie // sent to whatever host is requested

	stream     bool
	streamPath string
	out        *os.File

	resp            *model.Response
	lastRawRequest  string
	lastRawResponse string
	redirects       int
}

func New(uri string, opts ...Option) (*Client, error) {
	c := &Client{
		opts: adapter.DefaultOptions(),
		log:  obs.NopLogger{},
		reg:  header.DefaultRegistry(),
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.opts.Validate(); err != nil {
		return nil, err
	}
	if c.jar == nil {
		c.jar = cookies.New()
	}
	c.req = c.newRequest()
	if uri != "" {
		if err := c.SetURI(uri); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) newRequest() *model.Request {
	r, _ := model.NewRequest("", "")
	r.Headers = header.NewHeaders(header.WithRegistry(c.reg))
	return r
}

// Use appends mws to the chain wrapping every transmission, redirect hops
// included. the first one added is the outermost.
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

func (c *Client) Options() adapter.Options { return c.opts }

// SetOptions replaces the configuration. switching to another adapter name
// drops the adapter built for the previous one.
func (c *Client) SetOptions(o adapter.Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if c.adapter != nil && c.adapterName != "" && !strings.EqualFold(c.adapterName, o.Adapter) {
		c.adapter.Close()
		c.adapter, c.adapterName = nil, ""
	}
	c.opts = o
	if c.adapter != nil {
		return c.adapter.SetOptions(o)
	}
	return nil
}

// SetOptionsMap merges a loosely typed config map over the current
// options.
func (c *Client) SetOptionsMap(v interface{}) error {
	o, err := c.opts.Merge(v)
	if err != nil {
		return err
	}
	return c.SetOptions(o)
}

func (c *Client) SetAdapter(a adapter.Adapter) error {
	if a == nil {
		return errs.Config("adapter must not be nil")
	}
	if err := a.SetOptions(c.opts); err != nil {
		return err
	}
	if c.adapter != nil && c.adapter != a {
		c.adapter.Close()
	}
	c.adapter, c.adapterName = a, ""
	return nil
}

// Adapter returns the current adapter, building the configured one on
// first use.
func (c *Client) Adapter() (adapter.Adapter, error) {
	if c.adapter != nil {
		return c.adapter, nil
	}
	a, err := adapter.New(c.opts.Adapter, c.log)
	if err != nil {
		return nil, err
	}
	if err := a.SetOptions(c.opts); err != nil {
		return nil, err
	}
	c.adapter, c.adapterName = a, c.opts.Adapter
	return a, nil
}

// Close releases the adapter connection, if any.
func (c *Client) Close() error {
	if c.adapter == nil {
		return nil
	}
	return c.adapter.Close()
}

// SetURI sets the target. credentials in the userinfo part turn into basic
// authentication, and the new host becomes the one credentials are
// scoped to.
func (c *Client) SetURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errs.Configf("invalid URI passed: %v", err)
	}
	return c.setURL(u)
}

func (c *Client) setURL(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
	default:
		return errs.Configf("unsupported URI scheme %q", u.Scheme)
	}
	userinfo := u.User
	u.User = nil
	c.req.URI = u
	if userinfo != nil && userinfo.Username() != "" {
		pass, _ := userinfo.Password()
		return c.SetAuth(userinfo.Username(), pass, AuthBasic)
	}
	if c.cred != nil {
		c.authHost = u.Hostname()
	}
	return nil
}

func (c *Client) URI() *url.URL {
	if c.req.URI == nil {
		return nil
	}
	u := *c.req.URI
	return &u
}

// SetMethod validates and sets the method. methods that usually carry a
// form default to urlencoded bodies unless an encoding was chosen.
func (c *Client) SetMethod(m string) error {
	if err := c.req.SetMethod(m); err != nil {
		return err
	}
	switch c.req.Method {
	case model.MethodPost, model.MethodPut, model.MethodPatch, model.MethodDelete, model.MethodOptions:
		if c.encType == "" {
			c.encType = model.EncURLEncoded
		}
	}
	return nil
}

func (c *Client) Method() string { return c.req.Method }

// SetHeaders sets headers from a map[string]string, map[string][]string,
// http.Header, []header.Field or *header.Headers. map keys are applied in
// sorted order.
func (c *Client) SetHeaders(v interface{}) error {
	h := c.req.Headers
	switch t := v.(type) {
	case map[string]string:
		for _, k := range sortedKeys(t) {
			if err := h.Set(k, t[k]); err != nil {
				return err
			}
		}
	case map[string][]string:
		return c.setMulti(t)
	case http.Header:
		return c.setMulti(t)
	case []header.Field:
		for _, f := range t {
			if err := header.AssertValid(f.FieldValue()); err != nil {
				return err
			}
		}
		for _, f := range t {
			h.Remove(f.FieldName())
		}
		h.Add(t...)
	case *header.Headers:
		for _, f := range t.Fields() {
			h.Remove(f.FieldName())
		}
		h.Add(t.Fields()...)
	default:
		return errs.Configf("unsupported headers type %T", v)
	}
	return nil
}

func (c *Client) setMulti(m map[string][]string) error {
	for _, k := range sortedKeys(m) {
		c.req.Headers.Remove(k)
		for _, v := range m[k] {
			if err := c.req.Headers.AddPair(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Header returns the value of the first request header named name.
func (c *Client) Header(name string) string { return c.req.Headers.Value(name) }

// SetParameterGet sets query parameters; a nil value unsets the key.
func (c *Client) SetParameterGet(params map[string]interface{}) {
	for _, k := range sortedKeys(params) {
		c.req.Query.Set(k, params[k])
	}
}

// SetParameterPost sets form parameters; a nil value unsets the key.
func (c *Client) SetParameterPost(params map[string]interface{}) {
	for _, k := range sortedKeys(params) {
		c.req.Post.Set(k, params[k])
	}
}

// SetFileUpload adds a multipart file. with nil data the file is read from
// filename; an empty ctype is guessed from the extension or the content.
func (c *Client) SetFileUpload(filename, formname string, data []byte, ctype string) error {
	if formname == "" {
		return errs.Config("a form name is required for file uploads")
	}
	if data == nil {
		b, err := os.ReadFile(filename)
		if err != nil {
			return errs.Configf("unable to read file '%s' for upload: %v", filename, err)
		}
		data = b
	}
	if ctype == "" {
		if ctype = mime.TypeByExtension(filepath.Ext(filename)); ctype == "" {
			ctype = http.DetectContentType(data)
		}
	}
	c.req.Files = append(c.req.Files, model.File{
		FormName: formname, Filename: filepath.Base(filename), ContentType: ctype, Data: data,
	})
	c.encType = model.EncFormData
	return nil
}

func (c *Client) SetRawBody(b []byte) { c.req.Body = b }

// SetRawStream sends r as the body. it can only be read once, so a method
// preserving redirect after it fails with model.ErrBodyNotReplayable.
func (c *Client) SetRawStream(r io.Reader) { c.req.Body = r }

// SetEncType sets the body content type, with an optional multipart
// boundary.
func (c *Client) SetEncType(encType string, boundary ...string) {
	c.encType = encType
	c.boundary = ""
	if len(boundary) > 0 {
		c.boundary = boundary[0]
	}
}

func (c *Client) EncType() string { return c.encType }

func (c *Client) SetArgSeparator(sep string) error {
	if sep == "" {
		return errs.Config("argument separator must not be empty")
	}
	c.opts.ArgSeparator = sep
	return nil
}

func (c *Client) ArgSeparator() string { return c.opts.ArgSeparator }

// SetAuth sets credentials for the current host and its subdomains.
func (c *Client) SetAuth(user, pass, typ string) error {
	if user == "" {
		return errs.Config("the username cannot be empty")
	}
	if typ == "" {
		typ = AuthBasic
	}
	switch strings.ToLower(typ) {
	case AuthBasic:
		if strings.Contains(user, ":") {
			return errs.Config("the user name cannot contain ':' in 'Basic' HTTP authentication")
		}
	case AuthDigest:
	default:
		return errs.Configf("invalid or not supported authentication type: '%s'", typ)
	}
	c.cred = &credentials{user: user, pass: pass, typ: strings.ToLower(typ)}
	c.digest = nil
	c.authHost = ""
	if c.req.URI != nil {
		c.authHost = c.req.URI.Hostname()
	}
	return nil
}

func (c *Client) ClearAuth() {
	c.cred, c.digest, c.authHost = nil, nil, ""
	c.req.Headers.Remove("Authorization")
}

// AddCookie sets a cookie sent with every request. value may be any scalar
// but not nil.
func (c *Client) AddCookie(name string, value interface{}) error {
	if value == nil {
		return errs.Config("invalid parameter type passed as cookie")
	}
	var v string
	switch t := value.(type) {
	case string:
		v = t
	case bool:
		v = "0"
		if t {
			v = "1"
		}
	default:
		v = fmt.Sprint(t)
	}
	sc, err := header.NewSetCookie(name, v)
	if err != nil {
		return err
	}
	return c.AddSetCookie(sc)
}

// AddSetCookie keeps cs as client cookies, replacing cookies with the same
// name.
func (c *Client) AddSetCookie(cs ...*header.SetCookie) error {
	for _, sc := range cs {
		if sc == nil {
			return errs.Config("invalid parameter type passed as cookie")
		}
		replaced := false
		for i, old := range c.cookies {
			if old.Name == sc.Name {
				c.cookies[i], replaced = sc, true
				break
			}
		}
		if !replaced {
			c.cookies = append(c.cookies, sc)
		}
	}
	return nil
}

// SetCookies adds every name/value pair of m, in key order.
func (c *Client) SetCookies(m map[string]interface{}) error {
	for _, k := range sortedKeys(m) {
		if err := c.AddCookie(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// Cookies returns the live cookies by name: the jar's, then the client's.
func (c *Client) Cookies() map[string]*header.SetCookie {
	c.jar.Purge(false)
	out := map[string]*header.SetCookie{}
	for _, sc := range c.jar.All() {
		out[sc.Name] = sc
	}
	now := time.Now()
	for _, sc := range c.cookies {
		if !sc.IsExpired(now) {
			out[sc.Name] = sc
		}
	}
	return out
}

func (c *Client) ClearCookies() {
	c.cookies = nil
	c.jar.Clear()
}

func (c *Client) Jar() *cookies.Jar { return c.jar }

// SetStream writes the response body of the next requests to path, or to
// a temporary file when path is empty, instead of keeping it in memory.
func (c *Client) SetStream(path string) {
	c.stream, c.streamPath = true, path
}

// ResetParameters clears everything describing the body and the query so
// the client can be reused for another request. cookies survive unless
// clearCookies is set.
func (c *Client) ResetParameters(clearCookies bool) {
	c.req.Query.Reset()
	c.req.Post.Reset()
	c.req.Files = nil
	c.req.Body = nil
	c.encType, c.boundary = "", ""
	c.stream, c.streamPath = false, ""
	c.req.Headers.Remove("Content-Type")
	c.req.Headers.Remove("Content-Length")
	if clearCookies {
		c.ClearCookies()
	}
}

// SetRequest adopts r as the current request.
func (c *Client) SetRequest(r *model.Request) error {
	if r == nil {
		return errs.Config("request must not be nil")
	}
	if err := r.Normalize(); err != nil {
		return err
	}
	userinfo := r.URI.User
	r.URI.User = nil
	c.req = r
	if userinfo != nil && userinfo.Username() != "" {
		pass, _ := userinfo.Password()
		return c.SetAuth(userinfo.Username(), pass, AuthBasic)
	}
	return nil
}

func (c *Client) Request() *model.Request { return c.req }

// RequestString renders the accumulated request with the configured
// argument separator and encoding.
func (c *Client) RequestString() string { return c.req.StringWith(c.formOptions()) }

func (c *Client) formOptions() model.FormOptions {
	return model.FormOptions{Separator: c.opts.ArgSeparator, RFC3986: c.opts.RFC3986Strict}
}

// Response returns the last response when responses are stored.
func (c *Client) Response() *model.Response { return c.resp }

func (c *Client) LastRawRequest() string  { return c.lastRawRequest }
func (c *Client) LastRawResponse() string { return c.lastRawResponse }
func (c *Client) RedirectionsCount() int  { return c.redirects }

func (c *Client) Send(req *model.Request) (*model.Response, error) {
	return c.SendContext(context.Background(), req)
}

// Do sends a request with the accumulated state to method and uri.
func (c *Client) Do(ctx context.Context, method, uri string) (*model.Response, error) {
	if err := c.SetMethod(method); err != nil {
		return nil, err
	}
	if err := c.SetURI(uri); err != nil {
		return nil, err
	}
	return c.SendContext(ctx, nil)
}

// SendContext sends req, or the accumulated request when req is nil, and
// follows redirects up to maxredirects. the returned response is the last
// one received, which is still a redirect when the limit was hit.
func (c *Client) SendContext(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req != nil {
		if err := c.SetRequest(req); err != nil {
			return nil, err
		}
	}
	r := c.req
	if r.URI == nil || r.URI.Host == "" {
		return nil, errs.Config("a valid URI with a host is required to send a request")
	}
	a, err := c.Adapter()
	if err != nil {
		return nil, err
	}
	if err := a.SetOptions(c.opts); err != nil {
		return nil, err
	}
	c.redirects = 0
	c.lastRawRequest, c.lastRawResponse = "", ""
	if c.authHost == "" && (c.cred != nil || r.Headers.Has("Authorization")) {
		c.authHost = r.URI.Hostname()
	}

	if c.out, err = c.openStream(); err != nil {
		return nil, err
	}
	if c.out != nil {
		sa, ok := a.(adapter.StreamAdapter)
		if !ok {
			c.closeStream()
			return nil, errs.Configf("adapter %T does not support streaming", a)
		}
		sa.SetOutputStream(c.out)
		defer sa.SetOutputStream(nil)
	}

	h := c.chain()
	retried, bodySent := false, false
	for {
		withAuth := c.authHost == "" || inAuthScope(r.URI.Hostname(), c.authHost)
		if !withAuth {
			c.log.Logf(obs.Info, "not sending credentials for %s to %s", c.authHost, r.URI.Hostname())
		}
		if r.Body != nil && !model.Replayable(r.Body) {
			if bodySent {
				return nil, c.fail(model.ErrBodyNotReplayable)
			}
			bodySent = true
		}
		if err := c.rewindStream(); err != nil {
			return nil, c.fail(err)
		}
		pr, err := c.prepare(r, withAuth)
		if err != nil {
			return nil, c.fail(err)
		}
		resp, err := h(ctx, pr)
		if err != nil {
			return nil, c.fail(err)
		}
		c.jar.AddCookiesFromResponse(resp, r.URI)

		if !retried && withAuth && c.challenged(resp) {
			retried = true
			c.log.Logf(obs.Debug, "answering digest challenge from %s", r.URI.Hostname())
			continue
		}

		loc := resp.Headers.Value("Location")
		if !isRedirect(resp.StatusCode) || loc == "" {
			return c.finish(resp), nil
		}
		if c.redirects >= c.opts.MaxRedirects {
			c.log.Logf(obs.Info, "redirect limit %d reached, returning %d", c.opts.MaxRedirects, resp.StatusCode)
			return c.finish(resp), nil
		}
		next, err := r.URI.Parse(loc)
		if err != nil {
			return nil, c.fail(errs.Parse("Location", err))
		}
		if s := strings.ToLower(next.Scheme); s != "http" && s != "https" {
			c.log.Logf(obs.Info, "not following redirect to %q", loc)
			return c.finish(resp), nil
		}
		next.User = nil
		c.redirect(r, resp.StatusCode, next)
		retried = false
	}
}

// redirect points r at next, applying the method rules of code.
func (c *Client) redirect(r *model.Request, code int, next *url.URL) {
	downgrade := !c.opts.StrictRedirects &&
		(code == http.StatusMovedPermanently || code == http.StatusFound || code == http.StatusSeeOther) &&
		r.Method != model.MethodGet && r.Method != model.MethodHead
	if downgrade {
		c.log.Logf(obs.Info, "%d: switching %s to GET for %s", code, r.Method, next.Redacted())
		r.Method = model.MethodGet
		r.Post.Reset()
		r.Files = nil
		r.Body = nil
		r.Headers.Remove("Content-Type")
		r.Headers.Remove("Content-Length")
	} else {
		c.log.Logf(obs.Info, "%d: following %s to %s", code, r.Method, next.Redacted())
	}
	// the location carries the whole query of the next hop
	r.Query.Reset()
	r.URI = next
	c.redirects++
}

// challenged reports whether resp asks for digest credentials we hold, and
// records the challenge.
func (c *Client) challenged(resp *model.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized || c.cred == nil || c.cred.typ != AuthDigest {
		return false
	}
	for _, f := range resp.Headers.Get("WWW-Authenticate") {
		if ch, ok := parseDigestChallenge(f.FieldValue()); ok {
			c.digest = &digestState{challenge: ch}
			return true
		}
	}
	return false
}

func (c *Client) chain() Handler {
	next := c.transmit
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next
}

func (c *Client) transmit(ctx context.Context, pr *model.PreparedRequest) (*model.Response, error) {
	host, port, secure, err := endpoint(pr.URI)
	if err != nil {
		return nil, err
	}
	c.log.Logf(obs.Debug, "%s %s", pr.Method, pr.URI.Redacted())
	if err := c.adapter.Connect(ctx, host, port, secure); err != nil {
		return nil, err
	}
	body, err := pr.Body()
	if err != nil {
		return nil, err
	}
	raw, err := c.adapter.Write(pr.Method, pr.URI, pr.Version, pr.Headers, body)
	c.lastRawRequest = raw
	if err != nil {
		return nil, err
	}
	rawResp, err := c.adapter.Read()
	if err != nil {
		return nil, err
	}
	if c.opts.StoreResponse {
		c.lastRawResponse = rawResp
	}
	resp, err := model.ParseResponse(rawResp, header.WithRegistry(c.reg))
	if err != nil {
		c.adapter.Close()
		return nil, err
	}
	c.log.Logf(obs.Debug, "%s %s: %d %s", pr.Method, pr.URI.Redacted(), resp.StatusCode, resp.ReasonPhrase)
	return resp, nil
}

// prepare builds the request as it goes on the wire for the current hop.
func (c *Client) prepare(r *model.Request, withAuth bool) (*model.PreparedRequest, error) {
	u := *r.URI
	u.User = nil
	u.Fragment, u.RawFragment = "", ""
	u.RawQuery = c.query(r)

	encType := r.Headers.Value("Content-Type")
	if encType == "" {
		encType = c.encType
	}
	payload, err := r.EncodeWith(encType, c.boundary, c.formOptions())
	if err != nil {
		return nil, err
	}
	version := c.opts.HTTPVersion
	if payload != nil && payload.ContentLength < 0 && version == "1.0" {
		// no chunked framing before 1.1
		if payload, err = buffer(payload); err != nil {
			return nil, err
		}
	}

	h := r.Headers.Clone()
	set := func(name, value string) {
		if err == nil {
			err = h.Set(name, value)
		}
	}
	if !h.Has("Host") {
		set("Host", hostHeader(&u))
	}
	if !h.Has("User-Agent") && c.opts.UserAgent != "" {
		set("User-Agent", c.opts.UserAgent)
	}
	if !h.Has("Accept-Encoding") {
		set("Accept-Encoding", "gzip, deflate")
	}
	if !c.opts.KeepAlive && !c.opts.Persistent && !h.Has("Connection") {
		set("Connection", "close")
	}
	h.Remove("Content-Length")
	h.Remove("Transfer-Encoding")
	if payload != nil {
		if payload.ContentType != "" {
			set("Content-Type", payload.ContentType)
		}
		if payload.ContentLength >= 0 {
			set("Content-Length", strconv.FormatInt(payload.ContentLength, 10))
		} else {
			set("Transfer-Encoding", "chunked")
		}
	}
	switch {
	case !withAuth:
		h.Remove("Authorization")
	case c.cred != nil && c.cred.typ == AuthBasic:
		v, aerr := EncodeAuthHeader(c.cred.user, c.cred.pass, AuthBasic)
		if aerr != nil {
			return nil, aerr
		}
		set("Authorization", v)
	case c.cred != nil && c.digest != nil:
		v, aerr := c.digest.authorization(c.cred, r.Method, u.RequestURI())
		if aerr != nil {
			return nil, aerr
		}
		set("Authorization", v)
	}
	if err != nil {
		return nil, err
	}
	if ck := c.cookieHeader(&u, h); ck != nil {
		h.Replace(ck)
	}
	return &model.PreparedRequest{Method: r.Method, URI: &u, Version: version, Headers: h, Payload: payload}, nil
}

// cookieHeader merges the cookies of the jar, the client and an explicit
// Cookie field into one field. the jar wins over the others.
func (c *Client) cookieHeader(u *url.URL, h *header.Headers) *header.Cookie {
	ck := c.jar.Header(u, c.opts.EncodeCookies)
	if ck == nil {
		ck = header.NewCookie()
		ck.RawValues = !c.opts.EncodeCookies
	}
	now := time.Now()
	for _, sc := range c.cookies {
		if _, dup := ck.Get(sc.Name); !dup && !sc.IsExpired(now) {
			_ = ck.Add(sc.Name, sc.Value)
		}
	}
	for _, f := range h.Get("Cookie") {
		if explicit, ok := f.(*header.Cookie); ok {
			for _, p := range explicit.Pairs() {
				if _, dup := ck.Get(p.Key); !dup {
					_ = ck.Add(p.Key, p.Value)
				}
			}
		}
	}
	if ck.Len() == 0 {
		return nil
	}
	return ck
}

// query merges the query parameters into the query of the URI. the URI
// query is kept verbatim when the parameters add nothing to it.
func (c *Client) query(r *model.Request) string {
	raw := r.URI.RawQuery
	if r.Query == nil || r.Query.Len() == 0 {
		return raw
	}
	sep, strict := c.opts.ArgSeparator, c.opts.RFC3986Strict
	if raw == "" {
		return r.Query.Encode(sep, strict)
	}
	have := model.ParseParams(raw)
	merged := have.Clone()
	for _, k := range r.Query.Keys() {
		v, _ := r.Query.Get(k)
		merged.Set(k, v)
	}
	if q := merged.Encode(sep, strict); q != have.Encode(sep, strict) {
		return q
	}
	return raw
}

func (c *Client) openStream() (*os.File, error) {
	on, path := c.stream, c.streamPath
	if !on && c.opts.OutputStream != "" {
		on, path = true, c.opts.OutputStream
	}
	if !on {
		return nil, nil
	}
	if path == "" {
		f, err := os.CreateTemp("", "go-http-client-*")
		if err != nil {
			return nil, errors.Wrap(err, "could not open temp file")
		}
		return f, nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open temp file %s", path)
	}
	return f, nil
}

// rewindStream empties the output file before each hop so it ends up
// holding the final body only.
func (c *Client) rewindStream() error {
	if c.out == nil {
		return nil
	}
	if err := c.out.Truncate(0); err != nil {
		return err
	}
	_, err := c.out.Seek(0, io.SeekStart)
	return err
}

func (c *Client) closeStream() {
	if c.out != nil {
		c.out.Close()
		c.out = nil
	}
}

func (c *Client) fail(err error) error {
	c.closeStream()
	return err
}

func (c *Client) finish(resp *model.Response) *model.Response {
	if c.out != nil {
		if _, err := c.out.Seek(0, io.SeekStart); err == nil {
			resp.Stream = c.out
		}
		c.out = nil
	}
	if c.opts.StoreResponse {
		c.resp = resp
	} else {
		c.resp, c.lastRawResponse = nil, ""
	}
	return resp
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func defaultPort(secure bool) int {
	if secure {
		return 443
	}
	return 80
}

func endpoint(u *url.URL) (host string, port int, secure bool, err error) {
	secure = strings.EqualFold(u.Scheme, "https")
	host = u.Hostname()
	if host == "" {
		return "", 0, false, errs.Configf("no host in URI %q", u.Redacted())
	}
	port = defaultPort(secure)
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil || port <= 0 || port > 65535 {
			return "", 0, false, errs.Configf("invalid port %q", p)
		}
	}
	return host, port, secure, nil
}

// hostHeader renders the Host value, leaving out the default port.
func hostHeader(u *url.URL) string {
	p := u.Port()
	if p == "" || p == strconv.Itoa(defaultPort(strings.EqualFold(u.Scheme, "https"))) {
		host := u.Hostname()
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(u.Hostname(), p)
}

func buffer(p *model.Payload) (*model.Payload, error) {
	r, err := p.GetBody()
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &model.Payload{
		ContentType:   p.ContentType,
		ContentLength: int64(len(b)),
		GetBody:       func() (io.Reader, error) { return bytes.NewReader(b), nil },
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
