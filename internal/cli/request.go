package cli

import (
	"fmt"
	"net"
	"net/http/httptrace"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	httpc "github.com/frankli0324/go-http-client"
)

type requestFlags struct {
	method  string
	headers []string
	query   []string
	data    []string
	body    string
	forms   []string
	user    string
	digest  bool
	cookies []string

	config          string
	maxRedirects    int
	strictRedirects bool
	timeout         time.Duration
	userAgent       string
	http10          bool
	insecure        bool
	proxy           string
	proxyUser       string
	socks5          bool
	resolve         []string
	dnsServer       string

	output  string
	include bool
	extract string
	verbose bool
	noColor bool
	fail    bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.method, "request", "X", "", "request method (default GET, POST when sending data)")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	fl.StringArrayVarP(&f.query, "query", "q", nil, "query parameter name=value (repeatable)")
	fl.StringArrayVarP(&f.data, "data", "d", nil, "form parameter name=value (repeatable)")
	fl.StringVar(&f.body, "body", "", "raw request body, @path reads a file")
	fl.StringArrayVarP(&f.forms, "form", "F", nil, "multipart field name=value, name=@path uploads a file (repeatable)")
	fl.StringVarP(&f.user, "user", "u", "", "credentials user:password")
	fl.BoolVar(&f.digest, "digest", false, "use digest instead of basic authentication")
	fl.StringArrayVarP(&f.cookies, "cookie", "b", nil, "cookie name=value (repeatable)")

	fl.StringVarP(&f.config, "config", "c", "", "YAML config file")
	fl.IntVar(&f.maxRedirects, "max-redirects", 5, "maximum redirects to follow")
	fl.BoolVar(&f.strictRedirects, "strict-redirects", false, "keep the method on 301, 302 and 303 redirects")
	fl.DurationVarP(&f.timeout, "timeout", "t", 10*time.Second, "connect and read timeout")
	fl.StringVarP(&f.userAgent, "user-agent", "A", "", "User-Agent header")
	fl.BoolVar(&f.http10, "http1.0", false, "speak HTTP/1.0")
	fl.BoolVarP(&f.insecure, "insecure", "k", false, "skip TLS certificate verification")
	fl.StringVarP(&f.proxy, "proxy", "x", "", "proxy host:port")
	fl.StringVar(&f.proxyUser, "proxy-user", "", "proxy credentials user:password")
	fl.BoolVar(&f.socks5, "socks5", false, "the proxy is a SOCKS5 one")
	fl.StringArrayVar(&f.resolve, "resolve", nil, "static name resolution host=address (repeatable)")
	fl.StringVar(&f.dnsServer, "dns-server", "", "DNS server host:port")

	fl.StringVarP(&f.output, "output", "o", "", "write the body to a file")
	fl.BoolVarP(&f.include, "include", "i", false, "print the status line and headers")
	fl.StringVarP(&f.extract, "extract", "e", "", "print the value at this JSON path of the body")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log the exchange to stderr")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	fl.BoolVarP(&f.fail, "fail", "f", false, "exit with an error on 4xx and 5xx responses")
}

// optionMap returns the options given on the command line, leaving
// everything else to the config file and the defaults.
func (f *requestFlags) optionMap(cmd *cobra.Command) (map[string]interface{}, error) {
	changed := cmd.Flags().Changed
	m := map[string]interface{}{}
	if changed("max-redirects") {
		m["maxredirects"] = f.maxRedirects
	}
	if changed("strict-redirects") {
		m["strictredirects"] = f.strictRedirects
	}
	if changed("timeout") {
		m["timeout"] = f.timeout
	}
	if f.userAgent != "" {
		m["useragent"] = f.userAgent
	}
	if f.http10 {
		m["httpversion"] = "1.0"
	}
	if f.insecure {
		m["sslverifypeer"] = false
	}
	if f.output != "" {
		m["outputstream"] = f.output
	}
	if f.proxy != "" {
		host, port, err := net.SplitHostPort(f.proxy)
		if err != nil {
			return nil, exitWith(ExitUsageError, errors.Errorf("invalid proxy %q, expected host:port", f.proxy))
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, exitWith(ExitUsageError, errors.Errorf("invalid proxy port %q", port))
		}
		m["adapter"] = "proxy"
		m["proxyhost"] = host
		m["proxyport"] = n
		if f.socks5 {
			m["proxytype"] = "socks5"
		}
		if user, pass, ok := strings.Cut(f.proxyUser, ":"); ok || user != "" {
			m["proxyuser"], m["proxypass"] = user, pass
		}
	}
	if len(f.resolve) > 0 {
		hosts := map[string]string{}
		for _, r := range f.resolve {
			host, addr, ok := strings.Cut(r, "=")
			if !ok || host == "" || addr == "" {
				return nil, exitWith(ExitUsageError, errors.Errorf("invalid --resolve %q, expected host=address", r))
			}
			hosts[host] = addr
		}
		m["hosts"] = hosts
	}
	if f.dnsServer != "" {
		m["dnsserver"] = f.dnsServer
	}
	return m, nil
}

func pairs(flag string, values []string) (map[string]interface{}, error) {
	m := make(map[string]interface{}, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" {
			return nil, exitWith(ExitUsageError, errors.Errorf("invalid --%s %q, expected name=value", flag, v))
		}
		m[k] = val
	}
	return m, nil
}

func (f *requestFlags) build(cmd *cobra.Command, p *printer, target string) (*httpc.Client, error) {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return nil, err
	}
	flags, err := f.optionMap(cmd)
	if err != nil {
		return nil, err
	}
	o, err := cfg.options(flags)
	if err != nil {
		return nil, err
	}
	logger := httpc.NewZapLogger(p.logger(f.verbose))
	httpc.SetPoolLogger(logger)
	c, err := httpc.New("", httpc.WithOptions(o), httpc.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	if err := c.SetURI(target); err != nil {
		return nil, err
	}

	headers := map[string][]string{}
	for k, v := range cfg.Headers {
		headers[k] = []string{v}
	}
	for _, h := range f.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return nil, exitWith(ExitUsageError, errors.Errorf("invalid header %q, expected \"Name: value\"", h))
		}
		k = strings.TrimSpace(k)
		for existing := range headers {
			if strings.EqualFold(existing, k) && existing != k {
				delete(headers, existing)
			}
		}
		headers[k] = append(headers[k], strings.TrimSpace(v))
	}
	if len(headers) > 0 {
		if err := c.SetHeaders(headers); err != nil {
			return nil, err
		}
	}

	query, err := pairs("query", f.query)
	if err != nil {
		return nil, err
	}
	c.SetParameterGet(query)

	post, err := pairs("data", f.data)
	if err != nil {
		return nil, err
	}
	c.SetParameterPost(post)

	for _, field := range f.forms {
		name, val, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, exitWith(ExitUsageError, errors.Errorf("invalid --form %q, expected name=value", field))
		}
		if path, isFile := strings.CutPrefix(val, "@"); isFile {
			if err := c.SetFileUpload(path, name, nil, ""); err != nil {
				return nil, err
			}
		} else {
			c.SetParameterPost(map[string]interface{}{name: val})
		}
	}

	if f.body != "" {
		b := []byte(f.body)
		if path, isFile := strings.CutPrefix(f.body, "@"); isFile {
			if b, err = os.ReadFile(path); err != nil {
				return nil, exitWith(ExitUsageError, errors.Wrap(err, "reading body"))
			}
		}
		c.SetRawBody(b)
	}

	method := f.method
	if method == "" {
		method = httpc.MethodGet
		if len(f.data) > 0 || len(f.forms) > 0 || f.body != "" {
			method = httpc.MethodPost
		}
	}
	if err := c.SetMethod(method); err != nil {
		return nil, err
	}
	if len(f.forms) > 0 {
		c.SetEncType(httpc.EncFormData)
	}

	if f.user != "" {
		user, pass, _ := strings.Cut(f.user, ":")
		typ := httpc.AuthBasic
		if f.digest {
			typ = httpc.AuthDigest
		}
		if err := c.SetAuth(user, pass, typ); err != nil {
			return nil, err
		}
	}
	cookies, err := pairs("cookie", f.cookies)
	if err != nil {
		return nil, err
	}
	if err := c.SetCookies(cookies); err != nil {
		return nil, err
	}
	return c, nil
}

func (f *requestFlags) run(cmd *cobra.Command, p *printer, target string) error {
	c, err := f.build(cmd, p, target)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if f.verbose {
		ctx = httptrace.WithClientTrace(ctx, p.trace())
	}
	resp, err := c.SendContext(ctx, nil)
	if f.verbose && c.LastRawRequest() != "" {
		p.rawRequest(c.LastRawRequest())
	}
	if err != nil {
		return err
	}
	if f.include {
		p.head(resp)
	}

	if resp.Stream != nil {
		name := resp.Stream.Name()
		resp.Stream.Close()
		fmt.Fprintf(p.err, "saved to %s\n", name)
	} else if err := f.print(p, resp); err != nil {
		return err
	}

	if f.fail && (resp.IsClientError() || resp.IsServerError()) {
		return exitWith(ExitHTTPError, errors.Errorf("server answered %s", resp.StatusLine()))
	}
	return nil
}

func (f *requestFlags) print(p *printer, resp *httpc.Response) error {
	text, err := resp.Text()
	if err != nil {
		return err
	}
	if f.extract == "" {
		fmt.Fprint(p.out, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(p.out)
		}
		return nil
	}
	if !gjson.Valid(text) {
		return exitWith(ExitExtractError, errors.New("response body is not JSON"))
	}
	r := gjson.Get(text, f.extract)
	if !r.Exists() {
		return exitWith(ExitExtractError, errors.Errorf("no value at %q", f.extract))
	}
	fmt.Fprintln(p.out, r.String())
	return nil
}
