package adapter

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
	"github.com/frankli0324/go-http-client/internal/transport"
)

const defaultTestResponse = "HTTP/1.1 400 Bad Request\r\n\r\n"

// Test never touches the network. Read hands out the configured responses
// in order, starting over after the last one, and every written request is
// recorded.
type Test struct {
	opts      Options
	responses []string
	index     int
	failNext  bool
	requests  []string
	method    string
	out       io.Writer
}

var _ StreamAdapter = (*Test)(nil)

func NewTest() *Test {
	return &Test{opts: DefaultOptions(), responses: []string{defaultTestResponse}}
}

func (t *Test) SetOptions(o Options) error {
	t.opts = o
	return nil
}

// SetNextRequestWillFail makes the next Connect fail with a connection
// error.
func (t *Test) SetNextRequestWillFail(fail bool) { t.failNext = fail }

func (t *Test) Connect(_ context.Context, host string, port int, _ bool) error {
	if t.failNext {
		t.failNext = false
		return errs.Connection(net.JoinHostPort(host, strconv.Itoa(port)), errors.New("request failed"))
	}
	return nil
}

func (t *Test) Write(method string, target *url.URL, version string, headers *header.Headers, body io.Reader) (string, error) {
	if headers == nil {
		headers = header.NewHeaders()
	}
	tgt := "/"
	if target != nil {
		tgt = target.RequestURI()
	}
	raw, err := transport.HTTP1{}.WriteRequest(io.Discard, &transport.RequestHead{Method: method, Target: tgt, Version: version, Headers: headers}, body)
	if err != nil {
		return raw, err
	}
	t.method = method
	t.requests = append(t.requests, raw)
	return raw, nil
}

// Read returns the next response. with an output stream set, the body is
// decoded to the stream and only the head is returned.
func (t *Test) Read() (string, error) {
	if t.index >= len(t.responses) {
		t.index = 0
	}
	raw := t.responses[t.index]
	t.index++
	if t.out == nil {
		return raw, nil
	}
	msg, err := transport.HTTP1{}.ReadResponse(bufio.NewReader(strings.NewReader(raw)), t.method, t.out)
	if err != nil {
		return raw, nil
	}
	return msg.Head, nil
}

func (t *Test) Close() error { return nil }

func (t *Test) SetOutputStream(w io.Writer) { t.out = w }

// SetResponse replaces the response buffer and rewinds it.
func (t *Test) SetResponse(responses ...string) {
	if len(responses) == 0 {
		responses = []string{defaultTestResponse}
	}
	t.responses = append([]string(nil), responses...)
	t.index = 0
}

func (t *Test) AddResponse(response string) {
	t.responses = append(t.responses, response)
}

func (t *Test) AddResponseFrom(resp *model.Response) {
	t.AddResponse(resp.String())
}

// SetResponseIndex selects the response returned by the next Read.
func (t *Test) SetResponseIndex(i int) error {
	if i < 0 || i >= len(t.responses) {
		return errs.OutOfRange("index %d out of range of response buffer size %d", i, len(t.responses))
	}
	t.index = i
	return nil
}

// Requests returns every request written so far.
func (t *Test) Requests() []string { return append([]string(nil), t.requests...) }
