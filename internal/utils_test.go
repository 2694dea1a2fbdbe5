package internal_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/internal"
	"github.com/frankli0324/go-http-client/internal/adapter"
	"github.com/frankli0324/go-http-client/internal/obs"
)

const okEmpty = "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"

// newTestClient returns a client wired to a test adapter answering with
// responses in order.
func newTestClient(t *testing.T, uri string, responses ...string) (*internal.Client, *adapter.Test) {
	t.Helper()
	ta := newTestAdapter(responses...)
	c, err := internal.New(uri, internal.WithAdapter(ta))
	require.NoError(t, err)
	return c, ta
}

func newTestAdapter(responses ...string) *adapter.Test {
	ta := adapter.NewTest()
	ta.SetResponse(responses...)
	return ta
}

func redirectTo(code int, location string, extra ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d Redirect\r\nLocation: %s\r\n", code, location)
	for _, l := range extra {
		b.WriteString(l + "\r\n")
	}
	b.WriteString("Content-Length: 0\r\n\r\n")
	return b.String()
}

func body(code int, content string) string {
	return fmt.Sprintf("HTTP/1.1 %d Whatever\r\nContent-Length: %d\r\n\r\n%s", code, len(content), content)
}

// headerOf finds name in a raw request head, "" when absent.
func headerOf(raw, name string) string {
	head, _, _ := strings.Cut(raw, "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n")[1:] {
		k, v, _ := strings.Cut(line, ":")
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func bodyOf(raw string) string {
	_, b, _ := strings.Cut(raw, "\r\n\r\n")
	return b
}

type recLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recLogger) Logf(level obs.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level.String()+" "+fmt.Sprintf(format, args...))
}

func (l *recLogger) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
