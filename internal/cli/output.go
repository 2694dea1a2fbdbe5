package cli

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http/httptrace"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	httpc "github.com/frankli0324/go-http-client"
	"github.com/frankli0324/go-http-client/internal/obs"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type printer struct {
	out, err io.Writer

	green, yellow, red, cyan, bold, dim *color.Color
}

func newPrinter(out, errOut io.Writer, noColor bool) *printer {
	p := &printer{
		out:    out,
		err:    errOut,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
	}
	if noColor || !isTerminal(out) {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.bold, p.dim} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.bold, p.dim} {
			c.EnableColor()
		}
	}
	return p
}

func (p *printer) status(resp *httpc.Response) *color.Color {
	switch {
	case resp.IsSuccess():
		return p.green
	case resp.IsRedirect():
		return p.yellow
	case resp.IsClientError() || resp.IsServerError():
		return p.red
	}
	return p.cyan
}

func (p *printer) head(resp *httpc.Response) {
	p.status(resp).Fprintln(p.out, resp.StatusLine())
	for _, f := range resp.Headers.Fields() {
		fmt.Fprintf(p.out, "%s: %s\n", p.bold.Sprint(f.FieldName()), f.FieldValue())
	}
	fmt.Fprintln(p.out)
}

func (p *printer) rawRequest(raw string) {
	p.dim.Fprintln(p.err, raw)
}

func (p *printer) errorf(format string, args ...interface{}) {
	p.red.Fprintf(p.err, "Error: "+format+"\n", args...)
}

// logger writes client logs to the error stream with coloured levels.
func (p *printer) logger(verbose bool) *zap.Logger {
	level := httpc.LevelWarn
	if verbose {
		level = httpc.LevelDebug
	}
	return obs.NewConsole(p.err, level, func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		tag := "[" + l.CapitalString() + "]"
		switch l {
		case zapcore.DebugLevel:
			tag = p.dim.Sprint(tag)
		case zapcore.InfoLevel:
			tag = p.cyan.Sprint(tag)
		case zapcore.WarnLevel:
			tag = p.yellow.Sprint(tag)
		default:
			tag = p.red.Sprint(tag)
		}
		enc.AppendString(tag)
	})
}

// trace prints connection events to the error stream, curl -v style.
func (p *printer) trace() *httptrace.ClientTrace {
	start := time.Now()
	since := func() string { return time.Since(start).Round(time.Microsecond).String() }
	return &httptrace.ClientTrace{
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err == nil {
				p.dim.Fprintf(p.err, "* resolved %v (%s)\n", info.Addrs, since())
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				p.dim.Fprintf(p.err, "* connected to %s (%s)\n", addr, since())
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil {
				p.dim.Fprintf(p.err, "* %s handshake done (%s)\n", tls.VersionName(state.Version), since())
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				p.dim.Fprintf(p.err, "* reusing connection\n")
			}
		},
		GotFirstResponseByte: func() {
			p.dim.Fprintf(p.err, "* first response byte (%s)\n", since())
		},
	}
}
