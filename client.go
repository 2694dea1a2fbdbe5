package http

import (
	"go.uber.org/zap"

	"github.com/frankli0324/go-http-client/internal"
	"github.com/frankli0324/go-http-client/internal/adapter"
	"github.com/frankli0324/go-http-client/internal/obs"
)

// Client sends one request at a time and chases its redirects. it is not
// safe for concurrent use.
type Client = internal.Client

// Handler transmits one prepared request, redirect hops included.
type Handler = internal.Handler

// Middleware wraps the Handler of a Client, see [Client.Use].
type Middleware = internal.Middleware

type Option = internal.Option

// Options is the typed client configuration. build it with
// [DefaultOptions] or from a loose map with [OptionsFromMap].
type Options = adapter.Options

type Logger = obs.Logger
type LogLevel = obs.Level
type ZapLogger = obs.Zap

const (
	LevelDebug = obs.Debug
	LevelInfo  = obs.Info
	LevelWarn  = obs.Warn
	LevelError = obs.Error

	AuthBasic  = internal.AuthBasic
	AuthDigest = internal.AuthDigest
)

// NewZapLogger logs through l.
func NewZapLogger(l *zap.Logger) ZapLogger { return obs.NewZap(l) }

// SetPoolLogger sets the logger of the process wide connection pool.
func SetPoolLogger(l Logger) { adapter.SetPoolLogger(l) }

// New returns a Client targeting uri, which may be empty.
func New(uri string, opts ...Option) (*Client, error) { return internal.New(uri, opts...) }

func DefaultOptions() Options { return adapter.DefaultOptions() }

// OptionsFromMap accepts map[string]any, map[string]string or Options.
// keys are matched case insensitively, ignoring '-', '_' and '.'.
func OptionsFromMap(v interface{}) (Options, error) { return adapter.OptionsFromMap(v) }

var (
	WithLogger   = internal.WithLogger
	WithAdapter  = internal.WithAdapter
	WithJar      = internal.WithJar
	WithRegistry = internal.WithRegistry
	WithOptions  = internal.WithOptions
)

// EncodeAuthHeader returns the value of a basic Authorization header.
func EncodeAuthHeader(user, pass, typ string) (string, error) {
	return internal.EncodeAuthHeader(user, pass, typ)
}
