package obs

import (
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging hook used by the client engine, adapters and the
// connection pool.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs. it's the default everywhere.
type NopLogger struct{}

func (NopLogger) Logf(Level, string, ...interface{}) {}

// Zap forwards to a zap logger. levels are filtered by its core.
type Zap struct {
	S *zap.SugaredLogger
}

// NewZap wraps l, a nil l discards everything.
func NewZap(l *zap.Logger) Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return Zap{S: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z Zap) Logf(level Level, format string, args ...interface{}) {
	switch level {
	case Debug:
		z.S.Debugf(format, args...)
	case Info:
		z.S.Infof(format, args...)
	case Warn:
		z.S.Warnf(format, args...)
	default:
		z.S.Errorf(format, args...)
	}
}

// ZapLevel maps l onto the zap level of the same name.
func (l Level) ZapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warn:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// NewConsole returns a zap logger printing "15:04:05 LEVEL message" lines
// to w, dropping entries below min. encodeLevel renders the level, zap's
// capital encoder is used when it's nil.
func NewConsole(w io.Writer, min Level, encodeLevel zapcore.LevelEncoder) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.CallerKey = ""
	cfg.NameKey = ""
	cfg.StacktraceKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if encodeLevel != nil {
		cfg.EncodeLevel = encodeLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), min.ZapLevel())
	return zap.New(core)
}

// Delegate forwards to a logger that may be swapped while in use, for
// process wide components created before any client.
type Delegate struct {
	v atomic.Value
}

type boxed struct{ Logger }

func (d *Delegate) Set(l Logger) { d.v.Store(boxed{OrNop(l)}) }

func (d *Delegate) Logf(level Level, format string, args ...interface{}) {
	if b, ok := d.v.Load().(boxed); ok {
		b.Logf(level, format, args...)
	}
}

// OrNop returns l, or NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
