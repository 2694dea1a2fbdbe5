// package errs holds the error taxonomy shared by every layer of the client.
//
// configuration problems fail fast before anything is put on the wire, while
// connection, timeout and parse errors are produced by adapters and the
// message model. all of them are inspectable with errors.Is / errors.As.
package errs

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument classifies every ConfigurationError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRuntime classifies connection, timeout and parse failures.
	ErrRuntime = errors.New("runtime error")
	// ErrOutOfRange classifies index errors, e.g. on the test adapter.
	ErrOutOfRange = errors.New("out of range")
)

// ConfigurationError is returned for invalid configuration shapes, invalid
// method tokens, header values carrying control characters and unsupported
// encoding types.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string        { return e.Msg }
func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalidArgument }

// ConnectionError is returned when an adapter cannot reach the remote host
// or the connection breaks mid transaction.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return "unable to connect to " + e.Addr
	}
	return "unable to connect to " + e.Addr + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrRuntime }

// TimeoutError is a ConnectionError caused by an exceeded connect or read
// deadline. errors.As with a **ConnectionError target also matches it.
type TimeoutError struct {
	ConnectionError
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return "timed out talking to " + e.Addr
	}
	return "timed out talking to " + e.Addr + ": " + e.Err.Error()
}

func (e *TimeoutError) Timeout() bool { return true }

func (e *TimeoutError) As(target interface{}) bool {
	if t, ok := target.(**ConnectionError); ok {
		*t = &e.ConnectionError
		return true
	}
	return false
}

// ParseError is returned for malformed status lines, request lines and
// header blocks. the partially parsed message is always discarded.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "malformed " + e.What
	}
	return "malformed " + e.What + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrRuntime }

type OutOfRangeError struct {
	Msg string
}

func (e *OutOfRangeError) Error() string        { return e.Msg }
func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

func Config(msg string) error {
	return errors.WithStack(&ConfigurationError{Msg: msg})
}

func Configf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigurationError{Msg: fmt.Sprintf(format, args...)})
}

func Parse(what string, err error) error {
	return errors.WithStack(&ParseError{What: what, Err: err})
}

func Parsef(what, format string, args ...interface{}) error {
	return errors.WithStack(&ParseError{What: what, Err: fmt.Errorf(format, args...)})
}

func OutOfRange(format string, args ...interface{}) error {
	return errors.WithStack(&OutOfRangeError{Msg: fmt.Sprintf(format, args...)})
}

// Connection classifies a network failure talking to addr, turning
// deadline expiries into a TimeoutError.
func Connection(addr string, err error) error {
	if err == nil {
		return nil
	}
	var already *ConnectionError
	if errors.As(err, &already) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.WithStack(&TimeoutError{ConnectionError{Addr: addr, Err: err}})
	}
	return errors.WithStack(&ConnectionError{Addr: addr, Err: err})
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
