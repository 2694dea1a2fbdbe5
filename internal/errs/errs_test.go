package errs_test

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-http-client/internal/errs"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassification(t *testing.T) {
	assert.ErrorIs(t, errs.Config("bad"), errs.ErrInvalidArgument)
	assert.ErrorIs(t, errs.Parse("status line", nil), errs.ErrRuntime)
	assert.ErrorIs(t, errs.OutOfRange("index %d", 3), errs.ErrOutOfRange)
	assert.NotErrorIs(t, errs.Config("bad"), errs.ErrRuntime)
}

func TestConnectionTimeoutIsConnectionError(t *testing.T) {
	err := errs.Connection("example.com:80", timeoutErr{})
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))

	var ce *errs.ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "example.com:80", ce.Addr)
	assert.ErrorIs(t, err, errs.ErrRuntime)

	refused := errs.Connection("example.com:80", errors.New("connection refused"))
	assert.False(t, errs.IsTimeout(refused))
	assert.Contains(t, refused.Error(), "unable to connect to example.com:80")
}

func TestConnectionKeepsExistingClassification(t *testing.T) {
	first := errs.Connection("a:1", context.DeadlineExceeded)
	again := errs.Connection("b:2", first)
	assert.Equal(t, first, again)
	assert.Nil(t, errs.Connection("a:1", nil))
}
