package netpool

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/frankli0324/go-http-client/internal/obs"
)

func pipeDialer(count *int) func(ctx context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) {
		*count++
		c, s := net.Pipe()
		go func() { // drain so writes on c don't block
			buf := make([]byte, 64)
			for {
				if _, err := s.Read(buf); err != nil {
					return
				}
			}
		}()
		return c, nil
	}
}

func alwaysAlive(net.Conn) bool { return true }

func TestReuseAfterRelease(t *testing.T) {
	dials := 0
	p := NewPool(2, 2, WithAliveCheck(alwaysAlive))
	c1, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	c1.Release()

	c2, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	assert.Equal(t, 1, dials)
	assert.Same(t, c1.Raw(), c2.Raw())
	dialed, reused := p.Stats()
	assert.EqualValues(t, 1, dialed)
	assert.EqualValues(t, 1, reused)
	c2.Close()
}

func TestClosedIsNotReused(t *testing.T) {
	dials := 0
	p := NewPool(2, 2, WithAliveCheck(alwaysAlive))
	c1, _ := p.Connect(context.Background(), pipeDialer(&dials))
	c1.Close()
	c1.Release()
	c2, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	c2.Close()
}

func TestDeadIdleIsDropped(t *testing.T) {
	dials := 0
	dead := false
	p := NewPool(2, 2, WithAliveCheck(func(net.Conn) bool { return !dead }))
	c1, _ := p.Connect(context.Background(), pipeDialer(&dials))
	c1.Release()
	dead = true
	c2, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	assert.NotSame(t, c1.Raw(), c2.Raw())
}

func TestMaxIdleDuration(t *testing.T) {
	dials := 0
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewPool(2, 2, WithAliveCheck(alwaysAlive), WithMaxIdleDuration(time.Nanosecond),
		WithLogger(obs.NewZap(zap.New(core))))
	c1, _ := p.Connect(context.Background(), pipeDialer(&dials))
	c1.Release()
	time.Sleep(time.Millisecond)
	_, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	assert.Equal(t, 1, logs.FilterMessageSnippet("netpool: dropping connection to pipe").Len())
}

func TestConnLimitHonoursContext(t *testing.T) {
	dials := 0
	p := NewPool(1, 1, WithAliveCheck(alwaysAlive))
	c1, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Connect(ctx, pipeDialer(&dials))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c1.Close()
	c2, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	c2.Close()
}

func TestDialErrorFreesSlot(t *testing.T) {
	p := NewPool(1, 1)
	boom := errors.New("boom")
	_, err := p.Connect(context.Background(), func(context.Context) (net.Conn, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	dials := 0
	c, err := p.Connect(context.Background(), pipeDialer(&dials))
	require.NoError(t, err)
	c.Close()
}

func TestGroupKeysPools(t *testing.T) {
	dials := 0
	g := NewGroup(2, 2, WithAliveCheck(alwaysAlive))
	a, _ := g.Connect(context.Background(), "a:80", pipeDialer(&dials))
	a.Release()
	b, _ := g.Connect(context.Background(), "b:80", pipeDialer(&dials))
	assert.Equal(t, 2, dials)
	assert.NotSame(t, a.Raw(), b.Raw())
	assert.Same(t, g.Pool("a:80"), g.Pool("a:80"))

	g.CloseIdle()
	a2, _ := g.Connect(context.Background(), "a:80", pipeDialer(&dials))
	assert.Equal(t, 3, dials)
	a2.Close()
	b.Close()
}
