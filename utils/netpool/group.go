package netpool

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/frankli0324/go-http-client/internal/obs"
)

type Option func(*Pool)

// WithMaxIdleDuration drops idle connections older than d.
func WithMaxIdleDuration(d time.Duration) Option {
	return func(p *Pool) { p.maxIdleDuration = d }
}

func WithLogger(l obs.Logger) Option {
	return func(p *Pool) { p.log = obs.OrNop(l) }
}

// WithAliveCheck replaces the liveness check run on idle connections.
func WithAliveCheck(alive func(net.Conn) bool) Option {
	return func(p *Pool) { p.alive = alive }
}

// PoolGroup holds one Pool per key, usually "host:port" plus whether TLS
// is used.
type PoolGroup struct {
	sync.RWMutex
	pools map[interface{}]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	opts                            []Option
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint, opts ...Option) *PoolGroup {
	return &PoolGroup{
		pools:           map[interface{}]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		opts: opts,
	}
}

func (g *PoolGroup) Pool(key interface{}) *Pool {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p
	}
	g.Lock()
	defer g.Unlock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost, g.opts...)
		g.pools[key] = p
	}
	return p
}

func (g *PoolGroup) Connect(ctx context.Context, key interface{}, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	return g.Pool(key).Connect(ctx, dial)
}

// CloseIdle closes the idle connections of every pool.
func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
