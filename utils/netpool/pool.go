// Package netpool keeps idle connections per destination for reuse.
package netpool

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-http-client/internal/obs"
	"github.com/frankli0324/go-http-client/utils/nettools"
)

// Conn is a pooled connection. Release returns it for reuse, Close drops it.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
	Release()
	Raw() net.Conn
}

type Pool struct {
	connTicket      chan struct{}
	idleTicket      chan *conn
	maxIdleDuration time.Duration
	log             obs.Logger
	alive           func(net.Conn) bool

	dialed, reused int64
}

func NewPool(maxIdle, maxConn uint, opts ...Option) *Pool {
	p := &Pool{
		connTicket: make(chan struct{}, maxConn),
		idleTicket: make(chan *conn, maxIdle),
		log:        obs.NopLogger{},
		alive:      nettools.IsAlive,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Connect hands out an idle connection that is still alive or dials a new
// one. it blocks while the pool is at its connection limit.
func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	for {
		select {
		case c := <-p.idleTicket:
			if p.maxIdleDuration != 0 && time.Since(c.lastIdle) > p.maxIdleDuration {
				p.log.Logf(obs.Debug, "netpool: dropping connection to %s idle since %s", c.conn.RemoteAddr(), c.lastIdle.Format(time.RFC3339))
				c.conn.Close()
				continue
			}
			if !c.Available() || !p.alive(c.conn) {
				p.log.Logf(obs.Debug, "netpool: idle connection to %s went away", c.conn.RemoteAddr())
				c.conn.Close()
				continue
			}
			if !c.reacquire() {
				continue
			}
			atomic.AddInt64(&p.reused, 1)
			return c, nil
		default:
		}
		select {
		case p.connTicket <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		raw, err := dial(ctx)
		if err != nil {
			<-p.connTicket
			return nil, err
		}
		atomic.AddInt64(&p.dialed, 1)
		return &conn{conn: raw, pool: p, log: p.log}, nil
	}
}

func (c *conn) reacquire() bool {
	select {
	case c.pool.connTicket <- struct{}{}:
		atomic.StoreUint32(&c.released, 0)
		return true
	default:
		c.conn.Close()
		return false
	}
}

func (p *Pool) release(c *conn) {
	c.lastIdle = time.Now()
	c.giveBack()
	select {
	case p.idleTicket <- c:
	default:
		atomic.StoreUint32(&c.isClosed, 1)
		c.conn.Close()
	}
}

func (p *Pool) freeSlot() {
	select {
	case <-p.connTicket:
	default:
	}
}

// Stats returns how many connections were dialed and how many times an
// idle one was reused.
func (p *Pool) Stats() (dialed, reused int64) {
	return atomic.LoadInt64(&p.dialed), atomic.LoadInt64(&p.reused)
}

// CloseIdle closes every idle connection.
func (p *Pool) CloseIdle() {
	for {
		select {
		case c := <-p.idleTicket:
			atomic.StoreUint32(&c.isClosed, 1)
			c.conn.Close()
		default:
			return
		}
	}
}
