package netpool

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-http-client/internal/obs"
)

type conn struct {
	conn     net.Conn
	pool     *Pool
	log      obs.Logger
	isClosed uint32
	released uint32
	lastIdle time.Time
}

func (c *conn) Available() bool {
	return atomic.LoadUint32(&c.isClosed) == 0
}

func (c *conn) Raw() net.Conn { return c.conn }

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil {
		if err != io.EOF {
			c.log.Logf(obs.Debug, "netpool: error on write to %s: %v", c.conn.RemoteAddr(), err)
		}
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	nb, err := c.conn.Read(p)
	if err != nil {
		if err != io.EOF {
			c.log.Logf(obs.Debug, "netpool: error on read from %s: %v", c.conn.RemoteAddr(), err)
		}
		c.Close()
	}
	return nb, err
}

func (c *conn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// Close closes the underlying connection and gives its slot back.
func (c *conn) Close() error {
	if !atomic.CompareAndSwapUint32(&c.isClosed, 0, 1) {
		return nil
	}
	err := c.conn.Close()
	c.giveBack()
	return err
}

// Release hands the connection back to the pool for reuse.
func (c *conn) Release() {
	if !c.Available() {
		return
	}
	c.pool.release(c)
}

func (c *conn) giveBack() {
	if atomic.CompareAndSwapUint32(&c.released, 0, 1) {
		c.pool.freeSlot()
	}
}
