// Package nettools checks the state of idle connections without reading
// from them.
package nettools

import (
	"net"
	"syscall"
)

type Mode int

const (
	ModePoll Mode = iota
	ModeSelect
)

// a check reports whether fd has something to read: data or EOF
type check func(fd int) (readable bool, err error)

var (
	supported = map[Mode]check{}
	picked    check
)

func init() {
	for _, mode := range []Mode{ModePoll, ModeSelect} {
		if supported[mode] != nil {
			picked = supported[mode]
			break
		}
	}
}

// Supported reports whether IsAlive can actually check connections on this platform.
func Supported() bool { return picked != nil }

// IsAlive reports whether an idle connection can carry another request.
// an idle HTTP connection must have nothing to read; anything readable is
// either the peer closing or stray bytes, and both make it unusable.
// connections that can't be checked are assumed alive.
func IsAlive(c net.Conn) bool {
	if picked == nil {
		return true
	}
	rc := connToFD(c)
	if rc == nil {
		return true
	}
	var readable bool
	var perr error
	// the control action only runs when no error is returned, e.g.
	// on *[net.conn]:
	//
	//  if err := fd.incref(); err != nil {
	//  	return err
	//  }
	//  defer fd.decref()
	//  f(uintptr(fd.Sysfd))
	//  return nil
	if err := rc.Control(func(fd uintptr) {
		readable, perr = picked(int(fd))
	}); err != nil {
		return false // closed
	}
	return perr == nil && !readable
}

func connToFD(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// is *tls.Conn
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if c, err := c.SyscallConn(); err == nil {
			return c
		}
	}
	return nil
}
