//go:build freebsd || netbsd || openbsd || dragonfly
// +build freebsd netbsd openbsd dragonfly

package nettools

import (
	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	supported[ModeSelect] = selectReadable
	return nil
}()

func selectReadable(fd int) (bool, error) {
	var set unix.FdSet
	set.Zero()
	set.Set(fd)
	tv := unix.Timeval{}
	for {
		n, err := unix.Select(fd+1, &set, nil, nil, &tv)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && set.IsSet(fd), nil
	}
}
