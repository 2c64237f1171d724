//go:build !windows && !tinygo

package internal

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SetReuseAddr marks a UDP listener's underlying socket SO_REUSEADDR, so the
// CoAP CLI can rebind its chosen -p port immediately after a previous run
// exits (CoAP's default port 5683 is otherwise left in TIME_WAIT-like hold
// by the kernel on some platforms even for connectionless sockets bound
// with a fixed local port).
func SetReuseAddr(rawConn syscall.RawConn) error {
	var sockErr error
	err := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
