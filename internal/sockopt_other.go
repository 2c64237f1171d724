//go:build windows || tinygo

package internal

import "syscall"

// SetReuseAddr is a no-op on platforms without a unix.SO_REUSEADDR binding
// (Windows already rebinds freely; TinyGo has no syscall.RawConn support).
func SetReuseAddr(rawConn syscall.RawConn) error {
	return nil
}
