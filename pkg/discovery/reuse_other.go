//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package discovery

import "syscall"

// reuseAddr is a no-op where SO_REUSEPORT is unavailable; the bind then
// fails if another responder already owns the port.
func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
