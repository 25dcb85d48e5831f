// Package netutil holds small socket-option helpers shared by the stream
// server.
package netutil

import (
	"net"

	"golang.org/x/sys/unix"
)

// SetReuseAddr sets SO_REUSEADDR on a listening TCP socket so a restarted
// server does not have to wait out the TIME_WAIT state before it can
// rebind the same port.
func SetReuseAddr(l *net.TCPListener) error {
	file, err := l.File()
	if err != nil {
		return err
	}
	defer file.Close()

	return unix.SetsockoptInt(int(file.Fd()), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
