package recce

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// failFastOnICMP asks the kernel to fail a pending connect as soon as an ICMP
// unreachable arrives instead of retrying SYNs until the connect timeout.
func failFastOnICMP(network, _ string, c syscall.RawConn) error {
	level, opt := unix.IPPROTO_IP, unix.IP_RECVERR
	if network == "tcp6" {
		level, opt = unix.IPPROTO_IPV6, unix.IPV6_RECVERR
	}
	return c.Control(func(fd uintptr) {
		// Best effort: the probe still classifies correctly without it, only slower.
		_ = unix.SetsockoptInt(int(fd), level, opt, 1)
	})
}
