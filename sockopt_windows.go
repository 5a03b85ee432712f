package recce

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// TCP_FAIL_CONNECT_ON_ICMP_ERROR from ws2ipdef.h, Windows 10 1703 and later.
const tcpFailConnectOnICMPError = 18

// failFastOnICMP makes connect fail on ICMP destination/port unreachable
// instead of waiting for the full connect timeout.
func failFastOnICMP(_, _ string, c syscall.RawConn) error {
	return c.Control(func(fd uintptr) {
		// Older releases reject the option; probes then fall back to timeouts.
		_ = windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_TCP, tcpFailConnectOnICMPError, 1)
	})
}
