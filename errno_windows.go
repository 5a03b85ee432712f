package recce

import (
	"errors"
	"syscall"
)

// Winsock and ConnectEx codes the syscall package does not name.
const (
	errorSemTimeout         = syscall.Errno(121)
	errorNetworkUnreachable = syscall.Errno(1231)
	errorHostUnreachable    = syscall.Errno(1232)
	errorConnectionRefused  = syscall.Errno(1225)
	wsaeMFile               = syscall.Errno(10024)
	wsaeNoBufs              = syscall.Errno(10055)
	wsaeNetUnreach          = syscall.Errno(10051)
	wsaeTimedOut            = syscall.Errno(10060)
	wsaeConnRefused         = syscall.Errno(10061)
	wsaeHostUnreach         = syscall.Errno(10065)
)

var errTimedOut error = wsaeTimedOut

func isRefused(err error) bool {
	return errors.Is(err, wsaeConnRefused) || errors.Is(err, errorConnectionRefused)
}

func isUnreachable(err error) bool {
	return errors.Is(err, wsaeHostUnreach) || errors.Is(err, wsaeNetUnreach) ||
		errors.Is(err, errorHostUnreachable) || errors.Is(err, errorNetworkUnreachable) ||
		errors.Is(err, errorSemTimeout)
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, wsaeMFile) || errors.Is(err, wsaeNoBufs)
}
