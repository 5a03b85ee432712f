//go:build unix

package recce

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errTimedOut error = unix.ETIMEDOUT

func isRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

func isUnreachable(err error) bool {
	return errors.Is(err, unix.EHOSTUNREACH) || errors.Is(err, unix.ENETUNREACH)
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE) || errors.Is(err, unix.ENOBUFS)
}
