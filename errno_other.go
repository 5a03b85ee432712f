//go:build !unix && !windows

package recce

import (
	"errors"
	"strings"
)

var errTimedOut = errors.New("timed out")

func isRefused(err error) bool {
	return strings.Contains(err.Error(), "refused")
}

func isUnreachable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unreachable") || strings.Contains(msg, "no route")
}

func isResourceExhausted(err error) bool {
	return strings.Contains(err.Error(), "too many open files")
}
