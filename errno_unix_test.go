//go:build unix

package recce

import (
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func dialError(syscallName string, errno unix.Errno) error {
	return &net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError(syscallName, errno)}
}

func TestClassifyDialError_Errno(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want PortState
	}{
		{"refused", dialError("connect", unix.ECONNREFUSED), StateClosed},
		{"timed out", dialError("connect", unix.ETIMEDOUT), StateFiltered},
		{"host unreachable", dialError("connect", unix.EHOSTUNREACH), StateFiltered},
		{"network unreachable", dialError("connect", unix.ENETUNREACH), StateFiltered},
		{"reset", dialError("connect", unix.ECONNRESET), StateUnknown},
		{"permission", dialError("connect", unix.EACCES), StateUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyDialError(tc.err); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestIsSocketCreateError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"socket syscall", dialError("socket", unix.EAFNOSUPPORT), true},
		{"fd exhaustion", dialError("connect", unix.EMFILE), true},
		{"system fd exhaustion", dialError("socket", unix.ENFILE), true},
		{"no buffers", dialError("connect", unix.ENOBUFS), true},
		{"refused", dialError("connect", unix.ECONNREFUSED), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSocketCreateError(tc.err); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
