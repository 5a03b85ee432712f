//go:build !linux && !windows

package recce

import "syscall"

// failFastOnICMP is a no-op where the platform has no per-socket switch; BSD
// stacks already abort connects on hard ICMP errors.
func failFastOnICMP(_, _ string, _ syscall.RawConn) error {
	return nil
}
