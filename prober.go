package recce

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// Prober performs one connection attempt against one port of a target.
//
// A non-nil error is only returned for probe resource failures; the state is
// then Unknown and the scan carries on.
type Prober interface {
	Probe(ctx context.Context, tmpl AddressTemplate, port uint16) (PortState, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, tmpl AddressTemplate, port uint16) (PortState, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, tmpl AddressTemplate, port uint16) (PortState, error) {
	return f(ctx, tmpl, port)
}

// TCPProber classifies ports with a full TCP handshake.
type TCPProber struct {
	// Timeout bounds a single connection attempt. Zero leaves it to the
	// operating system.
	Timeout time.Duration
}

// Probe opens a fresh socket, connects to port and classifies the outcome.
func (p *TCPProber) Probe(ctx context.Context, tmpl AddressTemplate, port uint16) (PortState, error) {
	addr := tmpl.WithPort(port)

	dialer := net.Dialer{
		Timeout:   p.Timeout,
		KeepAlive: -1,
		Control:   failFastOnICMP,
	}
	conn, err := dialer.DialContext(ctx, tmpl.Network(), addr.String())
	if err == nil {
		conn.Close()
		return StateOpen, nil
	}

	if isSocketCreateError(err) {
		return StateUnknown, newProbeResourceError(tmpl.String(), port, err)
	}
	return classifyDialError(err), nil
}

// classifyDialError maps a failed connection attempt to a port state.
func classifyDialError(err error) PortState {
	switch {
	case errors.Is(err, context.Canceled):
		return StateUnknown
	case isRefused(err):
		return StateClosed
	case isTimeout(err), isUnreachable(err):
		return StateFiltered
	default:
		return StateUnknown
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errTimedOut)
}

// isSocketCreateError reports whether the socket itself could not be opened,
// as opposed to the connection attempt failing.
func isSocketCreateError(err error) bool {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && (sysErr.Syscall == "socket" || sysErr.Syscall == "wsasocket") {
		return true
	}
	return isResourceExhausted(err)
}
