package recce

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyDialError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want PortState
	}{
		{"canceled", context.Canceled, StateUnknown},
		{"wrapped canceled", fmt.Errorf("dial: %w", context.Canceled), StateUnknown},
		{"deadline", context.DeadlineExceeded, StateFiltered},
		{"net timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}, StateFiltered},
		{"other", errors.New("something odd"), StateUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyDialError(tc.err); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func loopbackTemplate(t *testing.T) AddressTemplate {
	t.Helper()
	return NewAddressTemplate(netip.MustParseAddr("127.0.0.1"))
}

func TestTCPProber_OpenAndClosed(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := uint16(l.Addr().(*net.TCPAddr).Port)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	prober := &TCPProber{Timeout: 2 * time.Second}
	tmpl := loopbackTemplate(t)

	state, err := prober.Probe(context.Background(), tmpl, port)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if state != StateOpen {
		t.Fatalf("expected open, got %s", state)
	}

	_ = l.Close()
	time.Sleep(50 * time.Millisecond)

	state, err = prober.Probe(context.Background(), tmpl, port)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if state != StateClosed {
		t.Fatalf("expected closed after listener shut down, got %s", state)
	}
}

func TestTCPProber_CancelledContextIsUnknown(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	port := uint16(l.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := (&TCPProber{}).Probe(ctx, loopbackTemplate(t), port)
	if err != nil {
		t.Fatalf("cancellation is not a resource error: %v", err)
	}
	if state != StateUnknown {
		t.Fatalf("expected unknown, got %s", state)
	}
}

func TestProberFunc(t *testing.T) {
	var got uint16
	p := ProberFunc(func(_ context.Context, _ AddressTemplate, port uint16) (PortState, error) {
		got = port
		return StateFiltered, nil
	})
	state, err := p.Probe(context.Background(), loopbackTemplate(t), 8080)
	if err != nil || state != StateFiltered || got != 8080 {
		t.Fatalf("got %s %v port %d", state, err, got)
	}
}
