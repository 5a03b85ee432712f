package recce

import (
	"sort"
	"sync"
	"time"
)

// PortEntry is one probed port and its state.
type PortEntry struct {
	Port  uint16    `json:"port" xml:"number,attr"`
	State PortState `json:"state" xml:"state,attr"`
}

// ScanResult is the outcome of scanning one target. It is written only by the
// scan that created it and is read-only once returned.
type ScanResult struct {
	// ID identifies the scan in logs, metrics and reports.
	ID string
	// Host is the target exactly as given by the caller.
	Host string
	// Address is the canonical form of the resolved address that was probed.
	Address string
	Family  Family

	StartedAt  time.Time
	FinishedAt time.Time

	states []PortState
	probed []uint16

	mu       sync.Mutex
	failures []*AppError
}

func newScanResult(id, host string, tmpl AddressTemplate, ports []uint16) *ScanResult {
	states := make([]PortState, MaxPorts)
	for i := range states {
		states[i] = DefaultState
	}
	probed := make([]uint16, len(ports))
	copy(probed, ports)
	sort.Slice(probed, func(i, j int) bool { return probed[i] < probed[j] })

	return &ScanResult{
		ID:        id,
		Host:      host,
		Address:   tmpl.String(),
		Family:    tmpl.Family(),
		StartedAt: time.Now(),
		states:    states,
		probed:    probed,
	}
}

// set records the state of port. Each port has exactly one writer per scan,
// so distinct slots need no locking.
func (r *ScanResult) set(port uint16, state PortState) {
	r.states[port] = state
}

func (r *ScanResult) addFailure(err *AppError) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
}

// State returns the state of port; ports that were not probed are Unknown.
func (r *ScanResult) State(port uint16) PortState {
	if r.states == nil {
		return DefaultState
	}
	return r.states[port]
}

// Ports returns the probed ports in ascending order.
func (r *ScanResult) Ports() []uint16 {
	out := make([]uint16, len(r.probed))
	copy(out, r.probed)
	return out
}

// Entries returns every probed port with its state, ascending by port.
func (r *ScanResult) Entries() []PortEntry {
	return r.Filter(StateUnknown)
}

// Filter returns the probed ports whose state is at least as interesting as
// minimum, ascending by port.
func (r *ScanResult) Filter(minimum PortState) []PortEntry {
	var entries []PortEntry
	for _, port := range r.probed {
		state := r.State(port)
		if state.AtLeast(minimum) {
			entries = append(entries, PortEntry{Port: port, State: state})
		}
	}
	return entries
}

// Count returns how many probed ports ended in state.
func (r *ScanResult) Count(state PortState) int {
	n := 0
	for _, port := range r.probed {
		if r.State(port) == state {
			n++
		}
	}
	return n
}

// Failures returns the per-port socket errors that left ports Unknown.
func (r *ScanResult) Failures() []*AppError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AppError, len(r.failures))
	copy(out, r.failures)
	return out
}

// Duration is how long the probing phase took.
func (r *ScanResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
