package recce

import (
	"fmt"
	"strings"
)

// PortState is the classified outcome of probing one port.
//
// The numeric values carry no meaning. Use Interest or AtLeast to compare
// states; the zero value is not a valid state.
type PortState uint8

const (
	StateOpen PortState = iota + 1
	StateFiltered
	StateClosed
	StateUnknown
)

// DefaultState is the state of every port that has not been probed.
const DefaultState = StateUnknown

// interest ranks states from most to least actionable.
var interest = map[PortState]int{
	StateOpen:     3,
	StateFiltered: 2,
	StateClosed:   1,
	StateUnknown:  0,
}

// Interest returns the rank of s on the operational interest ordering
// Open > Filtered > Closed > Unknown. Invalid states rank with Unknown.
func (s PortState) Interest() int {
	return interest[s]
}

// AtLeast reports whether s is at least as interesting as threshold.
func (s PortState) AtLeast(threshold PortState) bool {
	return s.Interest() >= threshold.Interest()
}

func (s PortState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFiltered:
		return "filtered"
	case StateClosed:
		return "closed"
	case StateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("PortState(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PortState) UnmarshalText(text []byte) error {
	parsed, err := ParsePortState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParsePortState converts the text form of a state, case-insensitively.
func ParsePortState(name string) (PortState, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "open":
		return StateOpen, nil
	case "filtered":
		return StateFiltered, nil
	case "closed":
		return StateClosed, nil
	case "unknown":
		return StateUnknown, nil
	}
	return 0, fmt.Errorf("unknown port state %q", name)
}
