package recce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPorts is the size of the TCP port space.
const MaxPorts = 1 << 16

// ParsePortSpec expands a port specification into an ordered port sequence.
//
// Tokens are separated by single spaces. A token is either one decimal port
// ("80") or an ascending inclusive range ("20-22", low < high). Duplicates are
// kept. Any malformed token fails the whole parse, as does an expansion of
// more than MaxPorts entries; duplicates count toward that limit, so
// "0-65535 1" is rejected.
//
//	"20-22 80" => [20 21 22 80]
func ParsePortSpec(spec string) ([]uint16, error) {
	if spec == "" {
		return nil, newParseError(spec, "empty specification", "", -1)
	}

	var ports []uint16
	for i, token := range strings.Split(spec, " ") {
		low, high, err := parseToken(token)
		if err != nil {
			return nil, newParseError(spec, err.Error(), token, i)
		}
		if len(ports)+int(high-low)+1 > MaxPorts {
			return nil, newParseError(spec, "more than 65536 ports", token, i)
		}
		for p := int(low); p <= int(high); p++ {
			ports = append(ports, uint16(p))
		}
	}
	return ports, nil
}

// parseToken returns the inclusive bounds a single token covers.
func parseToken(token string) (uint16, uint16, error) {
	if token == "" {
		return 0, 0, fmt.Errorf("empty token")
	}
	lowStr, highStr, isRange := strings.Cut(token, "-")
	low, err := parsePort(lowStr)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return low, low, nil
	}
	high, err := parsePort(highStr)
	if err != nil {
		return 0, 0, err
	}
	if low >= high {
		return 0, 0, fmt.Errorf("range %d-%d is not ascending", low, high)
	}
	return low, high, nil
}

func parsePort(s string) (uint16, error) {
	if s == "" {
		return 0, fmt.Errorf("missing port number")
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("port %s out of range 0-65535", s)
		}
		return 0, fmt.Errorf("%q is not a port number", s)
	}
	return uint16(v), nil
}
