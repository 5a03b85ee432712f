package recce

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidHostFormat is returned for targets that are neither an IP
// literal nor a syntactically valid host name.
var ErrInvalidHostFormat = errors.New("invalid host format")

// RFC 1123 host name, simplified
var hostnameRegex = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])\.?$`)

// IsValidIP validates if a given string is a valid IPv4 or IPv6 literal.
func IsValidIP(ip string) bool {
	_, err := netip.ParseAddr(ip)
	return err == nil
}

// IsValidHostname validates if a given string is a valid hostname.
func IsValidHostname(hostname string) bool {
	return len(hostname) <= 253 && hostnameRegex.MatchString(hostname)
}

// ValidateTarget checks the shape of a target before it is resolved.
func ValidateTarget(target string) error {
	if IsValidIP(target) || IsValidHostname(target) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidHostFormat, target)
}

// SanitizeInput removes shell special characters and line breaks from user
// input. Spaces and dashes are kept since port specifications need them.
func SanitizeInput(input string) string {
	unsafe := []string{"|", "&", ";", "`", "$", "\\", "!", ">", "<", "*", "?", "(", ")", "[", "]", "{", "}", "'", "\"", "\n", "\r"}
	clean := input
	for _, char := range unsafe {
		clean = strings.ReplaceAll(clean, char, "")
	}

	if len(clean) > 1000 {
		clean = clean[:1000]
	}
	return clean
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d µs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2f sec", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.2f min", d.Minutes())
	}
	return fmt.Sprintf("%.2f hours", d.Hours())
}
