package recce

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrorCode classifies failures so callers can pick a remediation path
type ErrorCode int

const (
	// ErrCodeUnknown is used when the error doesn't fit any other category
	ErrCodeUnknown ErrorCode = iota
	// ErrCodeResolution is used when a target cannot be resolved to an address
	ErrCodeResolution
	// ErrCodeParse is used for malformed port specifications
	ErrCodeParse
	// ErrCodeProbeResource is used when a probe socket cannot be created
	ErrCodeProbeResource
	// ErrCodeConfiguration is used for configuration-related errors
	ErrCodeConfiguration
	// ErrCodeCancelled is used when an operation is cancelled
	ErrCodeCancelled
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeResolution:
		return "resolution"
	case ErrCodeParse:
		return "parse"
	case ErrCodeProbeResource:
		return "probe_resource"
	case ErrCodeConfiguration:
		return "configuration"
	case ErrCodeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// AppError represents an application-specific error with context
type AppError struct {
	// Underlying error
	Err error
	// Error code for programmatic handling
	Code ErrorCode
	// Human-readable message
	Message string
	// Component where the error occurred
	Component string
	// Operation that was being performed
	Operation string
	// Source file and line number for debugging
	Source string
	// Target of the operation (host name, port spec)
	Target string
	// Additional context as key-value pairs
	Context map[string]string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// AddContext adds a key-value pair to the error context
func (e *AppError) AddContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSource adds source file and line information to the error
func (e *AppError) WithSource() *AppError {
	return e.withSourceAt(2)
}

// withSourceAt records the frame skip levels up, where 1 is the caller of
// withSourceAt.
func (e *AppError) withSourceAt(skip int) *AppError {
	_, file, line, ok := runtime.Caller(skip)
	if ok {
		e.Source = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return e
}

// NewAppError creates a new application error
func NewAppError(err error, code ErrorCode, message, component, operation string) *AppError {
	return &AppError{
		Err:       err,
		Code:      code,
		Message:   message,
		Component: component,
		Operation: operation,
		Context:   make(map[string]string),
	}
}

// newResolutionError reports that host could not be turned into an address.
func newResolutionError(host string, err error) *AppError {
	e := NewAppError(err, ErrCodeResolution, fmt.Sprintf("could not resolve host %q", host), "resolver", "resolve")
	e.Target = host
	return e.withSourceAt(2)
}

// newParseError reports a malformed port specification.
func newParseError(spec, reason string, token string, index int) *AppError {
	e := NewAppError(nil, ErrCodeParse, "invalid port specification: "+reason, "portspec", "parse")
	e.Target = spec
	if index >= 0 {
		e.AddContext("token", token).AddContext("index", fmt.Sprint(index))
	}
	return e.withSourceAt(2)
}

// newProbeResourceError reports that no socket could be opened for one port.
func newProbeResourceError(addr string, port uint16, err error) *AppError {
	e := NewAppError(err, ErrCodeProbeResource, fmt.Sprintf("could not open socket for port %d", port), "prober", "probe")
	e.Target = addr
	e.AddContext("port", fmt.Sprint(port))
	return e.withSourceAt(2)
}

// IsResolutionError checks if an error is a target resolution failure
func IsResolutionError(err error) bool {
	return GetErrorCode(err) == ErrCodeResolution
}

// IsParseError checks if an error is a port specification failure
func IsParseError(err error) bool {
	return GetErrorCode(err) == ErrCodeParse
}

// IsProbeResourceError checks if an error is a per-port socket failure
func IsProbeResourceError(err error) bool {
	return GetErrorCode(err) == ErrCodeProbeResource
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeUnknown
}
