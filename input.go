package recce

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Input errors
var (
	ErrEmptyInput      = errors.New("input cannot be empty")
	ErrTooManyAttempts = errors.New("too many invalid attempts")
	ErrInvalidTarget   = errors.New("invalid target")
)

// maxPromptAttempts bounds re-prompting after invalid input.
const maxPromptAttempts = 3

// InputHandler prompts for a target and a port specification.
type InputHandler struct {
	logger *zap.Logger
	reader *bufio.Reader
	out    io.Writer
}

// NewInputHandler creates an InputHandler reading from in and prompting on out.
func NewInputHandler(logger *zap.Logger, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		logger: logger.With(zap.String("component", "input")),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// GetTarget prompts for a host name or IP literal until a well-formed one is
// entered.
func (ih *InputHandler) GetTarget() (string, error) {
	for attempt := 1; attempt <= maxPromptAttempts; attempt++ {
		target, err := ih.PromptUser("\nEnter target host name or IP address:")
		if errors.Is(err, ErrEmptyInput) {
			fmt.Fprintln(ih.out, "Target cannot be empty.")
			continue
		}
		if err != nil {
			return "", err
		}

		if err := ValidateTarget(target); err != nil {
			ih.logger.Warn("Invalid target entered", zap.String("target", target))
			fmt.Fprintf(ih.out, "%v\n", err)
			continue
		}
		return target, nil
	}
	return "", fmt.Errorf("%w: %w", ErrInvalidTarget, ErrTooManyAttempts)
}

// GetPortSpec prompts for a port specification, re-prompting on parse
// errors. It returns the accepted text and its expansion.
func (ih *InputHandler) GetPortSpec() (string, []uint16, error) {
	var lastErr error
	for attempt := 1; attempt <= maxPromptAttempts; attempt++ {
		spec, err := ih.PromptUser("\nEnter ports (e.g. \"22 80 8000-8100\"):")
		if err != nil && !errors.Is(err, ErrEmptyInput) {
			return "", nil, err
		}

		ports, err := ParsePortSpec(spec)
		if err != nil {
			lastErr = err
			ih.logger.Warn("Invalid port specification entered", zap.String("spec", spec), zap.Error(err))
			fmt.Fprintf(ih.out, "%v\n", err)
			continue
		}
		return spec, ports, nil
	}
	return "", nil, fmt.Errorf("%w: %w", lastErr, ErrTooManyAttempts)
}

// PromptUser prompts the user for input and returns their sanitized response.
func (ih *InputHandler) PromptUser(prompt string) (string, error) {
	fmt.Fprintln(ih.out, prompt)
	fmt.Fprint(ih.out, "> ")

	input, err := ih.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("user terminated input: %w", err)
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	response := strings.TrimSpace(SanitizeInput(input))
	if response == "" {
		return "", ErrEmptyInput
	}
	return response, nil
}
