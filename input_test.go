package recce

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestInput(t *testing.T, in string) (*InputHandler, *bytes.Buffer) {
	var out bytes.Buffer
	return NewInputHandler(zaptest.NewLogger(t), strings.NewReader(in), &out), &out
}

func TestInputHandler_GetTarget(t *testing.T) {
	ih, out := newTestInput(t, "\nbad host!\nscanme.example.org\n")
	target, err := ih.GetTarget()
	if err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if target != "scanme.example.org" {
		t.Fatalf("target = %q", target)
	}
	if !strings.Contains(out.String(), "Target cannot be empty.") {
		t.Fatalf("no empty-input message:\n%s", out.String())
	}
}

func TestInputHandler_GetTarget_GivesUp(t *testing.T) {
	ih, _ := newTestInput(t, "a..b\n-x\n_y\n")
	_, err := ih.GetTarget()
	if !errors.Is(err, ErrInvalidTarget) || !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected invalid target error, got %v", err)
	}
}

func TestInputHandler_GetPortSpec(t *testing.T) {
	ih, out := newTestInput(t, "80-20\n20-22 80\n")
	spec, ports, err := ih.GetPortSpec()
	if err != nil {
		t.Fatalf("GetPortSpec: %v", err)
	}
	if spec != "20-22 80" || !reflect.DeepEqual(ports, []uint16{20, 21, 22, 80}) {
		t.Fatalf("got %q %v", spec, ports)
	}
	if !strings.Contains(out.String(), "invalid port specification") {
		t.Fatalf("parse error not shown:\n%s", out.String())
	}
}

func TestInputHandler_GetPortSpec_GivesUp(t *testing.T) {
	ih, _ := newTestInput(t, "x\n70000\n\n")
	_, _, err := ih.GetPortSpec()
	if !IsParseError(err) || !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected parse error after retries, got %v", err)
	}
}

func TestInputHandler_EOF(t *testing.T) {
	ih, _ := newTestInput(t, "")
	if _, err := ih.GetTarget(); err == nil {
		t.Fatal("expected error at end of input")
	}

	ih, _ = newTestInput(t, "10.0.0.1")
	target, err := ih.PromptUser("target?")
	if err != nil || target != "10.0.0.1" {
		t.Fatalf("last line without newline: %q %v", target, err)
	}
}
