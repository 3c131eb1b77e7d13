package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			"message only",
			New(ErrorTypeValidation, "deploy", "template name required"),
			"deploy: template name required",
		},
		{
			"cause only",
			Wrap(ErrorTypeTransport, "backup", errors.New("connection refused")),
			"backup: connection refused",
		},
		{
			"message and cause",
			New(ErrorTypeRender, "deploy", "render base.tmpl").WithCause(errors.New("missing key")),
			"deploy: render base.tmpl: missing key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSentinelIdentityThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: snapshot abc123", ErrConfigNotFound)

	if !errors.Is(wrapped, ErrConfigNotFound) {
		t.Error("wrapped sentinel lost its identity")
	}
	if TypeOf(wrapped) != ErrorTypeNotFound {
		t.Errorf("TypeOf = %s, want %s", TypeOf(wrapped), ErrorTypeNotFound)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"no targets", ErrNoTargets, 64},
		{"not found", ErrConfigNotFound, 66},
		{"transport", New(ErrorTypeTransport, "deploy", "unreachable"), 69},
		{"validation", New(ErrorTypeValidation, "deploy", "bad input"), 65},
		{"persistence", New(ErrorTypePersistence, "history", "disk full"), 74},
		{"auth", New(ErrorTypeAuth, "login", "bad password"), 77},
		{"plain error", errors.New("boom"), 1},
		{"wrapped sentinel", fmt.Errorf("deploy: %w", ErrNoTargets), 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(ErrorTypeTransport, "backup", cause)

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}
