package apierr

import (
	"errors"
	"testing"
)

func TestErrorMessagePrefersWrappedError(t *testing.T) {
	e := New(500, "internal", errors.New("db down"))
	if got := e.Error(); got != "db down" {
		t.Fatalf("Error: expected %q, got %q", "db down", got)
	}
}

func TestErrorMessageFallsBackToCode(t *testing.T) {
	e := New(400, "bad_request", nil)
	if got := e.Error(); got != "bad_request" {
		t.Fatalf("Error: expected %q, got %q", "bad_request", got)
	}
}

func TestErrorMessageFallsBackToStatus(t *testing.T) {
	e := New(503, "", nil)
	if got := e.Error(); got != "api error (503)" {
		t.Fatalf("Error: expected %q, got %q", "api error (503)", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := New(500, "internal", inner)
	if !errors.Is(e, inner) {
		t.Fatalf("Unwrap: expected errors.Is to find the wrapped error")
	}
}

func TestNilErrorMessageIsEmpty(t *testing.T) {
	var e *Error
	if got := e.Error(); got != "" {
		t.Fatalf("Error: expected empty string for a nil *Error, got %q", got)
	}
}
