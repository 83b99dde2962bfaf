package workspace

import (
	"context"
	"testing"
	"time"
)

func TestTerminalExecuteCapturesStdout(t *testing.T) {
	term := NewTerminal(t.TempDir(), time.Second)
	result, err := term.Execute(context.Background(), "echo hello", "", 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stdout != "hello\n" {
		t.Fatalf("Execute: expected stdout %q, got %q", "hello\n", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("Execute: expected exit code 0, got %d", result.ExitCode)
	}
}

func TestTerminalExecuteCapturesNonZeroExit(t *testing.T) {
	term := NewTerminal(t.TempDir(), time.Second)
	result, err := term.Execute(context.Background(), "exit 7", "", 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ExitCode != 7 {
		t.Fatalf("Execute: expected exit code 7, got %d", result.ExitCode)
	}
}

func TestTerminalExecuteRequiresCommand(t *testing.T) {
	term := NewTerminal(t.TempDir(), time.Second)
	if _, err := term.Execute(context.Background(), "", "", 0); err == nil {
		t.Fatalf("Execute: expected error for an empty command")
	}
}

func TestTerminalExecuteTimesOut(t *testing.T) {
	term := NewTerminal(t.TempDir(), 50*time.Millisecond)
	result, err := term.Execute(context.Background(), "sleep 5", "", 0)
	if err == nil {
		t.Fatalf("Execute: expected a timeout error")
	}
	if result == nil || !result.TimedOut {
		t.Fatalf("Execute: expected TimedOut=true, got %+v", result)
	}
}
