package relay

import (
	"context"
	"io"
	"testing"

	"github.com/grovetools/batchssh/command"
)

func TestTrailingOutputSurvivesReap(t *testing.T) {
	// Bytes written right before the process exits must still be readable
	// after the process has been reaped.
	proc, err := Spawn(context.Background(), &command.RealExecutor{},
		"/bin/sh", []string{"-c", "printf tail-data"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	if code := proc.WaitExit(); code != 0 {
		t.Fatalf("WaitExit() = %d, want 0", code)
	}

	data, err := io.ReadAll(proc.Stdout())
	if err != nil {
		t.Fatalf("reading stdout after reap: %v", err)
	}
	if string(data) != "tail-data" {
		t.Fatalf("stdout after reap = %q, want %q", data, "tail-data")
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	_, err := Spawn(context.Background(), &command.RealExecutor{},
		"/nonexistent/relay-binary", nil)
	if err == nil {
		t.Fatal("Spawn() expected error for a missing binary")
	}
}
