package process

import (
	"context"
	"io"

	"upack.dev/cli/internal/core/domain/process"
)

// Process represents a running packaging tool process
type Process interface {
	// PID returns the process ID
	PID() int

	// Output returns the combined stdout and stderr stream, in write order.
	// It reaches EOF once every writer has closed the stream, or fails with
	// os.ErrDeadlineExceeded when it stays idle for the drain timeout after
	// the process exits.
	Output() io.ReadCloser

	// Wait waits for the process to complete and returns its error, if any
	Wait() error

	// Signal sends a signal to the process
	Signal(signal process.ProcessSignal) error

	// Kill forcefully terminates the process
	Kill() error

	// IsRunning returns true if the process is still running
	IsRunning() bool

	// ExitCode returns the exit code once the process has finished.
	// It is process.ExitCodeAbnormal when the process did not exit normally.
	ExitCode() int
}

// Executor is responsible for starting commands.
type Executor interface {
	Execute(ctx context.Context, cmd process.Command) (Process, error)
}
