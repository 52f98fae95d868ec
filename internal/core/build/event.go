package build

import (
	"fmt"
	"time"

	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/core/output"
)

// EventKind identifies what a launcher event reports
type EventKind string

const (
	EventOutput        EventKind = "output"
	EventJobStarted    EventKind = "job_started"
	EventDirFailed     EventKind = "dir_failed"
	EventLogFileFailed EventKind = "log_file_failed"
	EventLaunchFailed  EventKind = "launch_failed"
	EventCompleted     EventKind = "completed"
	EventFailed        EventKind = "failed"
	EventAllStarted    EventKind = "all_started"
	EventNoSelection   EventKind = "no_selection"
)

// Event is one progress report from the launcher
type Event struct {
	Kind      EventKind
	JobID     string
	Version   engine.Version
	Text      string
	Color     output.Color
	ExitCode  int
	PID       int
	Err       error
	Timestamp time.Time
}

// Message returns the display text of the event
func (e Event) Message() string {
	switch e.Kind {
	case EventOutput:
		return e.Text
	case EventJobStarted:
		return fmt.Sprintf("Launching build for version: %s (pid %d)\n", e.Version, e.PID)
	case EventDirFailed:
		return fmt.Sprintf("Failed to create output folder for version: %s: %v\n", e.Version, e.Err)
	case EventLogFileFailed:
		return fmt.Sprintf("Failed to create log file for version: %s\n", e.Version)
	case EventLaunchFailed:
		return fmt.Sprintf("Failed to start the build process for version: %s: %v\n", e.Version, e.Err)
	case EventCompleted:
		return fmt.Sprintf("Build process completed for version: %s\n", e.Version)
	case EventFailed:
		return fmt.Sprintf("Build process failed for version: %s (exit code %d)\n", e.Version, e.ExitCode)
	case EventAllStarted:
		return "Build process started for all selected versions.\n"
	case EventNoSelection:
		return "No version was selected.\n"
	default:
		return e.Text
	}
}

// IsTerminal reports whether the event ends a job, successfully or not
func (e Event) IsTerminal() bool {
	switch e.Kind {
	case EventDirFailed, EventLogFileFailed, EventLaunchFailed, EventCompleted, EventFailed:
		return true
	}
	return false
}

// IsFailure reports whether the event ends a job unsuccessfully
func (e Event) IsFailure() bool {
	return e.IsTerminal() && e.Kind != EventCompleted
}

// NewEvent builds an event and colors it by its message
func NewEvent(kind EventKind, jobID string, version engine.Version) Event {
	return Event{Kind: kind, JobID: jobID, Version: version, Timestamp: time.Now()}.Colored()
}

// OutputEvent wraps a chunk of tool output
func OutputEvent(jobID string, version engine.Version, chunk []byte) Event {
	e := Event{Kind: EventOutput, JobID: jobID, Version: version, Text: string(chunk), Timestamp: time.Now()}
	return e.Colored()
}

// Colored returns a copy of the event with Color set from its message
func (e Event) Colored() Event {
	e.Color = output.Classify(e.Message())
	return e
}

// Sink receives launcher events. Publish may be called from many goroutines.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// Publish calls f(e)
func (f SinkFunc) Publish(e Event) {
	f(e)
}
