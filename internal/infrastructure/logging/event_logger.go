package logging

import (
	"github.com/sirupsen/logrus"

	"upack.dev/cli/internal/core/build"
)

// EventLogger wraps another sink and records every event in the diagnostics log
type EventLogger struct {
	base   build.Sink
	logger logrus.FieldLogger
}

// NewEventLogger creates a sink that logs events and then forwards them to base
func NewEventLogger(base build.Sink, logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{base: base, logger: logger}
}

// Publish logs the event and forwards it
func (l *EventLogger) Publish(e build.Event) {
	entry := l.logger.WithFields(logrus.Fields{
		"kind":    string(e.Kind),
		"job_id":  e.JobID,
		"version": e.Version.String(),
	})

	switch {
	case e.Kind == build.EventOutput:
		entry.WithField("bytes", len(e.Text)).Trace("tool output")
	case e.IsFailure():
		if e.Err != nil {
			entry = entry.WithError(e.Err)
		}
		entry.WithField("exit_code", e.ExitCode).Warn("build job did not complete")
	case e.Kind == build.EventCompleted:
		entry.Info("build job completed")
	default:
		entry.Debug(trimNewline(e.Message()))
	}

	if l.base != nil {
		l.base.Publish(e)
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
