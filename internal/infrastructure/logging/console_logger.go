package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"upack.dev/cli/internal/core/build"
	"upack.dev/cli/internal/core/output"
)

// ConsoleSink prints launcher events to a terminal, colored by output class
type ConsoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	colors   map[output.Color]*color.Color
	prefixed bool
	// midLine holds the jobs whose last chunk did not end with a newline
	midLine map[string]bool

	finished int
	failed   int
}

// NewConsoleSink creates a console sink. With prefixed set, every output line
// is tagged with its version so interleaved jobs stay readable.
func NewConsoleSink(out io.Writer, prefixed bool) *ConsoleSink {
	return &ConsoleSink{
		out: out,
		colors: map[output.Color]*color.Color{
			output.ColorDefault: color.New(color.FgWhite),
			output.ColorRed:     color.New(color.FgRed),
			output.ColorAmber:   color.New(color.FgYellow),
			output.ColorGreen:   color.New(color.FgGreen),
		},
		prefixed: prefixed,
		midLine:  make(map[string]bool),
	}
}

// Publish writes one event
func (s *ConsoleSink) Publish(e build.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IsTerminal() {
		s.finished++
		if e.IsFailure() {
			s.failed++
		}
	}

	c, ok := s.colors[e.Color]
	if !ok {
		c = s.colors[output.ColorDefault]
	}

	if e.IsTerminal() {
		delete(s.midLine, e.JobID)
	}
	if s.prefixed && e.Kind == build.EventOutput && e.Version != "" {
		c.Fprint(s.out, s.prefixLines(e))
		return
	}
	c.Fprint(s.out, e.Message())
}

// prefixLines tags the start of every line in an output chunk. A line split
// across chunks is tagged once.
func (s *ConsoleSink) prefixLines(e build.Event) string {
	prefix := "[" + e.Version.String() + "] "
	text := e.Text
	midLine := s.midLine[e.JobID]

	var b strings.Builder
	for text != "" {
		if !midLine {
			b.WriteString(prefix)
		}
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			b.WriteString(text)
			midLine = true
			break
		}
		b.WriteString(text[:i+1])
		text = text[i+1:]
		midLine = false
	}

	if midLine {
		s.midLine[e.JobID] = true
	} else {
		delete(s.midLine, e.JobID)
	}
	return b.String()
}

// Counts returns the number of finished jobs and how many of them failed
func (s *ConsoleSink) Counts() (finished, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished, s.failed
}
