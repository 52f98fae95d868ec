package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upack.dev/cli/internal/core/build"
)

func TestNewLogger_Levels(t *testing.T) {
	logger, closer, err := NewLogger(Options{Level: "warn", Output: &bytes.Buffer{}})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger, _, err = NewLogger(Options{Level: "warn", Debug: true, Output: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, _, err = NewLogger(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "upack.log")

	logger, closer, err := NewLogger(Options{File: path})
	require.NoError(t, err)
	logger.WithField("version", "UE_5.3").Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "version=UE_5.3")
}

func TestConsoleSink_PrintsMessagesAndCounts(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := NewConsoleSink(&out, true)

	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("compiling\n")))
	sink.Publish(build.Event{Kind: build.EventCompleted, Version: "UE_5.3"}.Colored())
	sink.Publish(build.Event{Kind: build.EventFailed, Version: "UE_4.27", ExitCode: 1}.Colored())
	sink.Publish(build.NewEvent(build.EventAllStarted, "", ""))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"[UE_5.3] compiling",
		"Build process completed for version: UE_5.3",
		"Build process failed for version: UE_4.27 (exit code 1)",
		"Build process started for all selected versions.",
	}, lines)

	finished, failed := sink.Counts()
	assert.Equal(t, 2, finished)
	assert.Equal(t, 1, failed)
}

func TestConsoleSink_PrefixesEveryLine(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := NewConsoleSink(&out, true)

	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("Running AutomationTool...\nParsing\n")))
	sink.Publish(build.OutputEvent("b", "UE_4.27", []byte("warning: C4996\nBUILD ")))
	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("par")))
	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("tial\n\ndone\n")))
	sink.Publish(build.OutputEvent("b", "UE_4.27", []byte("FAILED\n")))

	assert.Equal(t, strings.Join([]string{
		"[UE_5.3] Running AutomationTool...",
		"[UE_5.3] Parsing",
		"[UE_4.27] warning: C4996",
		"[UE_4.27] BUILD [UE_5.3] partial",
		"[UE_5.3] ",
		"[UE_5.3] done",
		"FAILED",
		"",
	}, "\n"), out.String())
}

func TestConsoleSink_TerminalEventResetsLineState(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := NewConsoleSink(&out, true)

	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("no newline")))
	sink.Publish(build.Event{Kind: build.EventCompleted, JobID: "a", Version: "UE_5.3"}.Colored())
	out.Reset()

	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("again\n")))
	assert.Equal(t, "[UE_5.3] again\n", out.String())
}

func TestConsoleSink_UnprefixedPassesChunksThrough(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := NewConsoleSink(&out, false)

	sink.Publish(build.OutputEvent("a", "UE_5.3", []byte("one\ntwo\n")))
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestEventLogger_ForwardsAndLogs(t *testing.T) {
	var logs bytes.Buffer
	logger, _, err := NewLogger(Options{Level: "debug", Output: &logs})
	require.NoError(t, err)

	var forwarded []build.EventKind
	sink := NewEventLogger(build.SinkFunc(func(e build.Event) {
		forwarded = append(forwarded, e.Kind)
	}), logger)

	sink.Publish(build.Event{Kind: build.EventLaunchFailed, Version: "UE_5.1", Err: errors.New("no such file")}.Colored())
	sink.Publish(build.Event{Kind: build.EventCompleted, Version: "UE_5.2"}.Colored())

	assert.Equal(t, []build.EventKind{build.EventLaunchFailed, build.EventCompleted}, forwarded)
	assert.Contains(t, logs.String(), "build job did not complete")
	assert.Contains(t, logs.String(), "no such file")
	assert.Contains(t, logs.String(), "build job completed")
}

func TestTrimNewline(t *testing.T) {
	assert.Equal(t, "x", trimNewline("x\r\n\n"))
	assert.Equal(t, "", trimNewline("\n"))
}
