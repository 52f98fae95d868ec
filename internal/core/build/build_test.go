package build

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/core/output"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		missing []string
	}{
		{
			name:    "AllSet_ShouldPass",
			request: Request{EngineRoot: "/e", PluginFile: "/p/P.uplugin", PackageRoot: "/out"},
		},
		{
			name:    "NothingSet_ShouldNameEveryField",
			request: Request{},
			missing: []string{"engine path", "plugin file", "package folder"},
		},
		{
			name:    "WhitespaceCountsAsUnset",
			request: Request{EngineRoot: "  ", PluginFile: "/p/P.uplugin", PackageRoot: "/out"},
			missing: []string{"engine path"},
		},
		{
			name:    "MissingPackageRoot",
			request: Request{EngineRoot: "/e", PluginFile: "/p/P.uplugin"},
			missing: []string{"package folder"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingInput)

			var missingErr *MissingInputError
			require.True(t, errors.As(err, &missingErr))
			assert.Equal(t, tt.missing, missingErr.Fields)
		})
	}
}

func TestRequest_OutputDir(t *testing.T) {
	req := Request{
		PluginFile:  filepath.Join("plugins", "MyPlugin", "MyPlugin.uplugin"),
		PackageRoot: filepath.Join("out", "packages"),
	}

	assert.Equal(t,
		filepath.Join("out", "packages", "MyPlugin_UE_5.3"),
		req.OutputDir(engine.Version("UE_5.3")),
	)
}

func TestEvent_MessagesAndColors(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		message string
		color   output.Color
	}{
		{
			name:    "Completed",
			event:   Event{Kind: EventCompleted, Version: "UE_5.3"},
			message: "Build process completed for version: UE_5.3\n",
			color:   output.ColorGreen,
		},
		{
			name:    "Failed",
			event:   Event{Kind: EventFailed, Version: "UE_5.3", ExitCode: 2},
			message: "Build process failed for version: UE_5.3 (exit code 2)\n",
			color:   output.ColorRed,
		},
		{
			name:    "LogFileFailed",
			event:   Event{Kind: EventLogFileFailed, Version: "UE_4.27"},
			message: "Failed to create log file for version: UE_4.27\n",
			color:   output.ColorRed,
		},
		{
			name:    "NoSelection",
			event:   Event{Kind: EventNoSelection},
			message: "No version was selected.\n",
			color:   output.ColorDefault,
		},
		{
			name:    "AllStarted",
			event:   Event{Kind: EventAllStarted},
			message: "Build process started for all selected versions.\n",
			color:   output.ColorDefault,
		},
		{
			name:    "OutputIsVerbatim",
			event:   Event{Kind: EventOutput, Text: "warning: C4996\n"},
			message: "warning: C4996\n",
			color:   output.ColorAmber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			colored := tt.event.Colored()
			assert.Equal(t, tt.message, colored.Message())
			assert.Equal(t, tt.color, colored.Color)
		})
	}
}

func TestEvent_TerminalKinds(t *testing.T) {
	assert.True(t, Event{Kind: EventCompleted}.IsTerminal())
	assert.False(t, Event{Kind: EventCompleted}.IsFailure())

	for _, kind := range []EventKind{EventDirFailed, EventLogFileFailed, EventLaunchFailed, EventFailed} {
		assert.True(t, Event{Kind: kind}.IsFailure(), string(kind))
	}
	for _, kind := range []EventKind{EventOutput, EventJobStarted, EventAllStarted, EventNoSelection} {
		assert.False(t, Event{Kind: kind}.IsTerminal(), string(kind))
	}
}

func TestOutputEvent_KeepsBytes(t *testing.T) {
	e := OutputEvent("job", "UE_5.0", []byte("BUILD SUCCESSFUL\n"))
	assert.Equal(t, "BUILD SUCCESSFUL\n", e.Text)
	assert.Equal(t, output.ColorGreen, e.Color)
	assert.False(t, e.Timestamp.IsZero())
}

func TestSinkFunc(t *testing.T) {
	var got []EventKind
	var sink Sink = SinkFunc(func(e Event) { got = append(got, e.Kind) })

	sink.Publish(NewEvent(EventAllStarted, "", ""))
	assert.Equal(t, []EventKind{EventAllStarted}, got)
}
