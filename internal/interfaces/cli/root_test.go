package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&CLIContainer{})

	for _, name := range []string{"ui", "build", "versions"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
}

func TestVersionsCommand_ListsDetectedVersions(t *testing.T) {
	f := newFixture(t, map[string]int{"UE_5.4": 0, "UE_4.27": 0})
	container := newTestContainer(t, testConfig(f))

	var out bytes.Buffer
	root := NewRootCommand(container)
	root.SetOut(&out)
	root.SetArgs([]string{"versions", f.engineRoot})

	require.NoError(t, root.Execute())
	assert.Equal(t, "UE_4.27\nUE_5.4\n", out.String())
}

func TestVersionsCommand_NothingFound(t *testing.T) {
	f := newFixture(t, map[string]int{})
	container := newTestContainer(t, testConfig(f))

	err := runVersions(container, t.TempDir(), &bytes.Buffer{})
	assert.ErrorContains(t, err, `no engine versions with prefix "UE_"`)

	assert.ErrorContains(t, runVersions(container, "", &bytes.Buffer{}), "no engine root given")
}

func TestExecute_ExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		runErr     error
		wantCode   int
		wantStderr string
	}{
		{"success", nil, 0, ""},
		{"quiet exit", &exitError{code: 3}, 3, ""},
		{"plain error", errors.New("boom"), 1, "Error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{
				Use:           "upack",
				SilenceUsage:  true,
				SilenceErrors: true,
				RunE:          func(*cobra.Command, []string) error { return tt.runErr },
			}
			cmd.SetArgs([]string{})

			var stderr bytes.Buffer
			assert.Equal(t, tt.wantCode, execute(context.Background(), cmd, &stderr))
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

type recordingConfigurer struct {
	path        string
	debug       bool
	interactive bool
}

func (r *recordingConfigurer) Configure(path string, debug, interactive bool) error {
	r.path, r.debug, r.interactive = path, debug, interactive
	return nil
}

func TestRootCommand_ConfiguresContainerFromFlags(t *testing.T) {
	f := newFixture(t, map[string]int{"UE_5.3": 0})
	container := newTestContainer(t, testConfig(f))
	configurer := &recordingConfigurer{}
	container.MainContainer = configurer

	root := NewRootCommand(container)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", "/tmp/upack.yaml", "--debug", "versions", f.engineRoot})
	require.NoError(t, root.Execute())

	assert.Equal(t, "/tmp/upack.yaml", configurer.path)
	assert.True(t, configurer.debug)
	assert.False(t, configurer.interactive, "versions writes diagnostics to stderr")

	cmd, _, err := root.Find([]string{"ui"})
	require.NoError(t, err)
	assert.Equal(t, "true", cmd.Annotations[annotationInteractive])
}
