package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"upack.dev/cli/internal/application/services"
	"upack.dev/cli/internal/config"
	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/infrastructure/logging"
	infraproc "upack.dev/cli/internal/infrastructure/process"
	"upack.dev/cli/internal/infrastructure/uat"
)

// fixture is an engine root with fake packaging scripts, a plugin and an
// empty package folder
type fixture struct {
	engineRoot  string
	pluginDir   string
	packageRoot string
}

// newFixture installs one fake engine per version. Each script prints its
// arguments and exits with the given code.
func newFixture(t *testing.T, versions map[string]int) fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake packaging scripts need a POSIX shell")
	}

	base := t.TempDir()
	f := fixture{
		engineRoot:  filepath.Join(base, "Epic Games"),
		pluginDir:   filepath.Join(base, "MyPlugin"),
		packageRoot: filepath.Join(base, "out"),
	}

	for version, code := range versions {
		dir := filepath.Join(f.engineRoot, version, "Engine", "Build", "BatchFiles")
		require.NoError(t, os.MkdirAll(dir, 0o755))

		result := "BUILD SUCCESSFUL"
		if code != 0 {
			result = "ERROR: BuildPlugin failed"
		}
		script := fmt.Sprintf("#!/bin/sh\necho \"packaging $*\"\necho %q\nexit %d\n", result, code)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "RunUAT.sh"), []byte(script), 0o755))
	}

	require.NoError(t, os.MkdirAll(f.pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.pluginDir, "MyPlugin.uplugin"), []byte("{}"), 0o644))
	return f
}

// newTestContainer wires the real launcher stack around cfg
func newTestContainer(t *testing.T, cfg *config.Config) *CLIContainer {
	t.Helper()

	logger := logging.NewDiscardLogger()
	launcher := services.NewLauncher(
		infraproc.NewExecutorWithOptions(time.Second, "", nil),
		uat.NewTool(cfg.ToolScript, cfg.ExtraArgs),
		services.WithLogger(logger),
		services.WithLogFileName(cfg.LogFileName),
	)
	t.Cleanup(launcher.Wait)

	return &CLIContainer{
		Config:   cfg,
		Logger:   logger,
		Detector: engine.NewDetector(cfg.VersionPrefix),
		Launcher: launcher,
	}
}

func testConfig(f fixture) *config.Config {
	cfg := config.Default()
	cfg.EngineRoot = f.engineRoot
	cfg.PluginFile = f.pluginDir
	cfg.PackageRoot = f.packageRoot
	cfg.WatchEngineRoot = false
	return cfg
}
