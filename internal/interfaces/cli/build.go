package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"upack.dev/cli/internal/core/build"
	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/core/plugin"
	"upack.dev/cli/internal/infrastructure/logging"
)

// BuildFlags holds command-line flags for the build command
type BuildFlags struct {
	EngineRoot string
	Plugin     string
	Output     string
	Versions   []string
	All        bool
	NoPrompt   bool
}

// NewBuildCommand creates the headless build command
func NewBuildCommand(container *CLIContainer) *cobra.Command {
	flags := &BuildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Package the plugin for the selected engine versions",
		Long: `Package the plugin once per selected engine version, all in parallel.

Every version gets its own output folder {output}/{plugin}_{version} holding a
build_log.txt with the tool's combined output. Output is streamed to the
terminal as it arrives. Paths fall back to the configuration; in a terminal,
anything still missing is asked for.

Examples:
  upack build --version UE_5.3 --version UE_5.4
  upack build --engine-root "/opt/Epic Games" --plugin ./MyPlugin --output ./dist --all
  upack build --version 5.3 --no-prompt      # prefix is added when needed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := isTerminal() && !flags.NoPrompt
			return runBuild(cmd.Context(), container, flags, cmd.OutOrStdout(), interactive)
		},
	}

	cmd.Flags().StringVar(&flags.EngineRoot, "engine-root", "", "Folder containing the engine installations")
	cmd.Flags().StringVar(&flags.Plugin, "plugin", "", "Plugin descriptor (.uplugin) or the folder containing it")
	cmd.Flags().StringVar(&flags.Output, "output", "", "Folder receiving one package folder per version")
	cmd.Flags().StringSliceVar(&flags.Versions, "version", nil, "Engine version to build for (repeatable)")
	cmd.Flags().BoolVar(&flags.All, "all", false, "Build for every detected engine version")
	cmd.Flags().BoolVar(&flags.NoPrompt, "no-prompt", false, "Never ask for missing input")

	return cmd
}

// runBuild launches the build and blocks until every job has reported
func runBuild(ctx context.Context, container *CLIContainer, flags *BuildFlags, out io.Writer, interactive bool) error {
	cfg := container.Config
	req := build.Request{
		EngineRoot:  firstNonEmpty(flags.EngineRoot, cfg.EngineRoot),
		PluginFile:  firstNonEmpty(flags.Plugin, cfg.PluginFile),
		PackageRoot: firstNonEmpty(flags.Output, cfg.PackageRoot),
	}

	if interactive {
		if err := promptMissingPaths(&req); err != nil {
			return err
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}

	descriptor, err := plugin.Resolve(req.PluginFile)
	if err != nil {
		return fmt.Errorf("invalid plugin: %w", err)
	}
	req.PluginFile = descriptor

	available := container.Detector.List(req.EngineRoot)
	switch {
	case flags.All:
		req.Versions = available
	case len(flags.Versions) > 0:
		req.Versions = matchVersions(container.Detector.Prefix(), flags.Versions, available)
		for _, v := range req.Versions {
			if !slices.Contains(available, v) {
				container.Logger.WithFields(logrus.Fields{"version": v.String(), "root": req.EngineRoot}).
					Warn("version not found under engine root")
			}
		}
	case interactive && len(available) > 0:
		if req.Versions, err = promptVersions(available); err != nil {
			return err
		}
	}

	console := logging.NewConsoleSink(out, len(req.Versions) > 1)
	sink := logging.NewEventLogger(console, container.Logger)

	if err := container.Launcher.Launch(ctx, req, sink); err != nil {
		return err
	}
	container.Launcher.Wait()

	if len(req.Versions) == 0 {
		return &exitError{code: 1}
	}

	finished, failed := console.Counts()
	container.Logger.WithFields(logrus.Fields{"finished": finished, "failed": failed}).Debug("build finished")
	if failed > 0 {
		fmt.Fprintf(out, "%d of %d builds did not complete\n", failed, finished)
		return &exitError{code: 1}
	}
	return nil
}

// matchVersions maps requested names onto versions, adding the prefix to a
// bare name such as "5.3" when only the prefixed form is installed
func matchVersions(prefix string, requested []string, available []engine.Version) []engine.Version {
	versions := make([]engine.Version, 0, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		v := engine.Version(name)
		if !slices.Contains(available, v) && !strings.HasPrefix(name, prefix) {
			if prefixed := engine.Version(prefix + name); slices.Contains(available, prefixed) {
				v = prefixed
			}
		}
		if !slices.Contains(versions, v) {
			versions = append(versions, v)
		}
	}
	return versions
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
