package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"upack.dev/cli/internal/application/services"
	"upack.dev/cli/internal/config"
	"upack.dev/cli/internal/core/engine"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// annotationInteractive marks commands that take over the terminal; their
// diagnostics go to the log file instead of stderr.
const annotationInteractive = "interactive"

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Detector *engine.Detector
	Launcher *services.Launcher

	MainContainer any // Will be set to *di.Container, avoiding circular import
}

// exitError ends the process with code after the command already reported why
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCommand RootCommand represents the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "upack",
		Short: "upack - package an Unreal plugin for several engine versions at once",
		Long: `upack packages one Unreal Engine plugin against every selected engine
installation in parallel, writing one output folder and build log per version.

Run without arguments in a terminal to open the interactive shell, or use
'upack build' for headless runs.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{annotationInteractive: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configureContainer(cmd, container); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return cmd.Help()
			}
			return runUI(cmd.Context(), container)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.upack/config.yaml)")

	rootCmd.AddCommand(NewUICommand(container))
	rootCmd.AddCommand(NewBuildCommand(container))
	rootCmd.AddCommand(NewVersionsCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// configureContainer loads configuration for the invoked command
func configureContainer(cmd *cobra.Command, container *CLIContainer) error {
	mainContainer, ok := container.MainContainer.(interface {
		Configure(configPath string, debug, interactive bool) error
	})
	if !ok {
		// Tests wire the container by hand
		return nil
	}

	configPath, _ := cmd.Flags().GetString("config")
	debugMode, _ := cmd.Flags().GetBool("debug")
	interactive := cmd.Annotations[annotationInteractive] == "true"

	return mainContainer.Configure(configPath, debugMode, interactive)
}

// isTerminal reports whether both stdin and stdout are attached to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context, container *CLIContainer) int {
	return execute(ctx, NewRootCommand(container), os.Stderr)
}

func execute(ctx context.Context, rootCmd *cobra.Command, stderr io.Writer) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
