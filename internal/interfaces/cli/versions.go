package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewVersionsCommand creates the versions command
func NewVersionsCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions [engine-root]",
		Short: "List the engine installations found under an engine root",
		Long: `List the engine installations found under an engine root, one per line.

An installation is a directory directly under the root whose name starts with
the configured version prefix (UE_ by default).

Examples:
  upack versions                          # Use the configured engine root
  upack versions "/opt/Epic Games"        # Scan a specific folder`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := container.Config.EngineRoot
			if len(args) > 0 {
				root = args[0]
			}
			return runVersions(container, root, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runVersions(container *CLIContainer, root string, out io.Writer) error {
	if root == "" {
		return fmt.Errorf("no engine root given; pass one or set engine_root in the config")
	}

	found := 0
	for version := range container.Detector.Detect(root) {
		fmt.Fprintln(out, version)
		found++
	}

	container.Logger.WithField("root", root).WithField("count", found).Debug("listed engine versions")
	if found == 0 {
		return fmt.Errorf("no engine versions with prefix %q found under %s", container.Detector.Prefix(), root)
	}
	return nil
}
