// Package uat builds invocations of the engine's packaging tool (RunUAT BuildPlugin).
package uat

import (
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"slices"

	"upack.dev/cli/internal/core/domain/process"
	"upack.dev/cli/internal/core/engine"
)

// DefaultScript returns the packaging script path relative to a version directory
func DefaultScript() string {
	return scriptFor(runtime.GOOS)
}

func scriptFor(goos string) string {
	name := "RunUAT.sh"
	if goos == "windows" {
		name = "RunUAT.bat"
	}
	return filepath.Join("Engine", "Build", "BatchFiles", name)
}

// Tool builds packaging commands
type Tool struct {
	script    string
	extraArgs []string
	env       map[string]string
}

// ToolOption configures a Tool
type ToolOption func(*Tool)

// WithEnv adds environment variables to every packaging command
func WithEnv(env map[string]string) ToolOption {
	return func(t *Tool) {
		maps.Copy(t.env, env)
	}
}

// NewTool creates a tool. script is relative to {engine root}/{version} unless
// absolute; empty means DefaultScript.
func NewTool(script string, extraArgs []string, opts ...ToolOption) *Tool {
	if script == "" {
		script = DefaultScript()
	}
	t := &Tool{
		script:    script,
		extraArgs: append([]string(nil), extraArgs...),
		env:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ScriptPath returns the packaging script for one installed version
func (t *Tool) ScriptPath(engineRoot string, version engine.Version) string {
	if filepath.IsAbs(t.script) {
		return t.script
	}
	return filepath.Join(engineRoot, version.String(), t.script)
}

// Command builds the BuildPlugin invocation for one version
func (t *Tool) Command(engineRoot string, version engine.Version, descriptor, outputDir string) (process.Command, error) {
	args := []string{
		"BuildPlugin",
		"-plugin=" + descriptor,
		"-package=" + outputDir,
	}
	args = append(args, t.extraArgs...)

	cmd, err := process.NewCommand(t.ScriptPath(engineRoot, version), args)
	if err != nil {
		return process.Command{}, fmt.Errorf("failed to build packaging command for %s: %w", version, err)
	}

	// Files the tool drops in its working directory end up next to the package
	cmd = cmd.WithWorkingDir(outputDir)
	for _, key := range slices.Sorted(maps.Keys(t.env)) {
		cmd = cmd.WithEnv(key, t.env[key])
	}
	return cmd, nil
}
