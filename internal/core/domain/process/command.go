package process

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
)

// Command is an external program invocation
type Command struct {
	executable string
	args       []string
	workingDir string
	env        map[string]string
}

// NewCommand creates a new Command value object
func NewCommand(executable string, args []string) (Command, error) {
	if executable == "" {
		return Command{}, fmt.Errorf("executable cannot be empty")
	}

	return Command{
		executable: executable,
		args:       append([]string(nil), args...),
		env:        make(map[string]string),
	}, nil
}

// Executable returns the command executable
func (c Command) Executable() string {
	return c.executable
}

// Args returns a copy of the command arguments
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// WorkingDir returns the working directory, empty for the caller's
func (c Command) WorkingDir() string {
	return c.workingDir
}

// Env returns a copy of the extra environment variables
func (c Command) Env() map[string]string {
	return maps.Clone(c.env)
}

// String renders the command line, quoting arguments that contain spaces
func (c Command) String() string {
	parts := make([]string, 0, len(c.args)+1)
	for _, p := range c.FullCommandLine() {
		if strings.ContainsAny(p, " \t") {
			p = fmt.Sprintf("%q", p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// FullCommandLine returns the executable followed by its arguments
func (c Command) FullCommandLine() []string {
	result := make([]string, 0, len(c.args)+1)
	result = append(result, c.executable)
	result = append(result, c.args...)
	return result
}

// WithEnv returns a new Command with an additional environment variable
func (c Command) WithEnv(key, value string) Command {
	env := maps.Clone(c.env)
	if env == nil {
		env = make(map[string]string)
	}
	env[key] = value

	c.args = c.Args()
	c.env = env
	return c
}

// WithWorkingDir returns a new Command that runs in workingDir
func (c Command) WithWorkingDir(workingDir string) Command {
	if workingDir != "" && !filepath.IsAbs(workingDir) {
		if abs, err := filepath.Abs(workingDir); err == nil {
			workingDir = abs
		}
	}
	c.args = c.Args()
	c.env = c.Env()
	c.workingDir = workingDir
	return c
}
