// Package build holds the build request and progress event types shared by
// the launcher and its presentation layers.
package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/core/plugin"
)

// ErrMissingInput is returned when a required path of a Request is unset
var ErrMissingInput = errors.New("missing required input")

// MissingInputError names the unset fields of a Request
type MissingInputError struct {
	Fields []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("please select %s", strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrMissingInput
func (e *MissingInputError) Unwrap() error {
	return ErrMissingInput
}

// Request is one build trigger from a presentation layer
type Request struct {
	EngineRoot  string
	PluginFile  string
	PackageRoot string
	Versions    []engine.Version
}

// Validate checks that all three paths are set
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.EngineRoot) == "" {
		missing = append(missing, "engine path")
	}
	if strings.TrimSpace(r.PluginFile) == "" {
		missing = append(missing, "plugin file")
	}
	if strings.TrimSpace(r.PackageRoot) == "" {
		missing = append(missing, "package folder")
	}
	if len(missing) > 0 {
		return &MissingInputError{Fields: missing}
	}
	return nil
}

// OutputDir returns {package root}/{plugin base name}_{version}
func (r Request) OutputDir(version engine.Version) string {
	return filepath.Join(r.PackageRoot, plugin.BaseName(r.PluginFile)+"_"+version.String())
}
