// Package plugin resolves plugin descriptor paths.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorExtension is the file extension of a plugin descriptor
const DescriptorExtension = ".uplugin"

var (
	ErrNoDescriptor        = errors.New("no plugin descriptor found")
	ErrAmbiguousDescriptor = errors.New("more than one plugin descriptor found")
)

// BaseName returns the descriptor's file name up to its first dot,
// e.g. "MyPlugin" for "/plugins/MyPlugin/MyPlugin.uplugin".
func BaseName(descriptorPath string) string {
	name := filepath.Base(descriptorPath)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// Resolve returns path unchanged when it names a file. When it names a
// directory, the single descriptor file directly inside it is returned.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat plugin path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	matches, err := FindDescriptors(path)
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoDescriptor, path)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrAmbiguousDescriptor, path, strings.Join(matches, ", "))
	}
}

// FindDescriptors lists the descriptor files directly inside dir
func FindDescriptors(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), DescriptorExtension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
