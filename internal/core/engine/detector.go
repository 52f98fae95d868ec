// Package engine detects versioned engine installations under an engine root.
package engine

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultVersionPrefix is the directory name prefix of an engine installation
const DefaultVersionPrefix = "UE_"

// Version identifies one engine installation by its directory name
type Version string

// String returns the version identifier
func (v Version) String() string {
	return string(v)
}

// Detect yields the direct child directories of root whose name starts with
// prefix, in directory listing order. A missing or unreadable root yields
// nothing. Every range over the result re-reads the directory.
func Detect(root, prefix string) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		if root == "" {
			return
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			return
		}

		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			if !isDir(root, entry) {
				continue
			}
			if !yield(Version(name)) {
				return
			}
		}
	}
}

// List collects Detect into a slice
func List(root, prefix string) []Version {
	return slices.Collect(Detect(root, prefix))
}

// isDir reports whether entry is a directory, following symlinks
func isDir(root string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}

// Detector binds a version prefix for repeated detection
type Detector struct {
	prefix string
}

// NewDetector creates a detector. An empty prefix falls back to DefaultVersionPrefix.
func NewDetector(prefix string) *Detector {
	if prefix == "" {
		prefix = DefaultVersionPrefix
	}
	return &Detector{prefix: prefix}
}

// Prefix returns the directory name prefix this detector matches
func (d *Detector) Prefix() string {
	return d.prefix
}

// Detect yields the versions installed under root
func (d *Detector) Detect(root string) iter.Seq[Version] {
	return Detect(root, d.prefix)
}

// List returns the versions installed under root
func (d *Detector) List(root string) []Version {
	return List(root, d.prefix)
}

// Strings converts versions to their identifiers
func Strings(versions []Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}
