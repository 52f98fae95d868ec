package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{path: filepath.Join("plugins", "MyPlugin", "MyPlugin.uplugin"), expected: "MyPlugin"},
		{path: "My.Plugin.uplugin", expected: "My"},
		{path: "NoExtension", expected: "NoExtension"},
		{path: ".hidden.uplugin", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, BaseName(tt.path))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("FileIsReturnedUnchanged", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "Anything.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		got, err := Resolve(file)
		require.NoError(t, err)
		assert.Equal(t, file, got)
	})

	t.Run("DirectoryWithSingleDescriptor", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "MyPlugin.uplugin")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "Nested.uplugin"), 0o755))

		got, err := Resolve(dir)
		require.NoError(t, err)
		assert.Equal(t, file, got)
	})

	t.Run("DirectoryWithoutDescriptor", func(t *testing.T) {
		_, err := Resolve(t.TempDir())
		assert.ErrorIs(t, err, ErrNoDescriptor)
	})

	t.Run("DirectoryWithTwoDescriptors", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "A.uplugin"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "B.UPLUGIN"), nil, 0o644))

		_, err := Resolve(dir)
		assert.ErrorIs(t, err, ErrAmbiguousDescriptor)
	})

	t.Run("MissingPath", func(t *testing.T) {
		_, err := Resolve(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})
}
