package lockregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocksConfiguredRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	target := filepath.Join(dir, "src", "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main"), 0644))

	reg, err := Load(dir, []string{"src/main.go"}, false)
	require.NoError(t, err)

	assert.True(t, reg.IsLocked(target))
	assert.False(t, reg.IsLocked(filepath.Join(dir, "src", "other.go")))
}

func TestSuggestWritesSiblingFileAndLeavesOriginalUntouched(t *testing.T) {
	// S6: a locked target is never overwritten; a suggestion sibling is
	// written instead, carrying the proposed content.
	dir := t.TempDir()
	target := filepath.Join(dir, "main.rs")
	original := []byte("fn main() { /* original */ }")
	require.NoError(t, os.WriteFile(target, original, 0644))

	suggestionPath, err := Suggest(target, "fn main() { /* patched */ }")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.suggested.rs"), suggestionPath)

	originalAfter, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, originalAfter)

	suggested, err := os.ReadFile(suggestionPath)
	require.NoError(t, err)
	assert.Contains(t, string(suggested), "patched")
}

func TestIsLockedUsesNormalizedAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "locked.py")
	require.NoError(t, os.WriteFile(target, []byte(""), 0644))

	reg, err := Load(dir, []string{target}, false)
	require.NoError(t, err)

	assert.True(t, reg.IsLocked(target))
	assert.True(t, reg.IsLocked(filepath.Join(dir, ".", "locked.py")))
}
