package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoforge/internal/apperr"
	"autoforge/internal/types"
)

func TestOpenSeedsDefaultCatalogWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_catalog.json")

	cat, err := Open(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cat.List())

	_, err = os.Stat(path)
	assert.NoError(t, err, "seeded catalog should be written to disk")
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_catalog.json")

	cat, err := Open(path)
	require.NoError(t, err)

	descriptor := types.ModelDescriptor{ID: "custom-1", Name: "Custom", MemoryBytesRequired: 1024}
	require.NoError(t, cat.Add(descriptor))

	reloaded, err := Open(path)
	require.NoError(t, err)

	got, ok := reloaded.Get("custom-1")
	require.True(t, ok)
	assert.Equal(t, descriptor.Name, got.Name)
	assert.Equal(t, descriptor.MemoryBytesRequired, got.MemoryBytesRequired)
	assert.ElementsMatch(t, descriptorIDs(cat.List()), descriptorIDs(reloaded.List()))
}

func TestGetMissingIsCatalogMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_catalog.json")
	cat, err := Open(path)
	require.NoError(t, err)

	_, ok := cat.Get("does-not-exist")
	assert.False(t, ok)
}

func TestDownloadPopulatesLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_catalog.json")
	cat, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, cat.Download("gpt2-small", dir))

	d, ok := cat.Get("gpt2-small")
	require.True(t, ok)
	assert.NotEmpty(t, d.LocalPath)

	_, statErr := os.Stat(d.LocalPath)
	assert.NoError(t, statErr)
}

func TestDownloadUnknownIDIsModelNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_catalog.json")
	cat, err := Open(path)
	require.NoError(t, err)

	err = cat.Download("nonexistent", t.TempDir())
	require.Error(t, err)
	var notFound *apperr.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRemoveAbsentIDIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_catalog.json")
	cat, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, cat.Remove("never-existed"))
}

func descriptorIDs(ds []types.ModelDescriptor) []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}
