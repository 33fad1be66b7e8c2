package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, "autoforge", cfg.Name)
	assert.Equal(t, 5, cfg.Autocorrect.MaxIterations)
	assert.NotEmpty(t, cfg.Providers)
}

func TestLoadReadsFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"autocorrect":{"max_iterations":9}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Autocorrect.MaxIterations)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dispatcher":{"max_concurrent_requests":2}}`), 0644))

	t.Setenv("AUTOFORGE_MAX_CONCURRENT_REQUESTS", "11")
	t.Setenv("AUTOFORGE_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Dispatcher.MaxConcurrentRequests)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestSaveWritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Name = "roundtrip"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Name)
}
