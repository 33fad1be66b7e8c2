package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLoggingState() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
	configMu.Lock()
	config = loggingConfig{}
	configLoaded = false
	configMu.Unlock()
	logsDir = ""
	workspace = ""
}

func TestInitializeDisabledByDefault(t *testing.T) {
	resetLoggingState()
	tempDir := t.TempDir()

	require.NoError(t, Initialize(tempDir))
	assert.False(t, IsDebugMode())

	_, err := os.Stat(filepath.Join(tempDir, ".autoforge", "logs"))
	assert.True(t, os.IsNotExist(err), "no log directory should be created without debug_mode")
}

func TestInitializeCreatesCategoryLogFiles(t *testing.T) {
	resetLoggingState()
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".autoforge")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644))

	require.NoError(t, Initialize(tempDir))
	assert.True(t, IsDebugMode())

	Get(CategoryAutocorrect).Info("fixed %d failures", 3)
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".autoforge", "logs"))
	require.NoError(t, err)

	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryAutocorrect)) {
			found = true
		}
	}
	assert.True(t, found, "expected a log file for the autocorrect category")
}

func TestIsCategoryEnabledRespectsFilter(t *testing.T) {
	resetLoggingState()
	configMu.Lock()
	config = loggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"autocorrect": false},
	}
	configMu.Unlock()

	assert.False(t, IsCategoryEnabled(CategoryAutocorrect))
	assert.True(t, IsCategoryEnabled(CategoryDispatcher))
}
