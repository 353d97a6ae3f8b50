package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsFirstRunCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.Mode)
	assert.Equal(t, "codex", cfg.Model)
	assert.Equal(t, "llama3", cfg.OllamaModel)

	_, err = os.Stat(filepath.Join(dir, "settings.toml"))
	assert.NoError(t, err)
}

func TestLoadSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultSettings()
	cfg.Mode = "local"
	cfg.OllamaModel = "mistral"
	cfg.Experiments.Planning = true
	require.NoError(t, SaveSettings(dir, cfg))

	loaded, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", loaded.Mode)
	assert.Equal(t, "mistral", loaded.OllamaModel)
	assert.True(t, loaded.Experiments.Planning)
	assert.False(t, loaded.Experiments.Reasoning)
}

func TestLoadSettingsInvalidModeFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"weird\"\n"), 0o600))

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.Mode)
	assert.NotEmpty(t, cfg.OllamaHost)
}

func TestLoadSettingsEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMIS_OLLAMA_HOST", "http://example:11434")
	t.Setenv("LUMIS_OLLAMA_MODEL", "phi3")

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://example:11434", cfg.OllamaHost)
	assert.Equal(t, "phi3", cfg.OllamaModel)
}

func TestLoadKeys(t *testing.T) {
	dir := t.TempDir()

	// No file yet.
	assert.Empty(t, LoadKeys(dir))

	require.NoError(t, SaveKeys(dir, []string{"k1", "", "k2"}))
	assert.Equal(t, []string{"k1", "k2"}, LoadKeys(dir))
}

func TestLoadKeysCapsAtMax(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveKeys(dir, []string{"a", "b", "c", "d", "e", "f", "g"}))
	assert.Len(t, LoadKeys(dir), MaxKeys)
}
