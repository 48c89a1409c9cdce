package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, DefaultPageSize, cfg.EffectivePageSize())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Config{
		BaseURL:      "https://pms.example.com",
		Token:        "secret",
		OutputFormat: "table",
		PageSize:     25,
		LogLevel:     "debug",
	}
	require.NoError(t, in.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.BaseURL, out.BaseURL)
	assert.Equal(t, in.Token, out.Token)
	assert.Equal(t, "table", out.OutputFormat)
	assert.Equal(t, 25, out.EffectivePageSize())
	assert.Equal(t, "debug", out.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://file.example\noutput_format: json\n"), 0o600))

	t.Setenv("PMS_BASE_URL", "https://env.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.BaseURL)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PMS_DOTENV_CHECK=loaded\n"), 0o600))
	t.Setenv("PMS_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("PMS_DOTENV_CHECK"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("PMS_DOTENV_CHECK"))
}
