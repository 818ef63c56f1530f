package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEndpoints(t *testing.T) {
	cfg := Default()

	assert.Equal(t, cfg.APIRoot+"/oauth/token", cfg.AccessTokenURL())
	assert.Equal(t, cfg.APIRoot+"/oauth/refresh", cfg.RefreshURL())
	assert.Equal(t, cfg.APIRoot+"/oauth/logout", cfg.LogoutURL())
	assert.Equal(t, cfg.APIRoot+"/me", cfg.UserInfoURL())
	assert.Equal(t, cfg.APIRoot+"/score/info", cfg.ScoreInfoURL())
	assert.Equal(t, cfg.APIRoot+"/score/upload", cfg.UploadURL())
	assert.Equal(t, "all-rights-reserved", cfg.UploadingLicense())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCORECLOUD_API_ROOT", "https://staging.example.com/v1")
	t.Setenv("SCORECLOUD_CONFIG_DIR", t.TempDir())

	cfg, err := Load(FlagOverrides{})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/v1", cfg.APIRoot)
	assert.Equal(t, string(SourceEnv), cfg.Sources["api_root"])
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("SCORECLOUD_API_ROOT", "https://env.example.com")
	t.Setenv("SCORECLOUD_CONFIG_DIR", t.TempDir())

	cfg, err := Load(FlagOverrides{APIRoot: "https://flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.APIRoot)
	assert.Equal(t, string(SourceFlag), cfg.Sources["api_root"])
}

func TestStoragePaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.ConfigDir = dir

	assert.Equal(t, filepath.Join(dir, "cred.json"), cfg.CredentialsPath())
	assert.Equal(t, filepath.Join(dir, "settings.json"), cfg.SettingsPath())
}
