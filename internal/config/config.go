// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	APIRoot          string `json:"api_root"`
	AuthorizationURL string `json:"authorization_url"`
	SignUpURL        string `json:"sign_up_url"`

	// Storage settings
	ConfigDir string `json:"config_dir"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	APIRoot   string
	ConfigDir string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		APIRoot:          "https://api.scorecloud.app/editor/v1",
		AuthorizationURL: "https://scorecloud.app/oauth/authorize",
		SignUpURL:        "https://scorecloud.app/oauth/authorize-new",
		ConfigDir:        GlobalConfigDir(),
		Sources:          make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global file > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	loadFromEnv(cfg)

	if overrides.APIRoot != "" {
		cfg.APIRoot = overrides.APIRoot
		cfg.Sources["api_root"] = string(SourceFlag)
	}
	if overrides.ConfigDir != "" {
		cfg.ConfigDir = overrides.ConfigDir
		cfg.Sources["config_dir"] = string(SourceFlag)
	}

	return cfg, nil
}

// Derived endpoint URLs. The suffixes are fixed by the service.

// AccessTokenURL is the code-for-token exchange endpoint.
func (c *Config) AccessTokenURL() string { return c.APIRoot + "/oauth/token" }

// RefreshURL is the token refresh endpoint.
func (c *Config) RefreshURL() string { return c.APIRoot + "/oauth/refresh" }

// LogoutURL is the best-effort server-side logout endpoint.
func (c *Config) LogoutURL() string { return c.APIRoot + "/oauth/logout" }

// UserInfoURL is the profile fetch endpoint.
func (c *Config) UserInfoURL() string { return c.APIRoot + "/me" }

// ScoreInfoURL is the score metadata endpoint.
func (c *Config) ScoreInfoURL() string { return c.APIRoot + "/score/info" }

// UploadURL is the score publish/update endpoint.
func (c *Config) UploadURL() string { return c.APIRoot + "/score/upload" }

// UploadingLicense is the sole license value supported by the upload flow.
func (c *Config) UploadingLicense() string { return "all-rights-reserved" }

// CredentialsPath is the shared token file, one per installation.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.ConfigDir, "cred.json")
}

// SettingsPath is the shared key-value settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.ConfigDir, "settings.json")
}

// GlobalConfigDir returns the per-user config directory.
func GlobalConfigDir() string {
	if dir := os.Getenv("SCORECLOUD_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "scorecloud")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "scorecloud")
	}
	return filepath.Join(home, ".config", "scorecloud")
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.APIRoot != "" {
		cfg.APIRoot = fileCfg.APIRoot
		cfg.Sources["api_root"] = string(source)
	}
	if fileCfg.AuthorizationURL != "" {
		cfg.AuthorizationURL = fileCfg.AuthorizationURL
		cfg.Sources["authorization_url"] = string(source)
	}
	if fileCfg.SignUpURL != "" {
		cfg.SignUpURL = fileCfg.SignUpURL
		cfg.Sources["sign_up_url"] = string(source)
	}
	if fileCfg.ConfigDir != "" {
		cfg.ConfigDir = fileCfg.ConfigDir
		cfg.Sources["config_dir"] = string(source)
	}
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SCORECLOUD_API_ROOT"); v != "" {
		cfg.APIRoot = v
		cfg.Sources["api_root"] = string(SourceEnv)
	}
	if v := os.Getenv("SCORECLOUD_AUTHORIZATION_URL"); v != "" {
		cfg.AuthorizationURL = v
		cfg.Sources["authorization_url"] = string(SourceEnv)
	}
}
