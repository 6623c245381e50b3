package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// GlobalConfig is the persistent client configuration stored in config.json.
// It only remembers where the API lives; the query surface needs no
// credentials.
type GlobalConfig struct {
	APIURL string `json:"api_url"`
}

// Indirection so tests can point the config at a temp directory.
var (
	getConfigDirFunc = func() (string, error) {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user config directory: %w", err)
		}
		return filepath.Join(base, "reposift"), nil
	}
	getConfigPathFunc = func() (string, error) {
		dir, err := getConfigDirFunc()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "config.json"), nil
	}
)

// GetConfigDir returns the platform-specific configuration directory.
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file.
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file is not an error; it
// returns a nil config so callers fall through the resolution cascade.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveGlobalConfig writes config.json with 0600 permissions, creating the
// config directory when needed.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes config.json; deleting a missing file succeeds.
func DeleteGlobalConfig() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// IsValidAPIURL validates that a URL is absolute with an http(s) scheme
func IsValidAPIURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// URLSource represents where the API URL came from
type URLSource string

const (
	SourceFlag         URLSource = "flag"
	SourceEnv          URLSource = "env"
	SourceGlobalConfig URLSource = "global_config"
	SourceDefault      URLSource = "default"
)

// ResolveAPIURL returns the effective API URL with cascade check
// Checks in order: flag -> env -> global_config -> default
func ResolveAPIURL(flagURL string) (URLSource, string) {
	if flagURL != "" {
		return SourceFlag, flagURL
	}

	if envURL := os.Getenv(envAPIURL); envURL != "" {
		return SourceEnv, envURL
	}

	config, err := LoadGlobalConfig()
	if err == nil && config != nil && config.APIURL != "" {
		return SourceGlobalConfig, config.APIURL
	}

	return SourceDefault, defaultAPIURL
}
