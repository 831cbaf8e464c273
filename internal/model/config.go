package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the public instance of the todo service.
const DefaultBaseURL = "https://dummyjson.com"

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// BaseURL is the root URL of the todo/auth service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// RequestTimeoutSec bounds a single HTTP request.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	// CredentialDir is where the file-backed keyring falls back to when no
	// system keychain is available.
	CredentialDir string `mapstructure:"credential_dir" yaml:"credential_dir"`

	// NotesPath is the SQLite database file holding per-todo notes.
	NotesPath string `mapstructure:"notes_path" yaml:"notes_path"`

	// PageSize is the number of todos shown per page.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// RefreshIntervalSec is how often the background refresher refetches
	// the todo list. Zero disables interval polling.
	RefreshIntervalSec int `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/nimbly/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "nimbly", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		BaseURL:            DefaultBaseURL,
		RequestTimeoutSec:  30,
		CredentialDir:      filepath.Join(home, ".config", "nimbly", "credentials"),
		NotesPath:          filepath.Join(home, ".config", "nimbly", "notes.db"),
		PageSize:           10,
		RefreshIntervalSec: 120,
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("request_timeout_sec", defaults.RequestTimeoutSec)
	v.SetDefault("credential_dir", defaults.CredentialDir)
	v.SetDefault("notes_path", defaults.NotesPath)
	v.SetDefault("page_size", defaults.PageSize)
	v.SetDefault("refresh_interval_sec", defaults.RefreshIntervalSec)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.RequestTimeoutSec <= 0 {
		cfg.RequestTimeoutSec = defaults.RequestTimeoutSec
	}

	return cfg, nil
}
