package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"siteadmin/internal/users"
)

// Config holds all application configuration
type Config struct {
	Storage      StorageConfig `json:"storage"`
	Limits       LimitsConfig  `json:"limits"`
	DefaultAdmin AdminConfig   `json:"default_admin"`
	Session      SessionConfig `json:"session"`
	Logging      LoggingConfig `json:"logging"`
	Server       ServerConfig  `json:"server"`
}

// StorageConfig selects the durable key-value backend
type StorageConfig struct {
	Backend    string `json:"backend"`     // "sqlite", "badger", "memory"
	Path       string `json:"path"`        // sqlite file or badger directory
	QuotaBytes int64  `json:"quota_bytes"` // 0 disables the quota
}

// LimitsConfig bounds every collection
type LimitsConfig struct {
	ChatMax       int   `json:"chat_max"`
	FilesMax      int   `json:"files_max"`
	FilesFallback int   `json:"files_fallback"` // newest files kept when storage is full
	ActivityMax   int   `json:"activity_max"`
	MaxFileBytes  int64 `json:"max_file_bytes"`
}

// AdminConfig is the account seeded into an empty directory
type AdminConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionConfig controls tab sessions
type SessionConfig struct {
	IdleTimeoutMinutes int `json:"idle_timeout_minutes"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level        string `json:"level"`         // "debug", "info", "warn", "error"
	DebugEnabled bool   `json:"debug_enabled"` // Enable debug file logging
	File         string `json:"file"`
	MaxSizeMB    int    `json:"max_size_mb"`
	MaxBackups   int    `json:"max_backups"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	Port        int    `json:"port"`
	BindAddress string `json:"bind_address"`
	MaxUploadMB int    `json:"max_upload_mb"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    "sqlite",
			Path:       "siteadmin.db",
			QuotaBytes: 5 * 1024 * 1024,
		},
		Limits: LimitsConfig{
			ChatMax:       100,
			FilesMax:      20,
			FilesFallback: 10,
			ActivityMax:   100,
			MaxFileBytes:  1024 * 1024,
		},
		DefaultAdmin: AdminConfig{
			Username: "admin",
			Password: "admin123",
		},
		Session: SessionConfig{
			IdleTimeoutMinutes: 30,
		},
		Logging: LoggingConfig{
			Level:        "info",
			DebugEnabled: false,
			File:         "debug.log",
			MaxSizeMB:    10,
			MaxBackups:   3,
		},
		Server: ServerConfig{
			Port:        8080,
			BindAddress: "127.0.0.1",
			MaxUploadMB: 32,
		},
	}
}

// Load reads configuration from file and environment. A missing file is
// created with the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		fileCfg.applyDefaults(cfg)
		cfg = &fileCfg
	} else {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills every zero field from d
func (c *Config) applyDefaults(d *Config) {
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Path == "" && c.Storage.Backend != "memory" {
		c.Storage.Path = d.Storage.Path
	}
	if c.Limits.ChatMax == 0 {
		c.Limits.ChatMax = d.Limits.ChatMax
	}
	if c.Limits.FilesMax == 0 {
		c.Limits.FilesMax = d.Limits.FilesMax
	}
	if c.Limits.FilesFallback == 0 {
		c.Limits.FilesFallback = d.Limits.FilesFallback
	}
	if c.Limits.ActivityMax == 0 {
		c.Limits.ActivityMax = d.Limits.ActivityMax
	}
	if c.Limits.MaxFileBytes == 0 {
		c.Limits.MaxFileBytes = d.Limits.MaxFileBytes
	}
	if c.DefaultAdmin.Username == "" {
		c.DefaultAdmin = d.DefaultAdmin
	}
	if c.Session.IdleTimeoutMinutes == 0 {
		c.Session.IdleTimeoutMinutes = d.Session.IdleTimeoutMinutes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = d.Logging.File
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = d.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = d.Logging.MaxBackups
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.BindAddress == "" {
		c.Server.BindAddress = d.Server.BindAddress
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = d.Server.MaxUploadMB
	}
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnvOverrides applies SITEADMIN_* environment variables
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SITEADMIN_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SITEADMIN_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SITEADMIN_STORAGE_QUOTA_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Storage.QuotaBytes = n
		}
	}
	if v := os.Getenv("SITEADMIN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SITEADMIN_DEBUG_ENABLED"); v != "" {
		if v == "true" {
			c.Logging.DebugEnabled = true
		} else if v == "false" {
			c.Logging.DebugEnabled = false
		}
	}
	if v := os.Getenv("SITEADMIN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("SITEADMIN_SERVER_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.Server.Port)
	}
	if v := os.Getenv("SITEADMIN_SERVER_BIND_ADDRESS"); v != "" {
		c.Server.BindAddress = v
	}
	if v := os.Getenv("SITEADMIN_DEFAULT_ADMIN_PASSWORD"); v != "" {
		c.DefaultAdmin.Password = v
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	validBackends := map[string]bool{"sqlite": true, "badger": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s (must be sqlite, badger, or memory)", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for %s", c.Storage.Backend)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage quota cannot be negative")
	}

	if c.Limits.ChatMax < 1 || c.Limits.FilesMax < 1 || c.Limits.ActivityMax < 1 {
		return fmt.Errorf("collection limits must be positive")
	}
	if c.Limits.FilesFallback < 1 || c.Limits.FilesFallback > c.Limits.FilesMax {
		return fmt.Errorf("files_fallback must be between 1 and files_max (%d)", c.Limits.FilesMax)
	}
	if c.Limits.MaxFileBytes < 1 {
		return fmt.Errorf("max_file_bytes must be positive")
	}

	// The seeded account has to pass the same rules as any other account
	if err := users.ValidateCredentials(c.DefaultAdmin.Username, c.DefaultAdmin.Password); err != nil {
		return fmt.Errorf("default admin: %w", err)
	}

	if c.Server.Port < 1024 && os.Geteuid() != 0 {
		return fmt.Errorf("privileged port %d requires root", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
