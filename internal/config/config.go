// Package config provides YAML-based configuration for the server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCORS"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains data directory settings.
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	TempDirectory string `yaml:"tempDirectory"`
	// PatternLibrary is an optional YAML file of default patterns loaded
	// at startup.
	PatternLibrary string `yaml:"patternLibrary"`
}

// ProcessingConfig contains extraction pipeline settings.
type ProcessingConfig struct {
	// ChunkSize overrides adaptive ingestion chunk sizing when > 0.
	ChunkSize int `yaml:"chunkSize"`
	// MaxRecords caps formatter output; past it the evenly-distributed
	// sub-sample fallback applies. 0 = unlimited.
	MaxRecords int `yaml:"maxRecords"`
	// SpillThreshold is the record count above which formatted records are
	// also written to the DuckDB spill store. 0 disables spilling.
	SpillThreshold         int `yaml:"spillThreshold"`
	DatasetTimeoutMinutes  int `yaml:"datasetTimeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level                string `yaml:"level"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "512M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			TempDirectory: "./data/temp",
		},
		Processing: ProcessingConfig{
			MaxRecords:             2000000,
			SpillThreshold:         500000,
			DatasetTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Logging: LoggingConfig{
			Level:                "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig reads a YAML config file, falling back to defaults when the
// file does not exist. Settings present in the file override defaults.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// GetServerAddr returns the listen address in host:port form.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the configured data directories.
func (c *AppConfig) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.Storage.TempDirectory} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the temp directory, derived from the data directory when
// not set explicitly.
func (c *AppConfig) TempDir() string {
	if c.Storage.TempDirectory != "" {
		return c.Storage.TempDirectory
	}
	return filepath.Join(c.Storage.DataDirectory, "temp")
}
