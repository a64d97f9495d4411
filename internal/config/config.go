// Package config manages picsync configuration and the .picsync directory
// structure. It handles loading, saving, and initializing the catalog
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	Dir          = ".picsync"
	ConfigFile   = "config"
	DatabaseFile = "picsync.db"
	BlobsDir     = "blobs"
)

// BlobConfig selects and parameterizes the object-store backend.
type BlobConfig struct {
	// Backend is "fs", "s3", or "memory".
	Backend   string `toml:"backend"`
	Container string `toml:"container"`

	// Endpoint is the public base URL canonical image URLs are built from.
	Endpoint string `toml:"endpoint"`

	// S3 backend settings.
	Region    string `toml:"region,omitempty"`
	S3URL     string `toml:"s3_url,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
}

// SearchConfig points at the vector index.
type SearchConfig struct {
	URL   string `toml:"url"`
	Class string `toml:"class"`
}

// EmbedConfig points at the vectorizer service.
type EmbedConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions int    `toml:"dimensions"`
}

// TokenConfig holds the access-grant signing settings.
type TokenConfig struct {
	Secret string `toml:"secret"`
	// TTLHours is the grant lifetime; 0 means the 24h default.
	TTLHours int `toml:"ttl_hours,omitempty"`
}

// Config represents the picsync configuration
type Config struct {
	Owner  string       `toml:"owner"`
	Blob   BlobConfig   `toml:"blob"`
	Search SearchConfig `toml:"search"`
	Embed  EmbedConfig  `toml:"embed"`
	Token  TokenConfig  `toml:"token"`

	path string // path to .picsync directory
}

// FindRoot finds the .picsync directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		p := filepath.Join(dir, Dir)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a picsync catalog (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .picsync directory
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(root, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = root
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

// Path returns the path to the .picsync directory
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the sqlite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// BlobsPath returns the local blob directory used by the fs backend.
func (c *Config) BlobsPath() string {
	return filepath.Join(c.path, BlobsDir)
}

// Initialize creates a new .picsync directory with initial configuration
func Initialize(cfg *Config) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root := filepath.Join(cwd, Dir)

	// Check if already initialized
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("picsync catalog already exists")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	if cfg.Blob.Backend == "fs" {
		if err := os.MkdirAll(filepath.Join(root, BlobsDir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create blobs directory: %w", err)
		}
	}

	cfg.path = root
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}
