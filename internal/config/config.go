// Package config loads server configuration from a JSON or YAML file with
// NUGET_SERVER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store types selectable via `filestore.type`.
const (
	StoreMemory = "memory"
	StoreLocal  = "local"
	StoreGCP    = "gcp"
)

// Config is the server configuration.
type Config struct {
	// HostURL is the absolute base URL clients reach the server on. It is
	// used to build packageContent and registration URLs.
	HostURL string `mapstructure:"host-url"`
	// Listen is the address the HTTP server binds to.
	Listen    string    `mapstructure:"listen"`
	FileStore FileStore `mapstructure:"filestore"`
	APIKeys   APIKeys   `mapstructure:"api-keys"`
}

// FileStore selects and parameterizes the blob store backend.
type FileStore struct {
	Type           string `mapstructure:"type"`
	LocalDirectory string `mapstructure:"local-directory"`
	StorageBucket  string `mapstructure:"storage-bucket"`
	ProjectID      string `mapstructure:"project-id"`
}

// APIKeys holds the hard coded access keys. With no keys at all the server
// runs in free access mode.
type APIKeys struct {
	ReadOnly  []string `mapstructure:"read-only"`
	ReadWrite []string `mapstructure:"read-write"`
}

// Load reads configuration from path, or from nuget-server-config.{json,yaml}
// in the working directory when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("host-url", "http://localhost:8080")
	v.SetDefault("listen", ":8080")
	v.SetDefault("filestore.type", StoreLocal)
	v.SetDefault("filestore.local-directory", "./packages")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nuget-server-config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("NUGET_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	switch cfg.FileStore.Type {
	case StoreMemory, StoreLocal, StoreGCP:
	default:
		return nil, fmt.Errorf("unknown filestore type %q", cfg.FileStore.Type)
	}
	if cfg.FileStore.Type == StoreGCP && cfg.FileStore.StorageBucket == "" {
		return nil, fmt.Errorf("filestore type %q requires storage-bucket", StoreGCP)
	}
	cfg.HostURL = strings.TrimRight(cfg.HostURL, "/")
	return &cfg, nil
}

// CanRead reports whether key grants read access. Reads are open unless
// read-only keys are configured.
func (c *Config) CanRead(key string) bool {
	if len(c.APIKeys.ReadOnly) == 0 {
		return true
	}
	return contains(c.APIKeys.ReadOnly, key) || contains(c.APIKeys.ReadWrite, key)
}

// CanWrite reports whether key grants write access. Writes are open only
// when no keys at all are configured.
func (c *Config) CanWrite(key string) bool {
	if len(c.APIKeys.ReadOnly) == 0 && len(c.APIKeys.ReadWrite) == 0 {
		return true
	}
	return contains(c.APIKeys.ReadWrite, key)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
