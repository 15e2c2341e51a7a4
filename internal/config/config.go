// Package config loads the service configuration: defaults in code, then a
// YAML file override.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the import service.
type Config struct {
	// DataDir is the root for everything the service writes.
	DataDir string `mapstructure:"data_dir"`
	// DBPath is the SQLite database file; empty means DataDir/faturamento.db.
	DBPath string `mapstructure:"db_path"`
	// StagingDir holds staged artifacts and uploaded spreadsheets; empty
	// means DataDir/staging.
	StagingDir string `mapstructure:"staging_dir"`
	// HTTPAddr is the listen address for the serve command.
	HTTPAddr string `mapstructure:"http_addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "data",
		HTTPAddr: ":8085",
	}
}

// Load reads configuration from path (empty means ./faturamento.yaml) on
// top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "faturamento.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyDerived()
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.applyDerived()
	return cfg, nil
}

func (c *Config) applyDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "faturamento.db")
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(c.DataDir, "staging")
	}
}
