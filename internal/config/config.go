// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	Content struct {
		CacheSize int `json:"cache_size"`
	} `json:"content"`

	Environment string `json:"environment"` // dev, prod
	LogLevel    string `json:"log_level"`   // debug, info, warn, error
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{
		Environment: "development",
		LogLevel:    "info",
	}
	cfg.Content.CacheSize = 1024
	return cfg
}

func getConfigPath() string {
	env := os.Getenv("STASH_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads the config file at path, falling back to the
// per-environment default location when path is empty. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getConfigPath()
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
