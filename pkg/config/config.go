// Package config handles bifrost configuration via YAML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--data, --engine, etc.)
//  2. Environment variables (BIFROST_*)
//  3. Config file (bifrost.yaml)
//  4. Built-in defaults
//
// Environment Variables (all use BIFROST_ prefix):
//
// Storage:
//   - BIFROST_ENGINE="memory" or "badger"
//   - BIFROST_DATA_DIR="./data"
//   - BIFROST_IN_MEMORY=true
//
// Logging:
//   - BIFROST_LOG_LEVEL="INFO"
//   - BIFROST_LOG_FORMAT="text" or "json"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all bifrost configuration.
//
// Use LoadFromEnv to create a Config from environment variables, or
// LoadFromFile to layer a YAML file over the defaults.
type Config struct {
	// Storage settings
	Storage StorageConfig

	// Logging
	Logging LoggingConfig
}

// StorageConfig holds storage engine settings.
type StorageConfig struct {
	// Engine selects the storage backend: "memory" or "badger"
	Engine string
	// DataDir is the directory for badger data files
	DataDir string
	// InMemory runs badger without touching disk (testing, ephemeral use)
	InMemory bool
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string
	// Format is "text" or "json"
	Format string
}

// YAMLConfig mirrors the config file layout.
type YAMLConfig struct {
	Storage struct {
		Engine   string `yaml:"engine"`
		Path     string `yaml:"path"`
		InMemory bool   `yaml:"in_memory"`
	} `yaml:"storage"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadDefaults returns the built-in default configuration.
func LoadDefaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:  "memory",
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// LoadFromEnv builds a Config from BIFROST_* environment variables,
// falling back to defaults for anything unset.
func LoadFromEnv() *Config {
	config := LoadDefaults()

	config.Storage.Engine = getEnv("BIFROST_ENGINE", config.Storage.Engine)
	config.Storage.DataDir = getEnv("BIFROST_DATA_DIR", config.Storage.DataDir)
	config.Storage.InMemory = getEnvBool("BIFROST_IN_MEMORY", config.Storage.InMemory)

	config.Logging.Level = getEnv("BIFROST_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("BIFROST_LOG_FORMAT", config.Logging.Format)

	return config
}

// LoadFromFile layers the YAML file at configPath over the env config.
// A missing file is not an error; the env config is returned as-is.
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadFromEnv()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Storage.Engine != "" {
		config.Storage.Engine = yamlCfg.Storage.Engine
	}
	if yamlCfg.Storage.Path != "" {
		config.Storage.DataDir = yamlCfg.Storage.Path
	}
	if yamlCfg.Storage.InMemory {
		config.Storage.InMemory = true
	}
	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = yamlCfg.Logging.Format
	}

	return config, config.Validate()
}

// FindConfigFile looks for a config file in the conventional locations
// and returns the first one that exists, or "".
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".bifrost", "config.yaml"))
	}

	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "bifrost.yaml"))
	}

	candidates = append(candidates, "bifrost.yaml", "config.yaml")

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "bifrost", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "memory", "badger":
	default:
		return fmt.Errorf("invalid storage engine %q (expected \"memory\" or \"badger\")", c.Storage.Engine)
	}

	if c.Storage.Engine == "badger" && !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("badger engine requires a data directory")
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
