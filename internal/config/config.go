// Package config loads agent configuration from a YAML file with
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied before file and environment layers.
const (
	DefaultServerAddress = "http://localhost:4040"
	DefaultLogLevel      = "info"
)

// Config is the agent binary's configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Application ApplicationConfig `yaml:"application"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig points the agent at an ingestion endpoint.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ApplicationConfig describes the profiled application.
type ApplicationConfig struct {
	Name          string            `yaml:"name"`
	Tags          map[string]string `yaml:"tags"`
	SourceMapPath []string          `yaml:"source_map_path"`
}

// LoggingConfig configures agent logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Address: DefaultServerAddress},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads configuration in three layers: defaults, then the YAML file
// at path (skipped when path is empty or the file does not exist), then
// DRIFTSCOPE_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env overrides still apply.
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	mergeFromEnv(cfg)
	return cfg, nil
}

// mergeFromEnv applies environment variable overrides.
func mergeFromEnv(cfg *Config) {
	if v := os.Getenv("DRIFTSCOPE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("DRIFTSCOPE_APPLICATION_NAME"); v != "" {
		cfg.Application.Name = v
	}
	if v := os.Getenv("DRIFTSCOPE_TAGS"); v != "" {
		cfg.Application.Tags = parseTags(v)
	}
	if v := os.Getenv("DRIFTSCOPE_SOURCE_MAP_PATH"); v != "" {
		cfg.Application.SourceMapPath = filepath.SplitList(v)
	}
	if v := os.Getenv("DRIFTSCOPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DRIFTSCOPE_LOG_PRETTY"); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Pretty = pretty
		}
	}
}

// parseTags parses "key=value,key2=value2". Entries without "=" are
// skipped.
func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			continue
		}
		tags[key] = value
	}
	return tags
}
