// Package config loads server configuration from defaults, an optional YAML
// file, and environment variable overrides, in that order.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup. The data directory is
// injected here rather than derived from the process working directory, so
// tests and deployments can point the store anywhere.
type Config struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	DataDir        string   `yaml:"data_dir"`
	Backend        string   `yaml:"backend"`
	CorruptPolicy  string   `yaml:"corrupt_policy"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           "8080",
		DataDir:        "./data",
		Backend:        "json",
		CorruptPolicy:  "preserve",
		AllowedOrigins: []string{"*"},
	}
}

// Load builds the effective configuration. path may be empty, in which case
// only defaults and the environment apply. The YAML decoder runs in strict
// mode so typos in the file fail loudly instead of being ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("CORRUPT_POLICY"); v != "" {
		c.CorruptPolicy = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c.AllowedOrigins = parts
	}
}
