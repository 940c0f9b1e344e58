package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// demoConfig is the YAML configuration of the demo binary.
type demoConfig struct {
	Version int `yaml:"version"`
	Keys    struct {
		// Source selects the key source: "env", "awssm" or "vaultkv".
		Source string `yaml:"source"`
		// EncryptionKey and HMACKey are source-specific secret names:
		// environment variable names for "env", secret IDs for "awssm",
		// KV v2 paths for "vaultkv".
		EncryptionKey string `yaml:"encryption_key"`
		HMACKey       string `yaml:"hmac_key"`
	} `yaml:"keys"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	AWS struct {
		Region string `yaml:"region"`
	} `yaml:"aws"`
}

func loadDemoConfig(path string) (*demoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &demoConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	if cfg.Keys.Source == "" {
		cfg.Keys.Source = "env"
	}
	if cfg.Keys.EncryptionKey == "" || cfg.Keys.HMACKey == "" {
		return nil, fmt.Errorf("keys.encryption_key and keys.hmac_key are required")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "clinic.db"
	}
	return cfg, nil
}
