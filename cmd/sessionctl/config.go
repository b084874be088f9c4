package main

import (
	"fmt"
	"os"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML document read by --config. Unset fields keep their defaults.
type fileConfig struct {
	Backend string              `yaml:"backend"`
	File    string              `yaml:"file"`
	Redis   redisConfig         `yaml:"redis"`
	Session goAuthClient.Config `yaml:"session"`
}

type redisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend: "file",
		File:    defaultSessionFile(),
		Redis:   redisConfig{Prefix: "gac"},
		Session: goAuthClient.DefaultConfig(),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".sessionctl.json"
	}
	return dir + "/sessionctl/session.json"
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Session.Validate(); err != nil {
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	switch cfg.Backend {
	case "file", "redis", "memory":
	default:
		return fileConfig{}, fmt.Errorf("config %s: unknown backend %q", path, cfg.Backend)
	}
	return cfg, nil
}
