// Package config loads the optional YAML session/sink configuration file,
// the way src/deviceid.go loads tocalls.yaml: a small ordered list of
// search locations, and a missing file is not an error.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SinkEntry is one persisted sink's routing configuration.
type SinkEntry struct {
	EndpointIndex int `yaml:"endpoint_index"`
	Gain          int `yaml:"gain"`
	DelayMs       int `yaml:"delay_ms"`
}

// Config is the persisted session configuration (SPEC_FULL.md §3).
type Config struct {
	CaptureIndex int         `yaml:"capture_index"`
	UseLoopback  bool        `yaml:"use_loopback"`
	ServerPort   int         `yaml:"server_port"`
	DisplayName  string      `yaml:"display_name"`
	Sinks        []SinkEntry `yaml:"sinks"`
}

// Default is the configuration used when no file is found.
func Default() Config {
	return Config{
		CaptureIndex: -1,
		ServerPort:   5555,
		DisplayName:  "SyncWave",
	}
}

var searchLocations = []string{
	"syncwave.yaml",
	"config/syncwave.yaml",
	"/etc/syncwave/syncwave.yaml",
}

// Load searches searchLocations in order and parses the first file found.
// Absence of a config file anywhere in the search path is not an error;
// Default() is returned instead.
func Load() (Config, error) {
	var fp *os.File
	for _, loc := range searchLocations {
		f, err := os.Open(loc)
		if err == nil {
			fp = f
			break
		}
	}
	if fp == nil {
		return Default(), nil
	}
	defer fp.Close()

	data, err := io.ReadAll(fp)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", fp.Name(), err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", fp.Name(), err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
