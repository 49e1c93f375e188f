// Package config loads CLI-facing operator defaults from an optional YAML
// file: a struct with yaml/json tags and a DefaultCLIConfig constructor.
// This is unrelated to a collection's own meta.json, which is JSON and
// owned by internal/collection.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/polarisdb/polarisdb/internal/distance"
)

// HNSWDefaults mirrors the fields of hnsw.Config so this package doesn't
// need to import internal/hnsw just to round-trip YAML.
type HNSWDefaults struct {
	M              int `yaml:"m" json:"m"`
	MMax0          int `yaml:"m_max0" json:"m_max0"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	EfSearch       int `yaml:"ef_search" json:"ef_search"`
}

// CLIConfig holds operator-facing defaults, read by Load from a YAML file
// at a caller-given path.
type CLIConfig struct {
	DefaultPath   string       `yaml:"default_path,omitempty" json:"default_path,omitempty"`
	DefaultMetric string       `yaml:"default_metric" json:"default_metric"`
	HNSW          HNSWDefaults `yaml:"hnsw" json:"hnsw"`
}

// DefaultCLIConfig returns the built-in defaults used when no config file
// is present.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		DefaultMetric: "Cosine",
		HNSW: HNSWDefaults{
			M:              16,
			MMax0:          32,
			EfConstruction: 100,
			EfSearch:       50,
		},
	}
}

// Load reads a YAML config file at path, falling back to DefaultCLIConfig
// if path does not exist.
func Load(path string) (CLIConfig, error) {
	cfg := DefaultCLIConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Metric parses the configured default metric, falling back to Cosine on
// an unrecognized value.
func (c CLIConfig) Metric() distance.Metric {
	if m, ok := distance.ParseMetric(c.DefaultMetric); ok {
		return m
	}
	return distance.Cosine
}
