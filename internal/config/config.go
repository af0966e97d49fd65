// Package config loads the coordinator's YAML configuration, including
// the nodegroup table.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fleetward/fleetward/pkg/target"
)

// Config is the coordinator configuration file. Environment variables in
// cmd/fleetward-master override the listen address and database DSN.
type Config struct {
	Addr        string            `yaml:"addr"`
	DatabaseDSN string            `yaml:"database_dsn"`
	RangeHost   string            `yaml:"range_host"`
	RangePort   int               `yaml:"range_port"`
	Maxflight   int               `yaml:"maxflight"`
	Nodegroups  map[string]string `yaml:"nodegroups"`
}

// Load reads and validates a coordinator config file. Every nodegroup
// definition must at least parse; unknown references and cycles are
// resolution-time conditions and are not checked here.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := target.Nodegroups(cfg.Nodegroups).Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// NodegroupTable returns the declared nodegroups as an immutable-by-
// convention table for the resolver.
func (c *Config) NodegroupTable() target.Nodegroups {
	out := make(target.Nodegroups, len(c.Nodegroups))
	for name, def := range c.Nodegroups {
		out[name] = def
	}
	return out
}
