package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Prober   ProberConfig   `yaml:"prober"`
	API      APIConfig      `yaml:"api"`
	GeoIP    GeoIPConfig    `yaml:"geoip"`
	Sources  []SourceConfig `yaml:"sources"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ProberConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

type APIConfig struct {
	Listen      string   `yaml:"listen"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
}

type SourceConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	// Defaults
	cfg.Database.Path = "linkprobe.db"
	cfg.Prober.Timeout = 3 * time.Second
	cfg.Prober.Concurrency = 10
	cfg.API.Listen = ":8001"
	cfg.API.CORSOrigins = []string{"*"}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if cfg.Prober.Concurrency <= 0 {
		cfg.Prober.Concurrency = 10
	}
	if cfg.Prober.Timeout <= 0 {
		cfg.Prober.Timeout = 3 * time.Second
	}

	return &cfg, nil
}

func (c *Config) FilterSources(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []SourceConfig
	for _, item := range c.Sources {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Sources = filtered
}
