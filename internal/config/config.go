// Package config loads application configuration from an optional YAML file,
// layered over defaults. Environment variables in the file are expanded, so
// the GitHub token can be written as "${GITHUB_TOKEN}".
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all repo-health configuration.
type Config struct {
	Listen     string     `yaml:"listen"`
	Token      string     `yaml:"token"`
	Cache      Cache      `yaml:"cache"`
	Thresholds Thresholds `yaml:"thresholds"`
	Weights    Weights    `yaml:"weights"`
}

// Cache controls the raw-payload cache.
type Cache struct {
	Path     string `yaml:"path"`
	TTLHours int    `yaml:"ttl_hours"`
}

// TTL returns the entry time-to-live as a duration.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Thresholds holds the named cutoffs used by the metrics engine. These are
// product decisions, kept overridable rather than hardcoded.
type Thresholds struct {
	StaleDays       int `yaml:"stale_days"`
	LookbackDays    int `yaml:"lookback_days"`
	TopContributors int `yaml:"top_contributors"`
	MaxPages        int `yaml:"max_pages"`
	PerPage         int `yaml:"per_page"`
}

// Weights holds the relative weight of each health-score sub-score. They are
// normalized by their sum before use, so they need not add up to 1.
type Weights struct {
	Responsiveness float64 `yaml:"responsiveness"`
	Activity       float64 `yaml:"activity"`
	Community      float64 `yaml:"community"`
}

// Default returns a Config with sensible defaults. The token falls back to
// the GITHUB_TOKEN environment variable; absent, requests go out
// unauthenticated at the lower rate limit.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Token:  os.Getenv("GITHUB_TOKEN"),
		Cache: Cache{
			Path:     "repo-health.db",
			TTLHours: 24,
		},
		Thresholds: Thresholds{
			StaleDays:       30,
			LookbackDays:    30,
			TopContributors: 5,
			MaxPages:        10,
			PerPage:         100,
		},
		Weights: Weights{
			Responsiveness: 0.3,
			Activity:       0.4,
			Community:      0.3,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Lookback returns the activity window as a duration.
func (t Thresholds) Lookback() time.Duration {
	return time.Duration(t.LookbackDays) * 24 * time.Hour
}

// StaleAge returns the staleness cutoff as a duration.
func (t Thresholds) StaleAge() time.Duration {
	return time.Duration(t.StaleDays) * 24 * time.Hour
}
