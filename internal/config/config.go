package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Crawl modes select the shape of the visited-state store
const (
	ModeGraph   = "graph"
	ModeHistory = "history"
)

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL          string   `json:"seed_url"`
	MaxDepth         int      `json:"max_depth"`
	RequestTimeoutMs int      `json:"request_timeout_ms"`
	ShardCount       int      `json:"shard_count"`
	MaxInFlight      int      `json:"max_in_flight"`
	Mode             string   `json:"mode"`
	UserAgent        string   `json:"user_agent"`
	ExcludePatterns  []string `json:"exclude_patterns"`
	ReducerCacheSize int      `json:"reducer_cache_size"`
	GraphPath        string   `json:"graph_path"`
	DBPath           string   `json:"db_path"`
	MetricsPath      string   `json:"metrics_path"`
	MetricsAddr      string   `json:"metrics_addr"`
	LogLevel         string   `json:"log_level"`
}

// Default returns a configuration populated with default values.
// Fields absent from the JSON file keep these values.
func Default() Config {
	return Config{
		MaxDepth:         2,
		RequestTimeoutMs: 10000,
		ShardCount:       64,
		Mode:             ModeGraph,
		UserAgent:        "domain-weaver",
		ReducerCacheSize: 4096,
		GraphPath:        "graph.txt",
		MetricsPath:      "metrics.json",
		LogLevel:         "info",
	}
}

// LoadConfig reads and validates configuration from a JSON file.
// A .env file in the working directory and WEAVER_* variables are applied on top.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides file values with WEAVER_* environment variables
func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("WEAVER_SEED_URL")); v != "" {
		cfg.SeedURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WEAVER_MAX_DEPTH")); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEAVER_MAX_DEPTH: %w", err)
		}
		cfg.MaxDepth = depth
	}
	if v := strings.TrimSpace(os.Getenv("WEAVER_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks that required fields are present and values are sensible
func (cfg *Config) Validate() error {
	if cfg.SeedURL == "" {
		return fmt.Errorf("seed_url is required")
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0")
	}
	if cfg.RequestTimeoutMs < 100 {
		return fmt.Errorf("request_timeout_ms must be >= 100")
	}
	if cfg.ShardCount < 1 {
		return fmt.Errorf("shard_count must be >= 1")
	}
	if cfg.MaxInFlight < 0 {
		return fmt.Errorf("max_in_flight must be >= 0")
	}
	if cfg.Mode != ModeGraph && cfg.Mode != ModeHistory {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeGraph, ModeHistory, cfg.Mode)
	}
	if cfg.ReducerCacheSize < 1 {
		return fmt.Errorf("reducer_cache_size must be >= 1")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
