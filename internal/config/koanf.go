// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/folio/internal/recommend/algorithms"
	"github.com/tomtom215/folio/internal/vector"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/folio/config.yaml",
	"/etc/folio/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,

			CompressionMinSize:   1024,
			LatencyWindow:        1000,
			SlowRequestThreshold: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{
			Path:      "/data/folio.duckdb",
			MaxMemory: "1GB",
		},
		Vector: VectorConfig{
			Path:      "/data/vectors",
			Dimension: vector.DefaultDimension,
		},
		Embedding: EmbeddingConfig{
			Enabled:           true,
			URL:               "http://127.0.0.1:11434",
			Model:             "nomic-embed-text",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             2,
			BreakerFailures:   5,
			BreakerTimeout:    60 * time.Second,
		},
		Graph: GraphConfig{
			MinWeight:       0.3,
			Symmetric:       true,
			RebuildInterval: 0,
		},
		Traversal: algorithms.DefaultTraversalConfig(),
		PageRank:  algorithms.DefaultPageRankConfig(),
		Ranking: RankingConfig{
			TraversalWeight:     0.7,
			PageRankWeight:      0.3,
			MMRLambda:           0.7,
			DefaultLimit:        20,
			MaxLimit:            100,
			PreferenceMinRating: 4,
			PreferenceLimit:     10,
			CacheSize:           1000,
			CacheTTL:            5 * time.Minute,
			ColdStart:           true,
		},
		Indexer: IndexerConfig{
			NeighborK:       50,
			MinSimilarity:   0.3,
			MinEdgeWeight:   0.3,
			MaxRetries:      3,
			BackfillOnStart: true,
			BackfillLimit:   10000,
			BufferSize:      256,
			RebuildDebounce: 2 * time.Second,
		},
	}
}

// Load loads configuration using Koanf with layered sources.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"traversal.hop_thresholds",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// configSections are the top-level keys environment variables may target.
var configSections = map[string]struct{}{
	"server": {}, "logging": {}, "catalog": {}, "vector": {}, "embedding": {},
	"graph": {}, "traversal": {}, "pagerank": {}, "ranking": {}, "indexer": {},
}

// envAliases maps short, conventional names onto config paths.
var envAliases = map[string]string{
	"http_host":       "server.host",
	"http_port":       "server.port",
	"log_level":       "logging.level",
	"log_format":      "logging.format",
	"log_caller":      "logging.caller",
	"duckdb_path":     "catalog.path",
	"badger_path":     "vector.path",
	"ollama_url":      "embedding.url",
	"embedding_model": "embedding.model",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - GRAPH_MIN_WEIGHT -> graph.min_weight
//   - RANKING_MMR_LAMBDA -> ranking.mmr_lambda
//   - HTTP_PORT -> server.port
//   - PATH -> "" (ignored)
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envAliases[key]; ok {
		return mapped
	}

	section, rest, found := strings.Cut(key, "_")
	if !found || rest == "" {
		return ""
	}
	if _, ok := configSections[section]; !ok {
		return ""
	}
	return section + "." + rest
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
