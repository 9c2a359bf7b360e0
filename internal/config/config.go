// Package config loads defaults from DATASETS_* environment variables.
// Command-line flags take precedence over everything here.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/wision-lab/datasets/pkg/bytesize"
)

// Config holds tool-wide defaults.
type Config struct {
	// Object store
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string

	// Logging
	LogLevel  string
	LogFormat string // empty: console on a terminal, json otherwise

	// Sync
	Workers       int
	RetryAttempts int
	FetchTimeout  time.Duration

	// Rendering
	ChunkSize int64

	// Catalog
	CatalogPath string

	// Metrics endpoint (empty = disabled)
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Endpoint:      envOr("DATASETS_ENDPOINT", "https://web.s3.wisc.edu"),
		Bucket:        envOr("DATASETS_BUCKET", ""),
		Region:        envOr("DATASETS_REGION", "us-east-1"),
		AccessKey:     envOr("DATASETS_ACCESS_KEY", ""),
		SecretKey:     envOr("DATASETS_SECRET_KEY", ""),
		LogLevel:      envOr("DATASETS_LOG_LEVEL", "info"),
		LogFormat:     envOr("DATASETS_LOG_FORMAT", ""),
		Workers:       envInt("DATASETS_WORKERS", 4),
		RetryAttempts: envInt("DATASETS_RETRY_ATTEMPTS", 4),
		FetchTimeout:  envDuration("DATASETS_FETCH_TIMEOUT", 0),
		ChunkSize:     envSize("DATASETS_CHUNK_SIZE", 10*bytesize.G),
		CatalogPath:   envOr("DATASETS_CATALOG", ""),
		MetricsAddr:   envOr("DATASETS_METRICS_ADDR", ""),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envSize(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := bytesize.Parse(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
