// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"runtime"
)

// Store drivers accepted by StoreDriver.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many event IDs are remembered for deduplication.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver picks the review log backend: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// Timezone is the IANA zone the study day is counted in. Empty means UTC.
	Timezone string `koanf:"timezone"`

	// RolloverHour is the local hour at which a new study day starts.
	RolloverHour int `koanf:"rollover_hour"`

	// AggregateShards splits report computation across goroutines.
	AggregateShards int `koanf:"aggregate_shards"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		EventQueueSize:  100_000,
		WorkerCount:     runtime.NumCPU() * 2,
		DedupeSize:      500_000,
		StoreDriver:     StoreMemory,
		SQLitePath:      "data/revlog.db",
		Timezone:        "UTC",
		RolloverHour:    4,
		AggregateShards: runtime.NumCPU(),
	}
}
