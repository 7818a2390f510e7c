package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address of the queue API.
	HTTPAddr string `json:"httpAddr"`

	// StorageURL is the base URL of the exploit storage service.
	StorageURL string `json:"storageUrl"`

	// CollectorURL is the base URL of the completion collector.
	CollectorURL string `json:"collectorUrl"`

	// GetTaskWaitMs is the default long-poll duration for get_task.
	GetTaskWaitMs int `json:"getTaskWaitMs"`

	// LeaseTTLMs is how long a worker may hold a task before it is
	// reissued.
	LeaseTTLMs int `json:"leaseTtlMs"`

	// SweepIntervalMs is the base period of the lease expiry sweep.
	SweepIntervalMs int `json:"sweepIntervalMs"`

	// CompactIntervalMs is the period of journal snapshot compaction.
	// Zero disables periodic compaction.
	CompactIntervalMs int `json:"compactIntervalMs"`

	// CacheSize bounds the payload cache (number of entries).
	CacheSize int `json:"cacheSize"`

	// DataDir holds the pebble database. Empty means DefaultDataDir().
	DataDir string `json:"dataDir"`

	// Fsync is "always", "interval" or "never".
	Fsync string `json:"fsync"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:          ":3000",
		StorageURL:        "http://localhost:3001",
		CollectorURL:      "http://localhost:3002",
		GetTaskWaitMs:     10_000,
		LeaseTTLMs:        30_000,
		SweepIntervalMs:   1_000,
		CompactIntervalMs: 60_000,
		CacheSize:         1024,
		Fsync:             "always",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// GetTaskWait returns the default long-poll duration.
func (c Config) GetTaskWait() time.Duration { return time.Duration(c.GetTaskWaitMs) * time.Millisecond }

// LeaseTTL returns the lease lifetime.
func (c Config) LeaseTTL() time.Duration { return time.Duration(c.LeaseTTLMs) * time.Millisecond }

// SweepInterval returns the expiry sweep period.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

// CompactInterval returns the snapshot compaction period.
func (c Config) CompactInterval() time.Duration {
	return time.Duration(c.CompactIntervalMs) * time.Millisecond
}

// Validate rejects configurations the runtime cannot start with.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: httpAddr is required")
	}
	if c.LeaseTTLMs <= 0 {
		return fmt.Errorf("config: leaseTtlMs must be positive")
	}
	if c.SweepIntervalMs <= 0 {
		return fmt.Errorf("config: sweepIntervalMs must be positive")
	}
	if c.GetTaskWaitMs < 0 || c.CompactIntervalMs < 0 || c.CacheSize < 0 {
		return fmt.Errorf("config: durations and sizes must not be negative")
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("config: fsync must be always, interval or never, got %q", c.Fsync)
	}
	return nil
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
