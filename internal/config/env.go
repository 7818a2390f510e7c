package config

import (
	"os"
	"strconv"
)

// FromEnv overlays QD_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("QD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("QD_STORAGE_URL"); v != "" {
		cfg.StorageURL = v
	}
	if v := os.Getenv("QD_COLLECTOR_URL"); v != "" {
		cfg.CollectorURL = v
	}
	if v := os.Getenv("QD_GET_TASK_WAIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GetTaskWaitMs = n
		}
	}
	if v := os.Getenv("QD_LEASE_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LeaseTTLMs = n
		}
	}
	if v := os.Getenv("QD_SWEEP_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SweepIntervalMs = n
		}
	}
	if v := os.Getenv("QD_COMPACT_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CompactIntervalMs = n
		}
	}
	if v := os.Getenv("QD_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheSize = n
		}
	}
	if v := os.Getenv("QD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QD_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("QD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
