// Package config provides loading and environment overlay for the queue
// service configuration. It exposes a Default() baseline, JSON file loading,
// and QD_* environment variable overrides.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/queues-demo.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
