package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/NanzeRT/queues-demo/internal/cmd/client"
	serverrun "github.com/NanzeRT/queues-demo/internal/cmd/server"
	cfgpkg "github.com/NanzeRT/queues-demo/internal/config"
	logpkg "github.com/NanzeRT/queues-demo/pkg/log"
)

func main() {
	// Respect QD_LOG_LEVEL for CLI output as well as server start.
	level := os.Getenv("QD_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "queues-demo",
		Short: "Durable task queue service",
		Long:  "queues-demo is a durable task queue with lease-based delivery. This CLI manages the server and basic queue operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the queue server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)

			// Flags win over file and env.
			if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
				cfg.DataDir = v
			}
			if v, _ := cmd.Flags().GetString("http"); v != "" {
				cfg.HTTPAddr = v
			}
			if v, _ := cmd.Flags().GetString("storage-url"); v != "" {
				cfg.StorageURL = v
			}
			if v, _ := cmd.Flags().GetString("collector-url"); v != "" {
				cfg.CollectorURL = v
			}
			if v, _ := cmd.Flags().GetString("fsync"); v != "" {
				cfg.Fsync = v
			}
			if v, _ := cmd.Flags().GetInt("lease-ttl-ms"); v > 0 {
				cfg.LeaseTTLMs = v
			}
			if v, _ := cmd.Flags().GetString("log-level"); v != "" {
				cfg.LogLevel = v
			}
			if v, _ := cmd.Flags().GetString("log-format"); v != "" {
				cfg.LogFormat = v
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to JSON config file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (defaults to an OS-specific application data directory)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :3000)")
	serverStartCmd.Flags().String("storage-url", "", "Exploit storage base URL (default http://localhost:3001)")
	serverStartCmd.Flags().String("collector-url", "", "Collector base URL (default http://localhost:3002)")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never (default always)")
	serverStartCmd.Flags().Int("lease-ttl-ms", 0, "Lease TTL in ms (default 30000)")
	serverStartCmd.Flags().String("log-level", os.Getenv("QD_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("QD_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// task commands
	rootCmd.AddCommand(clientcmd.NewTaskCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("QD_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:3000"
}
