package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/NanzeRT/queues-demo/internal/config"
	"github.com/NanzeRT/queues-demo/internal/runtime"
	httpserver "github.com/NanzeRT/queues-demo/internal/server/http"
	logpkg "github.com/NanzeRT/queues-demo/pkg/log"
)

// Options configure a server run.
type Options struct {
	Config cfgpkg.Config
}

// Run starts the runtime and HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// pass a plain context still get clean shutdown on SIGINT/SIGTERM.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config

	logger, err := logpkg.ApplyConfig(&logpkg.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	// Redirect stdlib logs (e.g., Pebble) to our logger.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting queue server",
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("storage", cfg.StorageURL),
		logpkg.Str("collector", cfg.CollectorURL),
		logpkg.Dur("lease_ttl", cfg.LeaseTTL()),
		logpkg.Dur("get_task_wait", cfg.GetTaskWait()),
		logpkg.Str("level", cfg.LogLevel),
		logpkg.Str("format", cfg.LogFormat),
	)

	hsrv := httpserver.New(rt.Tasks(), httpserver.Options{
		DefaultWait: cfg.GetTaskWait(),
		Logger:      logger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			logger.Error("http server failed", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut the server down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}
