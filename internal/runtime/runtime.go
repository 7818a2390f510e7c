package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NanzeRT/queues-demo/internal/cache"
	"github.com/NanzeRT/queues-demo/internal/collector"
	cfgpkg "github.com/NanzeRT/queues-demo/internal/config"
	"github.com/NanzeRT/queues-demo/internal/exploits"
	"github.com/NanzeRT/queues-demo/internal/journal"
	"github.com/NanzeRT/queues-demo/internal/queue"
	"github.com/NanzeRT/queues-demo/internal/services/tasks"
	pebblestore "github.com/NanzeRT/queues-demo/internal/storage/pebble"
	"github.com/NanzeRT/queues-demo/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger log.Logger
}

// Runtime wires storage, the journal, the queue core, and the task service
// for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	jl     *journal.Journal
	queue  *queue.Queue
	svc    *tasks.Service
	config cfgpkg.Config
	logger log.Logger

	compactStop chan struct{}
	compactDone chan struct{}
}

// Open validates the config, opens storage, replays the journal, and starts
// the background loops.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	fsync, err := fsyncMode(cfg.Fsync)
	if err != nil {
		return nil, err
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir, Fsync: fsync})
	if err != nil {
		return nil, fmt.Errorf("runtime: open storage: %w", err)
	}

	jl, err := journal.Open(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	q, err := queue.Open(ctx, jl, queue.Options{
		LeaseTTL:      cfg.LeaseTTL(),
		SweepInterval: cfg.SweepInterval(),
		Logger:        logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	storage := exploits.NewClient(cfg.StorageURL, logger)
	payloads, err := cache.New(cfg.CacheSize, cache.FetcherFunc(storage.GetExploit), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	forwarder := collector.NewClient(cfg.CollectorURL, logger)
	svc := tasks.New(q, payloads, forwarder, logger)

	rt := &Runtime{
		db:     db,
		jl:     jl,
		queue:  q,
		svc:    svc,
		config: cfg,
		logger: logger.With(log.Component("runtime")),
	}
	q.StartSweeper()
	if cfg.CompactInterval() > 0 {
		rt.compactStop = make(chan struct{})
		rt.compactDone = make(chan struct{})
		go rt.compactLoop(cfg.CompactInterval())
	}
	return rt, nil
}

func fsyncMode(s string) (pebblestore.FsyncMode, error) {
	switch s {
	case "always", "":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	}
	return 0, fmt.Errorf("runtime: unknown fsync mode %q", s)
}

func (r *Runtime) compactLoop(every time.Duration) {
	defer close(r.compactDone)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.compactStop:
			return
		case <-ticker.C:
		}
		if err := r.queue.Compact(context.Background()); err != nil {
			r.logger.Error("journal compaction failed", log.Err(err))
			return
		}
		r.logger.Debug("journal compacted")
	}
}

// Close stops background loops, drains in-flight completion forwards, and
// closes storage.
func (r *Runtime) Close() error {
	if r.compactStop != nil {
		close(r.compactStop)
		<-r.compactDone
		r.compactStop = nil
	}
	if r.queue != nil {
		r.queue.StopSweeper()
	}
	if r.svc != nil {
		r.svc.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth reports whether the instance can serve traffic.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	return r.queue.Health()
}

// Tasks returns the task service facade.
func (r *Runtime) Tasks() *tasks.Service { return r.svc }

// Queue exposes the queue core (internal use only).
func (r *Runtime) Queue() *queue.Queue { return r.queue }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
