// Package runtime wires storage, the journal, the queue, and the outbound
// clients into a single-node instance. It exposes Open/Close, a health
// check, and the task service used by the HTTP server.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	view, _ := rt.Tasks().Get(ctx, cfg.GetTaskWait())
package runtime
