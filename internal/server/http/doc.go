// Package httpserver provides the JSON API of the queue: add_task,
// get_task (long poll), submit_completed, and a health endpoint.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt.Tasks(), httpserver.Options{})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":3000")
package httpserver
