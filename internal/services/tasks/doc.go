// Package tasks is the service layer tying the queue core to its
// collaborators. It owns the dispatch flow (dequeue, resolve the payload
// through the cache, hand back on failure) and the completion flow (finalize
// in the queue, forward the report to the collector asynchronously).
//
// The queue itself never performs network I/O; everything slow happens here,
// outside the queue mutex.
package tasks
