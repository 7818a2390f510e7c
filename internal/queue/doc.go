// Package queue implements the durable task queue core: the task store, the
// pending FIFO, lease-based delivery with an expiry sweep, and long-poll
// dispatch.
//
// # Lifecycle
//
//  1. Add: TaskAdded journaled, task appended to the pending FIFO, one
//     parked waiter woken.
//  2. Dequeue: pending head popped, a fresh delivery handle minted, lease
//     granted, TaskLeased journaled, all one atomic step under the queue
//     mutex. The handle is the worker's only key for Complete and Requeue.
//     Callers that cannot deliver the task (payload fetch failed) hand it
//     back via Requeue, which re-inserts at the HEAD so the task is not
//     starved by later arrivals.
//  3. Complete: valid only while the handle's lease is unexpired;
//     TaskCompleted journaled, task pruned from active indices. A late
//     completion after the sweep reclaimed the lease fails with
//     ErrStaleLease even if the task has since been re-leased: the new
//     holder has a new handle, and the old one no longer resolves.
//  4. Sweep: a background loop reclaims expired leases, re-appending tasks
//     at the pending TAIL (FIFO fairness among all pending tasks) and
//     journaling TaskRequeued.
//
// # Serialization
//
// One mutex guards tasks, the pending FIFO, the lease table, and the waiter
// list. Journal appends happen under that mutex, so a transition is never
// visible before it is durable, and the sweep can never race a concurrent
// completion into both outcomes. Outbound network calls (payload fetch,
// collector forwarding) happen in other packages, outside the mutex.
//
// # Long polling
//
// Dequeue with an empty FIFO parks the caller on a FIFO wait-list. Each
// waiter is woken at most once, by an enqueue/requeue signal or by its own
// deadline; a waiter that times out after being signaled forwards the signal
// to the next waiter so no wakeup is lost.
//
// # At-least-once
//
// Delivery is at-least-once with a single current owner: at any instant at
// most one worker holds an unexpired lease on a task. Duplicates occur when
// a worker outlives its lease; consumers are expected to be idempotent.
package queue
