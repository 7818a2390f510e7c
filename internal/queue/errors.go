package queue

import "errors"

var (
	// ErrStaleLease is returned when a completion or requeue names a task
	// that has no active lease. The usual cause is a worker reporting after
	// the sweep already reclaimed its lease.
	ErrStaleLease = errors.New("queue: stale lease")

	// ErrWedged is returned once a journal write has failed. The in-memory
	// state may be ahead of or behind the log at that point, so the queue
	// refuses all further mutations until the process restarts and replays.
	ErrWedged = errors.New("queue: wedged after journal write failure")
)
