package queue

import (
	"container/list"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/NanzeRT/queues-demo/internal/journal"
	"github.com/NanzeRT/queues-demo/pkg/id"
	"github.com/NanzeRT/queues-demo/pkg/log"
)

const (
	// DefaultLeaseTTL bounds how long a worker may hold a task before the
	// sweep hands it to someone else.
	DefaultLeaseTTL = 30 * time.Second

	// DefaultSweepInterval is how often expired leases are reclaimed.
	DefaultSweepInterval = time.Second
)

// Options configures a Queue.
type Options struct {
	// LeaseTTL is the fixed lifetime of every lease. Zero means
	// DefaultLeaseTTL.
	LeaseTTL time.Duration

	// SweepInterval is the base period of the background expiry sweep.
	// Zero means DefaultSweepInterval.
	SweepInterval time.Duration

	Logger log.Logger
}

// waiter is one parked Dequeue call. The channel has capacity 1 and receives
// at most one signal; notified flips exactly when that signal is sent.
type waiter struct {
	ch       chan struct{}
	notified bool
}

// Queue is the durable FIFO task queue. All state transitions append to the
// journal before they become visible, under a single mutex, so the on-disk
// log is never behind what a client has observed.
type Queue struct {
	jl        *journal.Journal
	ids       *id.Generator
	ttl       time.Duration
	sweepBase time.Duration
	logger    log.Logger

	mu      sync.Mutex
	tasks   map[id.ID]*Task
	pending []id.ID
	leases  *leaseTable
	waiters *list.List
	wedged  error

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// Open rebuilds a Queue from the journal. Tasks whose leases expired while
// the process was down are moved back to the pending tail in memory only;
// the log already says they were leased, and replaying that again after the
// next restart converges to the same answer.
func Open(ctx context.Context, jl *journal.Journal, opts Options) (*Queue, error) {
	if opts.LeaseTTL == 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.NewLogger()
	}

	q := &Queue{
		jl:        jl,
		ids:       id.NewGenerator(),
		ttl:       opts.LeaseTTL,
		sweepBase: opts.SweepInterval,
		logger:    opts.Logger.With(log.Component("queue")),
		tasks:     make(map[id.ID]*Task),
		leases:    newLeaseTable(),
		waiters:   list.New(),
	}

	truncated, err := jl.Replay(ctx, q.applySnapshot, q.applyRecord)
	if err != nil {
		return nil, fmt.Errorf("queue: replay: %w", err)
	}
	if truncated > 0 {
		q.logger.Warn("discarded torn journal tail", log.Int("records", truncated))
	}

	now := time.Now().UnixMilli()
	reclaimed := 0
	for {
		l := q.leases.oldest()
		if l == nil || l.deadlineMs > now {
			break
		}
		q.leases.drop(l.task)
		q.pending = append(q.pending, l.task)
		reclaimed++
	}

	q.logger.Info("queue recovered",
		log.Int("pending", len(q.pending)),
		log.Int("leased", q.leases.len()),
		log.Int("reclaimed", reclaimed))
	return q, nil
}

func (q *Queue) applySnapshot(snap *journal.Snapshot) error {
	for _, ts := range snap.Tasks {
		taskID, err := id.Parse(ts.ID)
		if err != nil {
			return fmt.Errorf("queue: snapshot task id %q: %w", ts.ID, err)
		}
		q.tasks[taskID] = &Task{
			ID:           taskID,
			SubmissionID: ts.SubmissionID,
			CreatedAtMs:  ts.CreatedAtMs,
		}
		if ts.Leased {
			deliveryID, err := id.Parse(ts.DeliveryID)
			if err != nil {
				return fmt.Errorf("queue: snapshot delivery id %q: %w", ts.DeliveryID, err)
			}
			q.leases.grant(taskID, deliveryID, ts.DeadlineMs)
		} else {
			q.pending = append(q.pending, taskID)
		}
	}
	return nil
}

func (q *Queue) applyRecord(_ uint64, rec journal.Record) error {
	switch rec.Op {
	case journal.OpTaskAdded:
		if _, ok := q.tasks[rec.Task]; ok {
			return nil
		}
		q.tasks[rec.Task] = &Task{
			ID:           rec.Task,
			SubmissionID: rec.SubmissionID,
			CreatedAtMs:  rec.AtMs,
		}
		q.pending = append(q.pending, rec.Task)
	case journal.OpTaskLeased:
		q.removePending(rec.Task)
		q.leases.drop(rec.Task)
		q.leases.grant(rec.Task, rec.Delivery, rec.DeadlineMs)
	case journal.OpTaskCompleted:
		q.removePending(rec.Task)
		q.leases.drop(rec.Task)
		delete(q.tasks, rec.Task)
	case journal.OpTaskRequeued:
		if q.leases.drop(rec.Task) {
			q.pending = append(q.pending, rec.Task)
		}
	}
	return nil
}

func (q *Queue) removePending(task id.ID) {
	for i, p := range q.pending {
		if p == task {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// wedge latches the queue into a refuse-all-mutations state. Caller holds
// q.mu.
func (q *Queue) wedge(cause error) error {
	if q.wedged == nil {
		q.wedged = fmt.Errorf("%w: %v", ErrWedged, cause)
		q.logger.Error("journal write failed, refusing further mutations", log.Err(cause))
	}
	return q.wedged
}

// Health reports nil while the queue accepts mutations.
func (q *Queue) Health() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.wedged
}

// Add journals and enqueues a new task, waking one parked consumer.
func (q *Queue) Add(ctx context.Context, submissionID string) (id.ID, error) {
	taskID := q.ids.Next()
	now := time.Now().UnixMilli()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.wedged != nil {
		return id.Zero, q.wedged
	}
	_, err := q.jl.Append(ctx, journal.Record{
		Op:           journal.OpTaskAdded,
		AtMs:         now,
		Task:         taskID,
		SubmissionID: submissionID,
	})
	if err != nil {
		return id.Zero, q.wedge(err)
	}
	q.tasks[taskID] = &Task{ID: taskID, SubmissionID: submissionID, CreatedAtMs: now}
	q.pending = append(q.pending, taskID)
	q.notifyOneLocked()
	return taskID, nil
}

// Dequeue pops the oldest pending task and grants a lease on it, returning a
// Delivery whose ID is the handle for Complete and Requeue. When the queue is
// empty it parks for up to wait; (nil, nil) means the wait elapsed with
// nothing to hand out.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)

	q.mu.Lock()
	for {
		if q.wedged != nil {
			err := q.wedged
			q.mu.Unlock()
			return nil, err
		}
		if d, err := q.popLocked(ctx); d != nil || err != nil {
			q.mu.Unlock()
			return d, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			q.mu.Unlock()
			return nil, nil
		}

		w := &waiter{ch: make(chan struct{}, 1)}
		elem := q.waiters.PushBack(w)
		q.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-w.ch:
			timer.Stop()
			q.mu.Lock()
			// loop: the signaled task may already be gone to a
			// fresh Dequeue call that never parked.
		case <-timer.C:
			q.abandonWaiter(elem, w)
			return nil, nil
		case <-ctx.Done():
			timer.Stop()
			q.abandonWaiter(elem, w)
			return nil, ctx.Err()
		}
	}
}

// popLocked takes the pending head, mints a fresh delivery handle, and grants
// the lease, journaling the transition first. A journal failure leaves
// pending untouched.
func (q *Queue) popLocked(ctx context.Context) (*Delivery, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	taskID := q.pending[0]
	deliveryID := q.ids.Next()
	now := time.Now().UnixMilli()
	deadlineMs := now + q.ttl.Milliseconds()

	_, err := q.jl.Append(ctx, journal.Record{
		Op:         journal.OpTaskLeased,
		AtMs:       now,
		Task:       taskID,
		Delivery:   deliveryID,
		DeadlineMs: deadlineMs,
	})
	if err != nil {
		return nil, q.wedge(err)
	}
	q.pending = q.pending[1:]
	q.leases.grant(taskID, deliveryID, deadlineMs)
	return &Delivery{ID: deliveryID, Task: q.tasks[taskID]}, nil
}

// notifyOneLocked wakes the longest-parked waiter, if any. Caller holds
// q.mu. The waiter is removed from the list before the send, so it can never
// be signaled twice.
func (q *Queue) notifyOneLocked() {
	front := q.waiters.Front()
	if front == nil {
		return
	}
	w := front.Value.(*waiter)
	q.waiters.Remove(front)
	w.notified = true
	w.ch <- struct{}{}
}

// abandonWaiter retires a waiter that stopped listening. If a signal already
// reached it, the signal is forwarded to the next waiter so a wakeup is
// never lost.
func (q *Queue) abandonWaiter(elem *list.Element, w *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !w.notified {
		q.waiters.Remove(elem)
		return
	}
	<-w.ch
	if len(q.pending) > 0 {
		q.notifyOneLocked()
	}
}

// Complete finishes the task behind an active delivery handle and returns
// its submission id. A handle whose lease expired or was reclaimed gets
// ErrStaleLease: redelivery mints a new handle, so a late report from an
// evicted worker can never complete the task out from under the current
// holder.
func (q *Queue) Complete(ctx context.Context, deliveryID id.ID) (string, error) {
	now := time.Now().UnixMilli()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.wedged != nil {
		return "", q.wedged
	}
	l, ok := q.leases.getDelivery(deliveryID)
	if !ok || l.deadlineMs <= now {
		return "", ErrStaleLease
	}
	_, err := q.jl.Append(ctx, journal.Record{
		Op:   journal.OpTaskCompleted,
		AtMs: now,
		Task: l.task,
	})
	if err != nil {
		return "", q.wedge(err)
	}
	taskID := l.task
	q.leases.drop(taskID)
	t := q.tasks[taskID]
	delete(q.tasks, taskID)
	return t.SubmissionID, nil
}

// Requeue returns the task behind a delivery handle to the FRONT of the
// pending queue. It exists for the dispatch path: when the payload fetch
// fails after the lease was granted, the task should be next in line again
// rather than punished with a trip to the tail.
func (q *Queue) Requeue(ctx context.Context, deliveryID id.ID) error {
	now := time.Now().UnixMilli()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.wedged != nil {
		return q.wedged
	}
	l, ok := q.leases.getDelivery(deliveryID)
	if !ok {
		return ErrStaleLease
	}
	_, err := q.jl.Append(ctx, journal.Record{
		Op:   journal.OpTaskRequeued,
		AtMs: now,
		Task: l.task,
	})
	if err != nil {
		return q.wedge(err)
	}
	taskID := l.task
	q.leases.drop(taskID)
	q.pending = append([]id.ID{taskID}, q.pending...)
	q.notifyOneLocked()
	return nil
}

// sweepExpired reclaims every lease past its deadline, re-appending the
// tasks at the pending tail. Holding q.mu for the whole pass means a
// concurrent Complete either lands before the sweep (and wins) or after it
// (and sees ErrStaleLease); a task is never both completed and requeued.
func (q *Queue) sweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UnixMilli()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.wedged != nil {
		return 0, q.wedged
	}
	n := 0
	for {
		l := q.leases.oldest()
		if l == nil || l.deadlineMs > now {
			break
		}
		_, err := q.jl.Append(ctx, journal.Record{
			Op:   journal.OpTaskRequeued,
			AtMs: now,
			Task: l.task,
		})
		if err != nil {
			return n, q.wedge(err)
		}
		q.leases.drop(l.task)
		q.pending = append(q.pending, l.task)
		q.notifyOneLocked()
		n++
	}
	return n, nil
}

// StartSweeper launches the background expiry sweep. Safe to call once.
func (q *Queue) StartSweeper() {
	if q.sweepStop != nil {
		return
	}
	q.sweepStop = make(chan struct{})
	q.sweepDone = make(chan struct{})
	go q.sweepLoop()
}

// StopSweeper stops the sweep and waits for it to exit.
func (q *Queue) StopSweeper() {
	if q.sweepStop == nil {
		return
	}
	close(q.sweepStop)
	<-q.sweepDone
	q.sweepStop = nil
	q.sweepDone = nil
}

func (q *Queue) sweepLoop() {
	defer close(q.sweepDone)
	for {
		// Jitter up to 10% so co-located instances don't sweep in
		// lockstep.
		delay := q.sweepBase + rand.N(q.sweepBase/10+1)
		timer := time.NewTimer(delay)
		select {
		case <-q.sweepStop:
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := q.sweepExpired(context.Background())
		if err != nil {
			q.logger.Error("lease sweep aborted", log.Err(err))
			return
		}
		q.logger.Debug("sweep tick",
			log.Int("reclaimed", n),
			log.Int("pending", q.PendingLen()),
			log.Int("leased", q.LeasedLen()))
	}
}

// PendingLen reports how many tasks are waiting for a lease.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// LeasedLen reports how many tasks are currently leased out.
func (q *Queue) LeasedLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.leases.len()
}

// SnapshotState captures all live tasks, pending in FIFO order followed by
// leased in grant order.
func (q *Queue) SnapshotState() journal.Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotStateLocked()
}

func (q *Queue) snapshotStateLocked() journal.Snapshot {
	var snap journal.Snapshot
	for _, taskID := range q.pending {
		t := q.tasks[taskID]
		snap.Tasks = append(snap.Tasks, journal.TaskState{
			ID:           t.ID.String(),
			SubmissionID: t.SubmissionID,
			CreatedAtMs:  t.CreatedAtMs,
		})
	}
	for e := q.leases.order.Front(); e != nil; e = e.Next() {
		l := e.Value.(*lease)
		t := q.tasks[l.task]
		snap.Tasks = append(snap.Tasks, journal.TaskState{
			ID:           t.ID.String(),
			SubmissionID: t.SubmissionID,
			Leased:       true,
			CreatedAtMs:  t.CreatedAtMs,
			DeadlineMs:   l.deadlineMs,
			DeliveryID:   l.delivery.String(),
		})
	}
	return snap
}

// Compact folds the live state into a snapshot and drops the journal entries
// it covers. Replay semantics are unchanged; only startup cost shrinks.
func (q *Queue) Compact(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.wedged != nil {
		return q.wedged
	}
	return q.jl.WriteSnapshot(ctx, q.snapshotStateLocked())
}
