package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/NanzeRT/queues-demo/internal/cache"
	"github.com/NanzeRT/queues-demo/internal/collector"
	"github.com/NanzeRT/queues-demo/internal/queue"
	"github.com/NanzeRT/queues-demo/pkg/id"
	"github.com/NanzeRT/queues-demo/pkg/log"
)

// Service coordinates the queue, the payload cache, and the collector.
type Service struct {
	queue     *queue.Queue
	payloads  *cache.Cache
	forwarder Forwarder
	logger    log.Logger

	forwards sync.WaitGroup
}

// New wires a Service. forwarder may be nil, in which case completions are
// finalized but not reported anywhere; useful in tests.
func New(q *queue.Queue, payloads *cache.Cache, forwarder Forwarder, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Service{
		queue:     q,
		payloads:  payloads,
		forwarder: forwarder,
		logger:    logger.With(log.Component("tasks")),
	}
}

// Add enqueues a new task for submissionID and returns its id.
func (s *Service) Add(ctx context.Context, submissionID string) (id.ID, error) {
	if submissionID == "" {
		return id.Zero, ErrEmptySubmissionID
	}
	taskID, err := s.queue.Add(ctx, submissionID)
	if err != nil {
		return id.Zero, err
	}
	s.logger.Info("task added",
		log.Str("task_id", taskID.String()),
		log.Str("submission_id", submissionID))
	return taskID, nil
}

// Get dequeues the next task and resolves its payload, waiting up to wait
// for one to appear. A nil view with a nil error means nothing was available
// in time.
//
// If the payload cannot be fetched, the lease is handed back and the task
// returns to the front of the queue; the caller sees the same answer as an
// empty queue and is expected to poll again.
func (s *Service) Get(ctx context.Context, wait time.Duration) (*TaskView, error) {
	d, err := s.queue.Dequeue(ctx, wait)
	if err != nil || d == nil {
		return nil, err
	}

	exploit, err := s.payloads.Get(ctx, d.Task.SubmissionID)
	if err != nil {
		s.logger.Warn("payload fetch failed, returning task to queue",
			log.Str("task_id", d.Task.ID.String()),
			log.Str("submission_id", d.Task.SubmissionID),
			log.Err(err))
		if rqErr := s.queue.Requeue(ctx, d.ID); rqErr != nil {
			s.logger.Error("could not return task to queue",
				log.Str("task_id", d.Task.ID.String()),
				log.Err(rqErr))
		}
		return nil, nil
	}

	return &TaskView{
		ID:           d.ID,
		SubmissionID: d.Task.SubmissionID,
		Exploit:      exploit,
	}, nil
}

// Complete finalizes the task behind a delivery handle and forwards the
// report. The completion is durable before this returns; forwarding happens
// in the background and is never rolled back into the queue, the collector
// client's retry budget is the only delivery guarantee.
func (s *Service) Complete(ctx context.Context, deliveryID id.ID, info string) error {
	submissionID, err := s.queue.Complete(ctx, deliveryID)
	if err != nil {
		return err
	}
	s.logger.Info("task completed",
		log.Str("delivery_id", deliveryID.String()),
		log.Str("submission_id", submissionID))

	if s.forwarder == nil {
		return nil
	}
	s.forwards.Add(1)
	go func() {
		defer s.forwards.Done()
		if err := s.forwarder.Submit(context.Background(), collector.Completion{
			SubmissionID: submissionID,
			Info:         info,
		}); err != nil {
			s.logger.Error("completion report dropped",
				log.Str("submission_id", submissionID),
				log.Err(err))
		}
	}()
	return nil
}

// Health reports nil while the queue accepts mutations.
func (s *Service) Health() error { return s.queue.Health() }

// Stats returns current pending and leased counts.
func (s *Service) Stats() (pending, leased int) {
	return s.queue.PendingLen(), s.queue.LeasedLen()
}

// Close waits for in-flight completion forwards to drain.
func (s *Service) Close() {
	s.forwards.Wait()
}
