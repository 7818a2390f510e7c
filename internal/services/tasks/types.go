package tasks

import (
	"context"
	"errors"

	"github.com/NanzeRT/queues-demo/internal/collector"
	"github.com/NanzeRT/queues-demo/pkg/id"
)

// TaskView is a dequeued task with its payload resolved, ready to hand to a
// worker. ID is the delivery handle for this lease, not the task's creation
// id; it is what submit_completed must present, and it stops resolving once
// the lease expires and the task is handed to someone else.
type TaskView struct {
	ID           id.ID
	SubmissionID string
	Exploit      string
}

// Forwarder delivers completion reports downstream. *collector.Client is the
// production implementation.
type Forwarder interface {
	Submit(ctx context.Context, comp collector.Completion) error
}

// ErrEmptySubmissionID rejects enqueue requests with no submission id.
var ErrEmptySubmissionID = errors.New("tasks: submission id is empty")
