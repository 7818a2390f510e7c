package queue

import "github.com/NanzeRT/queues-demo/pkg/id"

// Task is one unit of work. The payload is not stored here; it is resolved
// from the storage service at dequeue time, keyed by SubmissionID.
type Task struct {
	ID           id.ID
	SubmissionID string
	CreatedAtMs  int64
}

// Delivery is one granted lease on a task. ID is the handle minted at grant
// time; workers complete or hand back the task with it. A handle becomes
// useless the moment its lease ends, so a worker that lost the task to the
// sweep cannot affect the next holder.
type Delivery struct {
	ID   id.ID
	Task *Task
}
