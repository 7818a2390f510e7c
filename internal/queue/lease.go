package queue

import (
	"container/list"

	"github.com/NanzeRT/queues-demo/pkg/id"
)

// lease records one outstanding delivery. delivery is the handle minted at
// grant time; it dies with the lease, so a handle from before a requeue can
// never match the lease of a later holder.
type lease struct {
	task       id.ID
	delivery   id.ID
	deadlineMs int64
	elem       *list.Element
}

// leaseTable indexes active leases by task and by delivery handle, and keeps
// them in grant order. Every lease carries the same TTL, so grant order
// equals expiry order and the sweep only ever needs to look at the front of
// the list.
type leaseTable struct {
	byTask     map[id.ID]*lease
	byDelivery map[id.ID]*lease
	order      *list.List
}

func newLeaseTable() *leaseTable {
	return &leaseTable{
		byTask:     make(map[id.ID]*lease),
		byDelivery: make(map[id.ID]*lease),
		order:      list.New(),
	}
}

func (lt *leaseTable) grant(task, delivery id.ID, deadlineMs int64) {
	l := &lease{task: task, delivery: delivery, deadlineMs: deadlineMs}
	l.elem = lt.order.PushBack(l)
	lt.byTask[task] = l
	lt.byDelivery[delivery] = l
}

func (lt *leaseTable) getDelivery(delivery id.ID) (*lease, bool) {
	l, ok := lt.byDelivery[delivery]
	return l, ok
}

func (lt *leaseTable) drop(task id.ID) bool {
	l, ok := lt.byTask[task]
	if !ok {
		return false
	}
	lt.order.Remove(l.elem)
	delete(lt.byTask, task)
	delete(lt.byDelivery, l.delivery)
	return true
}

// oldest returns the lease closest to expiry, or nil when none are held.
func (lt *leaseTable) oldest() *lease {
	front := lt.order.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*lease)
}

func (lt *leaseTable) len() int { return len(lt.byTask) }
