// Package queue implements the shared admission queue: the ordered set of
// every operation that has been submitted and not yet finished or canceled.
package queue

import (
	"sync"

	"github.com/me/opgate/pkg/model"
)

// AdmissionQueue is an ordered collection of pending operation records.
// Order is insertion order, except for the privileged promote-to-front
// rule. A record appears at most once.
//
// All methods are safe for concurrent use. Each acquires the queue lock
// for the duration of one membership test, index lookup, insert, or
// remove; no transaction spans multiple queue operations.
type AdmissionQueue struct {
	mu      sync.Mutex
	records []*model.OpRecord
}

// New creates an empty admission queue. Queues are dependency-injected
// into schedulers so tests can run independent instances.
func New() *AdmissionQueue {
	return &AdmissionQueue{}
}

// Add appends rec to the back of the queue. Adding a record that is
// already present is a no-op.
func (q *AdmissionQueue) Add(rec *model.OpRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.indexOf(rec) >= 0 {
		return
	}
	q.records = append(q.records, rec)
}

// Remove deletes rec from the queue. Removing an absent record is a no-op.
func (q *AdmissionQueue) Remove(rec *model.OpRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(rec)
	if i < 0 {
		return
	}
	q.records = append(q.records[:i], q.records[i+1:]...)
}

// Position returns rec's zero-based queue position, or -1 if absent.
func (q *AdmissionQueue) Position(rec *model.OpRecord) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(rec)
}

// Len returns the number of pending records.
func (q *AdmissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// PromoteToFront moves rec to position 0, displacing FIFO order. Later
// promotions land in front of earlier ones. Absent records are ignored.
func (q *AdmissionQueue) PromoteToFront(rec *model.OpRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(rec)
	if i <= 0 {
		return
	}
	copy(q.records[1:i+1], q.records[:i])
	q.records[0] = rec
}

// Eligible reports whether rec may run now: its position is inside the
// base slots, or inside the extra slots and the record is not a large
// kind. Absent records are never eligible.
func (q *AdmissionQueue) Eligible(rec *model.OpRecord, baseSlots, extraSlots int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos := q.indexOf(rec)
	if pos < 0 {
		return false
	}
	if pos < baseSlots {
		return true
	}
	return pos < baseSlots+extraSlots && !rec.Large
}

// Duplicate returns an older pending record sharing rec's identity, or
// nil. Records in the queue are pending by invariant (terminal records
// are removed), so membership alone marks a live conflict.
func (q *AdmissionQueue) Duplicate(rec *model.OpRecord) *model.OpRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, other := range q.records {
		if other == rec {
			continue
		}
		if other.Identity() == rec.Identity() && other.Seq < rec.Seq {
			return other
		}
	}
	return nil
}

// Snapshot returns the current queue order. The returned slice is a copy;
// the records themselves are shared.
func (q *AdmissionQueue) Snapshot() []*model.OpRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*model.OpRecord, len(q.records))
	copy(out, q.records)
	return out
}

// indexOf returns rec's index or -1. Caller holds q.mu.
func (q *AdmissionQueue) indexOf(rec *model.OpRecord) int {
	for i, r := range q.records {
		if r == rec {
			return i
		}
	}
	return -1
}
