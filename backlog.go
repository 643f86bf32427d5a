// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"time"

	"github.com/google/uuid"
)

// A backlogEntry is a failed production attempt pending retry.
//
// It is created on the first failure, re-attempted once its retry delay has
// elapsed, mutated in place on each renewed failure, and removed once it
// succeeds or the attempt ceiling is reached.
type backlogEntry[K any] struct {
	// id tags the entry in logs and in the AttemptsExhaustedError that
	// reports its terminal failure.
	id uuid.UUID

	// key is the opaque input value to replay.
	key K

	failedAt    time.Time
	failedCount int
	lastErr     error
}

func newBacklogEntry[K any](key K, now time.Time, err error) *backlogEntry[K] {
	return &backlogEntry[K]{
		id:          uuid.New(),
		key:         key,
		failedAt:    now,
		failedCount: 1,
		lastErr:     err,
	}
}

// backlog holds the failed attempts of a single retrying sequence. Like the
// sequence that owns it, it is single-owner and needs no locking.
type backlog[K any] struct {
	order   BacklogOrder
	entries []*backlogEntry[K]
}

func (b *backlog[K]) len() int {
	return len(b.entries)
}

// push appends the entry. Combined with head's selection rule this gives the
// re-queue semantics of each order: a re-queued entry goes to the back of a
// FIFO backlog, and stays the newest of a LIFO one.
func (b *backlog[K]) push(e *backlogEntry[K]) {
	b.entries = append(b.entries, e)
}

// head returns the entry that would be re-attempted next, without removing
// it. FIFO and immediate orders pick the oldest entry; LIFO picks the
// newest.
func (b *backlog[K]) head() *backlogEntry[K] {
	if len(b.entries) == 0 {
		return nil
	}
	if b.order == OrderLIFO {
		return b.entries[len(b.entries)-1]
	}
	return b.entries[0]
}

// pop removes and returns the head entry.
func (b *backlog[K]) pop() *backlogEntry[K] {
	e := b.head()
	if e == nil {
		return nil
	}
	if b.order == OrderLIFO {
		b.entries = b.entries[:len(b.entries)-1]
	} else {
		b.entries = b.entries[1:]
	}
	return e
}
