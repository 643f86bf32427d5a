// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
)

// Empty returns a finite sequence with no elements.
func Empty[T any]() *Seq[T] {
	return New(Source[T]{Finite: true})
}

// Singular returns a finite sequence holding exactly one element.
func Singular[T any](v T) *Seq[T] {
	return FromSlice([]T{v})
}

// FromSlice returns a finite sequence over the elements of items, in order.
//
// The slice is not copied; the caller must not mutate it while the sequence
// is being consumed.
func FromSlice[T any](items []T) *Seq[T] {
	i := 0
	return New(Source[T]{
		Produce: func(context.Context) (Yield[T], error) {
			if i >= len(items) {
				return Nested(Empty[T]()), nil
			}
			v := items[i]
			i++
			return Raw(v), nil
		},
		HasMore: func(context.Context) (bool, error) {
			return i < len(items), nil
		},
		Finite: true,
	})
}

// Range returns a finite sequence of integers from start towards end
// (exclusive) with the given step. A zero step yields an empty sequence.
func Range(start, end, step int) *Seq[int] {
	i := start
	more := func() bool {
		return step > 0 && i < end || step < 0 && i > end
	}
	return New(Source[int]{
		Produce: func(context.Context) (Yield[int], error) {
			if !more() {
				return Nested(Empty[int]()), nil
			}
			v := i
			i += step
			return Raw(v), nil
		},
		HasMore: func(context.Context) (bool, error) {
			return more(), nil
		},
		Finite: true,
	})
}

// Cycle returns an infinite sequence that repeats items in order, wrapping
// around forever. With no items it degenerates to [Empty].
func Cycle[T any](items ...T) *Seq[T] {
	if len(items) == 0 {
		return Empty[T]()
	}
	i := 0
	return New(Source[T]{
		Produce: func(context.Context) (Yield[T], error) {
			v := items[i]
			i = (i + 1) % len(items)
			return Raw(v), nil
		},
		HasMore: func(context.Context) (bool, error) {
			return true, nil
		},
	})
}

// Generate returns an infinite sequence whose elements are computed one at a
// time by step. The step function may block; it is handed the consumer's
// context.
//
// Example:
//
//	n := 0
//	naturals := lazyseq.Generate(func(context.Context) (int, error) {
//	    n++
//	    return n, nil
//	})
func Generate[T any](step func(context.Context) (T, error)) *Seq[T] {
	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			v, err := step(ctx)
			if err != nil {
				return Yield[T]{}, err
			}
			return Raw(v), nil
		},
		HasMore: func(context.Context) (bool, error) {
			return true, nil
		},
	})
}

// FromChan adapts a channel to a sequence, the usual shape of a blocking
// queue consumer in Go.
//
// HasNext blocks until an element is received or the channel is observed
// closed; the received element is parked and served by the following Next.
// While blocked, the entire sequence chain is blocked with it; cancel the
// context to give up. A FromChan sequence is not declared finite: whether
// the channel ever closes is the producer's business.
func FromChan[T any](ch <-chan T) *Seq[T] {
	var (
		pending T
		loaded  bool
		open    = true
	)
	load := func(ctx context.Context) error {
		if loaded || !open {
			return nil
		}
		select {
		case v, ok := <-ch:
			if !ok {
				open = false
				return nil
			}
			pending = v
			loaded = true
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			if err := load(ctx); err != nil {
				return Yield[T]{}, err
			}
			if !loaded {
				return Nested(Empty[T]()), nil
			}
			v := pending
			loaded = false
			return Raw(v), nil
		},
		HasMore: func(ctx context.Context) (bool, error) {
			if err := load(ctx); err != nil {
				return false, err
			}
			return loaded, nil
		},
	})
}
