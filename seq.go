// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
)

// A ProduceFunc computes one production step of a sequence.
//
// It returns a [Yield]: either a single raw element, or a nested sequence
// whose elements are flattened into the outer stream one Next call at a time.
//
// A ProduceFunc may block (for example on a queue pop or a network fetch);
// the context is the only cancellation lever during such a call.
type ProduceFunc[T any] = func(context.Context) (Yield[T], error)

// A HasMoreFunc reports whether the underlying source can produce another
// step. It must be cheap and side-effect-light: callers rely on it for fast
// existence checks, and it is consulted repeatedly.
//
// A HasMoreFunc error is fatal to the sequence and is never retried.
type HasMoreFunc = func(context.Context) (bool, error)

// Yield is the result of a single production step.
//
// It is an explicit tagged union: a producer either yields a raw element via
// [Raw], which is returned to the consumer as-is, or a nested sequence via
// [Nested], which replaces the sequence's buffer and is drained lazily,
// element by element, before the producer is invoked again. This is what lets
// a paginated source fetch one page per production step while serving many
// elements per fetch.
type Yield[T any] struct {
	seq    *Seq[T]
	val    T
	nested bool
}

// Raw yields a single element.
func Raw[T any](v T) Yield[T] {
	return Yield[T]{val: v}
}

// Nested yields a sub-sequence to be flattened into the outer stream.
//
// Yielding an empty sequence is a valid way for a producer to say "nothing
// this step": the engine skips it and produces again.
func Nested[T any](s *Seq[T]) Yield[T] {
	return Yield[T]{seq: s, nested: true}
}

// Source configures a new [Seq]. It is a plain data structure of typed
// function references; there is no subclassing and no dynamic dispatch.
//
// A nil Produce acts as a producer that never yields; a nil HasMore reports
// exhaustion immediately. Finite declares that the sequence is guaranteed to
// terminate, which gates full-materialization operations such as
// [Seq.ToList], [Seq.Resolve] and [Reduce].
type Source[T any] struct {
	Produce ProduceFunc[T]
	HasMore HasMoreFunc
	Finite  bool
}

// A Seq is a single-pass, stateful, lazily-evaluated ordered source of
// elements.
//
// A Seq is driven with the [Seq.HasNext] / [Seq.Next] protocol:
//
//	for {
//	    ok, err := s.HasNext(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    v, err := s.Next(ctx)
//	    ...
//	}
//
// A Seq instance is owned by a single consumer and is not safe for
// concurrent use. Nested sequences produced via [Nested] are owned
// exclusively by their parent and replaced wholesale on each refill.
type Seq[T any] struct {
	produce ProduceFunc[T]
	hasMore HasMoreFunc

	// buffer holds a previously produced sub-sequence that is not yet fully
	// drained. When present it always takes priority over produce/hasMore.
	buffer *Seq[T]

	finite bool
}

// New constructs a sequence from a [Source].
func New[T any](src Source[T]) *Seq[T] {
	s := &Seq[T]{
		produce: src.Produce,
		hasMore: src.HasMore,
		finite:  src.Finite,
	}
	if s.produce == nil {
		s.produce = func(context.Context) (Yield[T], error) {
			return Nested(Empty[T]()), nil
		}
	}
	if s.hasMore == nil {
		s.hasMore = func(context.Context) (bool, error) {
			return false, nil
		}
	}
	return s
}

// Finite reports whether the sequence is declared to terminate.
func (s *Seq[T]) Finite() bool {
	return s.finite
}

// HasNext reports whether another element is available.
//
// The buffer, when present, is consulted first; only once it is exhausted is
// the underlying has-more predicate asked. HasNext never advances the
// element stream. A predicate failure surfaces as a fatal [*PredicateError].
func (s *Seq[T]) HasNext(ctx context.Context) (bool, error) {
	if s.buffer != nil {
		ok, err := s.buffer.HasNext(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		s.buffer = nil
	}
	ok, err := s.hasMore(ctx)
	if err != nil {
		return false, asPredicateError(err)
	}
	return ok, nil
}

// Next returns the next element of the sequence.
//
// If the buffer still holds elements, Next delegates to it. Otherwise the
// producer is invoked: a [Raw] yield is returned directly, a [Nested] yield
// replaces the buffer and is drained immediately. Empty nested yields are
// skipped and production continues.
//
// Calling Next when [Seq.HasNext] is false returns the zero value and a nil
// error, never an error; checking HasNext first is part of the protocol.
// A production failure surfaces as a [*ProductionError].
func (s *Seq[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if s.buffer != nil {
			ok, err := s.buffer.HasNext(ctx)
			if err != nil {
				return zero, err
			}
			if ok {
				return s.buffer.Next(ctx)
			}
			s.buffer = nil
		}
		ok, err := s.hasMore(ctx)
		if err != nil {
			return zero, asPredicateError(err)
		}
		if !ok {
			return zero, nil
		}
		y, err := s.produce(ctx)
		if err != nil {
			return zero, asProductionError(err)
		}
		if y.nested {
			// Replace the buffer wholesale and drain it on the next pass.
			s.buffer = y.seq
			continue
		}
		return y.val, nil
	}
}

// ToList drains the sequence completely and returns its elements in order.
//
// The sequence must be declared finite; otherwise [ErrInfinite] is returned
// without consuming any elements.
func (s *Seq[T]) ToList(ctx context.Context) ([]T, error) {
	if !s.finite {
		return nil, ErrInfinite
	}
	var out []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.HasNext(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// Resolve drains the sequence completely, discarding the elements.
//
// This is useful when the producer is run for its side effects. The sequence
// must be declared finite; otherwise [ErrInfinite] is returned without
// consuming any elements.
func (s *Seq[T]) Resolve(ctx context.Context) error {
	if !s.finite {
		return ErrInfinite
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.HasNext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := s.Next(ctx); err != nil {
			return err
		}
	}
}

// Take returns up to n elements, or fewer if the sequence is exhausted
// first. Unlike [Seq.ToList] it terminates on infinite sequences.
//
// A non-positive n returns an empty slice.
func (s *Seq[T]) Take(ctx context.Context, n int) ([]T, error) {
	var out []T
	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.HasNext(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
