// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"fmt"
)

// An ExtendOption overrides how an extended sequence relates to its upstream.
type ExtendOption[U any] func(*extendConfig[U])

type extendConfig[U any] struct {
	hasMore   HasMoreFunc
	finite    bool
	finiteSet bool
}

// WithHasMore replaces the extended sequence's has-more predicate. By default
// the predicate delegates to the upstream's [Seq.HasNext].
func WithHasMore[U any](fn HasMoreFunc) ExtendOption[U] {
	return func(c *extendConfig[U]) {
		c.hasMore = fn
	}
}

// WithFinite overrides the extended sequence's finiteness declaration. By
// default it is inherited from the upstream.
func WithFinite[U any](finite bool) ExtendOption[U] {
	return func(c *extendConfig[U]) {
		c.finite = finite
		c.finiteSet = true
	}
}

// Extend builds a new sequence whose producer is handed the already-resolved
// next upstream element and is then free to transform or replace it: it may
// yield a [Raw] value, or a whole [Nested] sub-sequence per element.
//
// The upstream is captured by reference and driven exclusively through its
// public protocol; it is not mutated. Has-more and finiteness default to the
// upstream's unless overridden with [WithHasMore] / [WithFinite]. This is the
// mechanism by which one sequence extends another's pipeline instead of
// rebuilding it from scratch; [Map] is built on top of it.
func Extend[T, U any](
	s *Seq[T],
	f func(context.Context, T) (Yield[U], error),
	opts ...ExtendOption[U],
) *Seq[U] {
	var cfg extendConfig[U]
	for _, opt := range opts {
		opt(&cfg)
	}
	hasMore := cfg.hasMore
	if hasMore == nil {
		hasMore = s.HasNext
	}
	finite := s.finite
	if cfg.finiteSet {
		finite = cfg.finite
	}
	return New(Source[U]{
		Produce: func(ctx context.Context) (Yield[U], error) {
			v, err := s.Next(ctx)
			if err != nil {
				return Yield[U]{}, err
			}
			return f(ctx, v)
		},
		HasMore: hasMore,
		Finite:  finite,
	})
}

// Map returns a sequence that applies f to each upstream element.
//
// Map is not independently retried: a failure of f propagates from whichever
// Next call is computing it, as does a failure of the upstream step feeding
// it.
func Map[T, U any](s *Seq[T], f func(context.Context, T) (U, error)) *Seq[U] {
	return Extend(s, func(ctx context.Context, v T) (Yield[U], error) {
		u, err := f(ctx, v)
		if err != nil {
			return Yield[U]{}, err
		}
		return Raw(u), nil
	})
}

// Named wraps a sequence with a name.
//
// The name is prepended to the error message of any error the sequence
// surfaces, separated by a colon. This is useful for debugging layered
// pipelines, where the same error taxonomy flows through several operators.
func Named[T any](name string, s *Seq[T]) *Seq[T] {
	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			v, err := s.Next(ctx)
			if err != nil {
				return Yield[T]{}, fmt.Errorf("%s: %w", name, err)
			}
			return Raw(v), nil
		},
		HasMore: func(ctx context.Context) (bool, error) {
			ok, err := s.HasNext(ctx)
			if err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
			return ok, nil
		},
		Finite: s.finite,
	})
}
