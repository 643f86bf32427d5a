// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
)

// A Predicate is a failable boolean condition over an element.
//
// A predicate failure is fatal to the filtered sequence; predicates are
// never retried.
type Predicate[T any] = func(context.Context, T) (bool, error)

// A LookaheadOption configures [Seq.Filter] and [Seq.TakeWhile].
type LookaheadOption func(*lookaheadConfig)

type lookaheadConfig struct {
	maxLookahead int
}

// WithMaxLookahead bounds how many upstream pulls a single accept window may
// perform while searching for a qualifying element. When the bound is hit
// without a match, the filtered sequence reports exhaustion: a conservative
// cutoff, not an error. Zero (the default) means unbounded.
//
// The bound only applies to non-finite upstreams. If the upstream is
// declared finite, exhaustion is guaranteed eventually and the cutoff is
// disabled.
func WithMaxLookahead(n int) LookaheadOption {
	return func(c *lookaheadConfig) {
		c.maxLookahead = n
	}
}

// Filter returns a sequence of the upstream elements satisfying pred, in
// their original relative order.
//
// Filter is a stateful lookahead operator: checking HasNext pulls from the
// upstream until pred accepts an element, the upstream is exhausted, or the
// lookahead bound is exceeded. The matched element and the verdict are
// cached for the current accept window; repeated HasNext calls reuse the
// cache and perform no further pulls. Only Next invalidates the window.
func (s *Seq[T]) Filter(pred Predicate[T], opts ...LookaheadOption) *Seq[T] {
	return s.lookahead(pred, false, opts)
}

// TakeWhile returns the longest prefix of upstream elements satisfying pred.
//
// It shares Filter's lookahead and caching discipline, except that the scan
// ends the sequence the moment pred rejects a candidate, rather than
// skipping it.
func (s *Seq[T]) TakeWhile(pred Predicate[T], opts ...LookaheadOption) *Seq[T] {
	return s.lookahead(pred, true, opts)
}

func (s *Seq[T]) lookahead(pred Predicate[T], stopOnReject bool, opts []LookaheadOption) *Seq[T] {
	var cfg lookaheadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// Accept-window cache, owned by the derived sequence's closures.
	var (
		cached T
		has    bool
		valid  bool
	)

	scan := func(ctx context.Context) error {
		if valid {
			return nil
		}
		pulls := 0
		for {
			if !s.finite && cfg.maxLookahead > 0 && pulls >= cfg.maxLookahead {
				has, valid = false, true
				return nil
			}
			ok, err := s.HasNext(ctx)
			if err != nil {
				return err
			}
			if !ok {
				has, valid = false, true
				return nil
			}
			v, err := s.Next(ctx)
			if err != nil {
				return err
			}
			pulls++
			keep, err := pred(ctx, v)
			if err != nil {
				return asPredicateError(err)
			}
			if keep {
				cached, has, valid = v, true, true
				return nil
			}
			if stopOnReject {
				has, valid = false, true
				return nil
			}
		}
	}

	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			if err := scan(ctx); err != nil {
				return Yield[T]{}, err
			}
			if !has {
				return Nested(Empty[T]()), nil
			}
			valid = false
			return Raw(cached), nil
		},
		HasMore: func(ctx context.Context) (bool, error) {
			if err := scan(ctx); err != nil {
				return false, err
			}
			return has, nil
		},
		Finite: s.finite,
	})
}
