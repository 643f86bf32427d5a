// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
)

// Merge interleaves several sequences into one.
//
// Elements are picked round-robin in input order, skipping inputs that are
// already exhausted; once only one input remains non-empty, the merged
// sequence continues from it alone. The result is declared finite iff all
// inputs are finite.
//
// The inputs are owned by the merged sequence from this point on and must
// not be consumed elsewhere.
func Merge[T any](seqs ...*Seq[T]) *Seq[T] {
	if len(seqs) == 0 {
		return Empty[T]()
	}
	finite := true
	for _, s := range seqs {
		if !s.finite {
			finite = false
			break
		}
	}
	cursor := 0
	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			for range seqs {
				s := seqs[cursor%len(seqs)]
				cursor++
				ok, err := s.HasNext(ctx)
				if err != nil {
					return Yield[T]{}, err
				}
				if !ok {
					continue
				}
				v, err := s.Next(ctx)
				if err != nil {
					return Yield[T]{}, err
				}
				return Raw(v), nil
			}
			// every input went empty since has-more was last consulted
			return Nested(Empty[T]()), nil
		},
		HasMore: func(ctx context.Context) (bool, error) {
			for _, s := range seqs {
				ok, err := s.HasNext(ctx)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		},
		Finite: finite,
	})
}
