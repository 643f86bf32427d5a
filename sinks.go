// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
)

// Reduce folds the sequence into a single accumulator, applying f to the
// running accumulator and each element in order.
//
// The sequence must be declared finite; otherwise [ErrInfinite] is returned
// with the initial accumulator, without consuming any elements.
func Reduce[T, A any](
	ctx context.Context,
	s *Seq[T],
	initial A,
	f func(context.Context, A, T) (A, error),
) (A, error) {
	if !s.finite {
		return initial, ErrInfinite
	}
	acc := initial
	for {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		ok, err := s.HasNext(ctx)
		if err != nil {
			return acc, err
		}
		if !ok {
			return acc, nil
		}
		v, err := s.Next(ctx)
		if err != nil {
			return acc, err
		}
		acc, err = f(ctx, acc, v)
		if err != nil {
			return acc, err
		}
	}
}

// ForEach drains the sequence, invoking fn on each element in order and
// stopping on the first error.
//
// The sequence must be declared finite; otherwise [ErrInfinite] is returned
// without consuming any elements. For bounded consumption of an infinite
// sequence use [Seq.Take].
func ForEach[T any](ctx context.Context, s *Seq[T], fn func(context.Context, T) error) error {
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
		v, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}
