// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ForEachParallel drains the sequence, fanning element processing out to at
// most limit concurrent goroutines. A limit of zero or less means no limit.
//
// The sequence itself is still pulled serially by the calling goroutine, so
// the single-pass, single-owner contract holds; only fn runs concurrently,
// and fn must therefore be safe to call from multiple goroutines. The first
// fn error cancels the group context handed to the remaining calls.
//
// The sequence must be declared finite; otherwise [ErrInfinite] is returned
// without consuming any elements.
func ForEachParallel[T any](
	ctx context.Context,
	s *Seq[T],
	limit int,
	fn func(context.Context, T) error,
) error {
	if !s.finite {
		return ErrInfinite
	}

	group, subCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for {
		if err := subCtx.Err(); err != nil {
			// a worker failed or the caller cancelled; stop pulling
			break
		}
		ok, err := s.HasNext(subCtx)
		if err != nil {
			return errors.Join(err, group.Wait())
		}
		if !ok {
			break
		}
		v, err := s.Next(subCtx)
		if err != nil {
			return errors.Join(err, group.Wait())
		}
		group.Go(func() error {
			return fn(subCtx, v)
		})
	}
	return group.Wait()
}
