// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInfinite is returned when a full-materialization operation ([Seq.ToList],
// [Seq.Resolve], [Reduce], [ForEach]) is invoked on a sequence that is not
// declared finite.
var ErrInfinite = errors.New("lazyseq: sequence is not finite")

// PredicateError reports that a has-more predicate itself failed.
//
// Predicate failures are always fatal to the sequence and are never subject
// to retry; only production steps are.
type PredicateError struct {
	Err error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("lazyseq: has-more predicate failed: %v", e.Err)
}

// Unwrap returns the underlying error for inspection via errors.Is/As.
func (e *PredicateError) Unwrap() error {
	return e.Err
}

// ProductionError reports that a production step failed.
//
// Absent a retry policy, production errors bubble to the caller immediately;
// under [WithRetry] they are intercepted and handled per the policy.
type ProductionError struct {
	Err error
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("lazyseq: production step failed: %v", e.Err)
}

// Unwrap returns the underlying error for inspection via errors.Is/As.
func (e *ProductionError) Unwrap() error {
	return e.Err
}

// AttemptsExhaustedError reports that a backlog entry ran out of retry
// budget. It is surfaced once, from the Next call that observed the final
// failure, and does not terminate the rest of the stream: the caller decides
// whether to treat it as fatal.
type AttemptsExhaustedError struct {
	// ID identifies the backlog entry, matching the id logged while the
	// entry was being retried.
	ID uuid.UUID

	// Key is the opaque input value whose production kept failing.
	Key any

	// Attempts is the total number of failed attempts.
	Attempts int

	// Err is the error from the last attempt.
	Err error
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("lazyseq: entry %s: retry budget exhausted after %d attempts: %v",
		e.ID, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *AttemptsExhaustedError) Unwrap() error {
	return e.Err
}

// RecoveredPanic is an error type that wraps a panic value.
type RecoveredPanic struct {
	Value any
}

func (p *RecoveredPanic) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// RecoverPanics wraps a sequence so that panics inside its producer or
// has-more predicate are converted to errors instead of unwinding through
// the consumer.
//
// A recovered producer panic surfaces as a [*ProductionError] wrapping a
// [*RecoveredPanic]; a recovered predicate panic surfaces as a
// [*PredicateError] likewise.
func RecoverPanics[T any](s *Seq[T]) *Seq[T] {
	return New(Source[T]{
		Produce: func(ctx context.Context) (y Yield[T], err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &RecoveredPanic{Value: r}
				}
			}()
			var v T
			v, err = s.Next(ctx)
			if err != nil {
				return Yield[T]{}, err
			}
			return Raw(v), nil
		},
		HasMore: func(ctx context.Context) (ok bool, err error) {
			defer func() {
				if r := recover(); r != nil {
					ok = false
					err = &RecoveredPanic{Value: r}
				}
			}()
			return s.HasNext(ctx)
		},
		Finite: s.finite,
	})
}

// asPredicateError wraps err unless it already carries an engine type.
func asPredicateError(err error) error {
	if isTyped(err) {
		return err
	}
	return &PredicateError{Err: err}
}

// asProductionError wraps err unless it already carries an engine type.
func asProductionError(err error) error {
	if isTyped(err) {
		return err
	}
	return &ProductionError{Err: err}
}

// isTyped reports whether err already belongs to the engine's taxonomy, so
// that errors crossing several operator layers are wrapped exactly once.
func isTyped(err error) bool {
	var (
		pe *PredicateError
		qe *ProductionError
		ae *AttemptsExhaustedError
	)
	return errors.As(err, &pe) ||
		errors.As(err, &qe) ||
		errors.As(err, &ae) ||
		errors.Is(err, ErrInfinite) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
