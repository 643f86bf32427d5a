// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// A StepFunc computes the element (or sub-sequence) for a given key. It is
// the unit of work the retry subsystem knows how to replay: the key must
// carry everything needed to attempt the step again.
type StepFunc[K, T any] = func(context.Context, K) (Yield[T], error)

// A RetryOption configures [WithRetry].
type RetryOption func(*retryConfig)

type retryConfig struct {
	logger    *slog.Logger
	retryable func(error) bool
}

// WithRetryLogger sets the logger used for backlog lifecycle events.
// Defaults to [slog.Default]. A nil logger keeps the default.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *retryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryable sets the classifier deciding whether a step failure may be
// replayed. Failures classified as non-retryable are logged and skipped, as
// if the policy were [OnFailureIgnore].
//
// By default every failure is retryable except context cancellation.
func WithRetryable(check func(error) bool) RetryOption {
	return func(c *retryConfig) {
		if check != nil {
			c.retryable = check
		}
	}
}

func defaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// WithRetry drives a sequence of keys through a failable step, intercepting
// step failures according to policy.
//
// On the happy path each Next pulls a key from source and runs step on it.
// Under [OnFailureRetry], a failed step becomes a backlog entry that is
// re-attempted once its backoff delay has elapsed; entries whose retry
// budget expires surface an [*AttemptsExhaustedError] from that Next call
// without terminating the rest of the stream. [OnFailureFail] propagates
// the first failure; [OnFailureIgnore] skips failed steps.
//
// The returned sequence reports HasNext true while the backlog is non-empty,
// even when the source is exhausted. If nothing is eligible yet, Next blocks
// on a context-aware timer until the backlog head's delay elapses.
//
// WithRetry panics if the policy does not validate; policies are
// configuration and a bad one is a programming error, caught at
// construction rather than mid-stream.
func WithRetry[K, T any](
	source *Seq[K],
	step StepFunc[K, T],
	policy RetryPolicy,
	opts ...RetryOption,
) *Seq[T] {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	cfg := retryConfig{
		logger:    slog.Default(),
		retryable: defaultRetryable,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &retrier[K, T]{
		source:    source,
		step:      step,
		policy:    policy,
		logger:    cfg.logger,
		retryable: cfg.retryable,
		backlog:   backlog[K]{order: policy.Order},
		now:       time.Now,
	}
	return r.seq()
}

// retrier is the state machine behind a retrying sequence:
// Idle → Producing → {Success: Idle, Failure: Backlogged} → (delay elapses)
// → Retrying → {Success: Idle, Failure: Backlogged, Budget spent: Reported}.
type retrier[K, T any] struct {
	source    *Seq[K]
	step      StepFunc[K, T]
	policy    RetryPolicy
	logger    *slog.Logger
	retryable func(error) bool
	backlog   backlog[K]

	// now is injectable for deterministic eligibility tests.
	now func() time.Time
}

func (r *retrier[K, T]) seq() *Seq[T] {
	// An unlimited retry budget can replay a failing step forever, so
	// finiteness of the source only carries over when the budget is capped.
	finite := r.source.finite &&
		(r.policy.OnFailure != OnFailureRetry || r.policy.MaxAttempts > 0)
	return New(Source[T]{
		Produce: r.produce,
		HasMore: r.hasMore,
		Finite:  finite,
	})
}

func (r *retrier[K, T]) hasMore(ctx context.Context) (bool, error) {
	if r.backlog.len() > 0 {
		return true, nil
	}
	return r.source.HasNext(ctx)
}

func (r *retrier[K, T]) produce(ctx context.Context) (Yield[T], error) {
	var none Yield[T]
	for {
		if err := ctx.Err(); err != nil {
			return none, err
		}

		// Backlog first: re-attempt the head entry if its delay elapsed.
		if e := r.backlog.head(); e != nil && r.eligible(e) {
			r.backlog.pop()
			y, err := r.step(ctx, e.key)
			if err == nil {
				r.logger.Log(ctx, slog.LevelDebug, "retry succeeded",
					"entry", e.id, "attempts", e.failedCount)
				return y, nil
			}
			e.failedCount++
			e.failedAt = r.now()
			e.lastErr = err
			if r.exhausted(e) {
				return none, r.reportExhausted(ctx, e)
			}
			r.backlog.push(e)
			r.logger.Log(ctx, slog.LevelDebug, "retry failed, re-queued",
				"entry", e.id, "attempts", e.failedCount, "err", err)
			continue
		}

		// Ordinary production.
		ok, err := r.source.HasNext(ctx)
		if err != nil {
			return none, err
		}
		if ok {
			k, err := r.source.Next(ctx)
			if err != nil {
				return none, err
			}
			y, err := r.step(ctx, k)
			if err == nil {
				return y, nil
			}
			switch r.policy.OnFailure {
			case OnFailureIgnore:
				r.logger.Log(ctx, slog.LevelDebug, "step failed, ignoring", "err", err)
				continue
			case OnFailureRetry:
				if !r.retryable(err) {
					r.logger.Log(ctx, slog.LevelWarn,
						"step failed with non-retryable error, dropping", "err", err)
					continue
				}
				e := newBacklogEntry(k, r.now(), err)
				if r.exhausted(e) {
					return none, r.reportExhausted(ctx, e)
				}
				r.backlog.push(e)
				r.logger.Log(ctx, slog.LevelDebug, "step failed, queued for retry",
					"entry", e.id, "err", err)
				continue
			default:
				return none, asProductionError(err)
			}
		}

		// Source exhausted; wait out the backlog head's delay.
		e := r.backlog.head()
		if e == nil {
			return Nested(Empty[T]()), nil
		}
		if err := r.awaitEligible(ctx, e); err != nil {
			return none, err
		}
	}
}

func (r *retrier[K, T]) eligible(e *backlogEntry[K]) bool {
	if r.policy.Order == OrderImmediate {
		return true
	}
	return r.now().Sub(e.failedAt) >= r.policy.Delay(e.failedCount)
}

func (r *retrier[K, T]) exhausted(e *backlogEntry[K]) bool {
	return r.policy.MaxAttempts > 0 && e.failedCount >= r.policy.MaxAttempts
}

func (r *retrier[K, T]) reportExhausted(ctx context.Context, e *backlogEntry[K]) error {
	r.logger.Log(ctx, slog.LevelError, "retry budget exhausted",
		"entry", e.id, "attempts", e.failedCount, "err", e.lastErr)
	return &AttemptsExhaustedError{
		ID:       e.id,
		Key:      e.key,
		Attempts: e.failedCount,
		Err:      e.lastErr,
	}
}

// awaitEligible blocks until e's retry delay elapses or ctx is cancelled.
func (r *retrier[K, T]) awaitEligible(ctx context.Context, e *backlogEntry[K]) error {
	wait := r.policy.Delay(e.failedCount) - r.now().Sub(e.failedAt)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
