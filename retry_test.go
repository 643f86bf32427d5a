// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func zeroDelayPolicy(order BacklogOrder, maxAttempts int) RetryPolicy {
	return RetryPolicy{
		OnFailure:   OnFailureRetry,
		Strategy:    StrategyFixed,
		Order:       order,
		Interval:    0,
		MaxAttempts: maxAttempts,
	}
}

func TestRetryPolicyOutcomes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		onFailure FailurePolicy
		validator func(error) error
		want      []int
	}{
		{
			name:      "fail policy propagates the first failure",
			onFailure: OnFailureFail,
			validator: isNotNil,
		},
		{
			name:      "ignore policy skips failed steps",
			onFailure: OnFailureIgnore,
			validator: isNil,
			want:      []int{1, 3},
		},
		{
			name:      "retry policy recovers transient failures in order",
			onFailure: OnFailureRetry,
			validator: isNil,
			want:      []int{1, 2, 3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			flaky := &flakyStep{failures: 1, failing: map[int]bool{2: true}}
			policy := zeroDelayPolicy(OrderFIFO, 3)
			policy.OnFailure = test.onFailure

			s := WithRetry(FromSlice([]int{1, 2, 3}), flaky.step, policy)
			got, err := s.ToList(t.Context())
			if err := test.validator(err); err != nil {
				t.Fatal(err)
			}
			if test.want != nil {
				wantInts(t, got, test.want)
			}
		})
	}
}

func TestRetryFailPolicySurfacesTypedError(t *testing.T) {
	t.Parallel()
	policy := zeroDelayPolicy(OrderFIFO, 0)
	policy.OnFailure = OnFailureFail
	s := WithRetry(FromSlice([]int{1}), func(context.Context, int) (Yield[int], error) {
		return Yield[int]{}, errBoom
	}, policy)

	_, err := s.Next(t.Context())
	var pe *ProductionError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *ProductionError", err)
	}
	if !errors.Is(err, errBoom) {
		t.Error("cause not preserved")
	}
}

func TestRetryExhaustionDoesNotTerminateStream(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	step := func(_ context.Context, k int) (Yield[int], error) {
		if k == 2 {
			return Yield[int]{}, errPermanent
		}
		return Raw(k), nil
	}
	s := WithRetry(FromSlice([]int{1, 2, 3}), step, zeroDelayPolicy(OrderFIFO, 2))

	var got []int
	var exhausted *AttemptsExhaustedError
	for {
		ok, err := s.HasNext(ctx)
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !ok {
			break
		}
		v, err := s.Next(ctx)
		if err != nil {
			if !errors.As(err, &exhausted) {
				t.Fatalf("Next: %v", err)
			}
			continue
		}
		got = append(got, v)
	}

	wantInts(t, got, []int{1, 3})
	if exhausted == nil {
		t.Fatal("expected an exhaustion report")
	}
	if key, ok := exhausted.Key.(int); !ok || key != 2 {
		t.Errorf("exhausted key = %v, want 2", exhausted.Key)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", exhausted.Attempts)
	}
	if exhausted.ID == uuid.Nil {
		t.Error("exhaustion report lacks an entry ID")
	}
	if !errors.Is(exhausted, errPermanent) {
		t.Error("last failure cause not preserved")
	}
}

// drainExhaustedKeys pulls the sequence to completion, collecting the key of
// every exhaustion report along the way.
func drainExhaustedKeys(t *testing.T, s *Seq[int]) []int {
	t.Helper()
	ctx := t.Context()
	var keys []int
	for {
		ok, err := s.HasNext(ctx)
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !ok {
			return keys
		}
		if _, err := s.Next(ctx); err != nil {
			var exhausted *AttemptsExhaustedError
			if !errors.As(err, &exhausted) {
				t.Fatalf("Next: %v", err)
			}
			keys = append(keys, exhausted.Key.(int))
		}
	}
}

func TestRetryBacklogOrdering(t *testing.T) {
	t.Parallel()
	// The interval is long enough that both keys fail and land on the
	// backlog before either becomes eligible again; the order of the
	// exhaustion reports then reveals which entry was re-attempted first.
	tests := []struct {
		name  string
		order BacklogOrder
		want  []int
	}{
		{name: "fifo re-attempts the oldest entry first", order: OrderFIFO, want: []int{1, 2}},
		{name: "lifo re-attempts the newest entry first", order: OrderLIFO, want: []int{2, 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			policy := RetryPolicy{
				OnFailure:   OnFailureRetry,
				Strategy:    StrategyFixed,
				Order:       test.order,
				Interval:    Duration(30 * time.Millisecond),
				MaxAttempts: 2,
			}
			s := WithRetry(FromSlice([]int{1, 2}),
				func(context.Context, int) (Yield[int], error) {
					return Yield[int]{}, errPermanent
				}, policy)
			wantInts(t, drainExhaustedKeys(t, s), test.want)
		})
	}
}

func TestRetryImmediateOrderBypassesDelay(t *testing.T) {
	t.Parallel()
	policy := RetryPolicy{
		OnFailure:   OnFailureRetry,
		Strategy:    StrategyFixed,
		Order:       OrderImmediate,
		Interval:    Duration(time.Hour),
		MaxAttempts: 3,
	}
	s := WithRetry(FromSlice([]int{1}),
		func(context.Context, int) (Yield[int], error) {
			return Yield[int]{}, errPermanent
		}, policy)

	start := time.Now()
	_, err := s.Next(t.Context())
	var exhausted *AttemptsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("got %v, want *AttemptsExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("immediate order waited %v", elapsed)
	}
}

func TestRetryMaxAttemptsOneAllowsNoRetry(t *testing.T) {
	t.Parallel()
	flaky := &flakyStep{failures: 1, failing: map[int]bool{1: true}}
	s := WithRetry(FromSlice([]int{1}), flaky.step, zeroDelayPolicy(OrderFIFO, 1))

	_, err := s.Next(t.Context())
	var exhausted *AttemptsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("got %v, want *AttemptsExhaustedError", err)
	}
	if len(flaky.attempts) != 1 {
		t.Errorf("step ran %d times, want 1", len(flaky.attempts))
	}
}

func TestRetryNonRetryableFailuresAreDropped(t *testing.T) {
	t.Parallel()
	attempts := 0
	step := func(_ context.Context, k int) (Yield[int], error) {
		attempts++
		if k == 2 {
			return Yield[int]{}, errPermanent
		}
		return Raw(k), nil
	}
	s := WithRetry(FromSlice([]int{1, 2, 3}), step, zeroDelayPolicy(OrderFIFO, 5),
		WithRetryable(func(err error) bool {
			return !errors.Is(err, errPermanent)
		}))

	got, err := s.ToList(t.Context())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	wantInts(t, got, []int{1, 3})
	if attempts != 3 {
		t.Errorf("step ran %d times, want 3 (no replays)", attempts)
	}
}

func TestRetryWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()
	policy := RetryPolicy{
		OnFailure:   OnFailureRetry,
		Strategy:    StrategyFixed,
		Order:       OrderFIFO,
		Interval:    Duration(time.Hour),
		MaxAttempts: 3,
	}
	s := WithRetry(FromSlice([]int{1}),
		func(context.Context, int) (Yield[int], error) {
			return Yield[int]{}, errPermanent
		}, policy)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}

	// The failed entry is still pending, so the sequence is not exhausted
	// even though its source is.
	ok, err := s.HasNext(t.Context())
	if err != nil {
		t.Fatalf("HasNext: %v", err)
	}
	if !ok {
		t.Error("backlogged sequence must report HasNext true")
	}
}

func TestRetryStepCanYieldNestedSequences(t *testing.T) {
	t.Parallel()
	s := WithRetry(FromSlice([]int{1, 2}),
		func(_ context.Context, k int) (Yield[int], error) {
			return Nested(FromSlice([]int{k, k * 10})), nil
		}, zeroDelayPolicy(OrderFIFO, 1))

	got, err := s.ToList(t.Context())
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	wantInts(t, got, []int{1, 10, 2, 20})
}

func TestRetryFiniteness(t *testing.T) {
	t.Parallel()
	finiteSource := func() *Seq[int] { return FromSlice([]int{1}) }

	if !WithRetry(finiteSource(), identityStep, zeroDelayPolicy(OrderFIFO, 3)).Finite() {
		t.Error("capped retry budget over a finite source must be finite")
	}
	if WithRetry(finiteSource(), identityStep, zeroDelayPolicy(OrderFIFO, 0)).Finite() {
		t.Error("unlimited retry budget must not be finite")
	}
	ignore := zeroDelayPolicy(OrderFIFO, 0)
	ignore.OnFailure = OnFailureIgnore
	if !WithRetry(finiteSource(), identityStep, ignore).Finite() {
		t.Error("non-retrying policies keep the source's finiteness")
	}
	if WithRetry(naturals(), identityStep, zeroDelayPolicy(OrderFIFO, 3)).Finite() {
		t.Error("retry cannot make an infinite source finite")
	}
}

func TestWithRetryPanicsOnInvalidPolicy(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	bad := DefaultRetryPolicy()
	bad.OnFailure = "explode"
	WithRetry(FromSlice([]int{1}), identityStep, bad)
}

func TestRetryEligibilityBoundaries(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		strategy    RetryStrategy
		failedCount int
		elapsed     time.Duration
		eligible    bool
	}{
		{"linear just short of the boundary", StrategyLinear, 1, 499 * time.Millisecond, false},
		{"linear at the boundary", StrategyLinear, 1, 500 * time.Millisecond, true},
		{"linear second failure doubles the wait", StrategyLinear, 2, 999 * time.Millisecond, false},
		{"exponential second failure", StrategyExponential, 2, 999 * time.Millisecond, false},
		{"exponential second failure at the boundary", StrategyExponential, 2, 1000 * time.Millisecond, true},
		{"fixed ignores the failure count", StrategyFixed, 7, 500 * time.Millisecond, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			r := &retrier[int, int]{
				policy: RetryPolicy{
					OnFailure:   OnFailureRetry,
					Strategy:    test.strategy,
					Order:       OrderFIFO,
					Interval:    Duration(500 * time.Millisecond),
					MaxAttempts: 5,
				},
				now: func() time.Time { return t0.Add(test.elapsed) },
			}
			e := &backlogEntry[int]{failedAt: t0, failedCount: test.failedCount}
			if got := r.eligible(e); got != test.eligible {
				t.Errorf("eligible = %v, want %v", got, test.eligible)
			}
		})
	}
}
