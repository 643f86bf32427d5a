// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// ==== Test Helpers: Error Validators ====

func isNil(err error) error {
	if err != nil {
		return fmt.Errorf("expected nil error, got %v", err)
	}
	return nil
}

func isNotNil(err error) error {
	if err == nil {
		return errors.New("expected an error, got nil")
	}
	return nil
}

// ==== Test Helpers: Error Variables ====

var errBoom = errors.New("boom")
var errPermanent = errors.New("permanent failure")

// ==== Test Helpers: Draining ====

// drain pulls the sequence through the public protocol until exhaustion or
// until limit elements have been collected, failing the test on any error.
func drain[T any](t *testing.T, ctx context.Context, s *Seq[T], limit int) []T {
	t.Helper()
	var out []T
	for len(out) < limit {
		ok, err := s.HasNext(ctx)
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !ok {
			break
		}
		v, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func wantInts(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %v, want %v", i, got, want)
		}
	}
}

// ==== Test Helpers: Instrumented Sources ====

// countingSource is a finite source over items that records how many times
// its producer and predicate were invoked.
type countingSource struct {
	items    []int
	i        int
	produces int
	hasMores int
}

func (c *countingSource) seq() *Seq[int] {
	return New(Source[int]{
		Produce: func(context.Context) (Yield[int], error) {
			c.produces++
			if c.i >= len(c.items) {
				return Nested(Empty[int]()), nil
			}
			v := c.items[c.i]
			c.i++
			return Raw(v), nil
		},
		HasMore: func(context.Context) (bool, error) {
			c.hasMores++
			return c.i < len(c.items), nil
		},
		Finite: true,
	})
}

// naturals returns the infinite sequence 1, 2, 3, ...
func naturals() *Seq[int] {
	n := 0
	return Generate(func(context.Context) (int, error) {
		n++
		return n, nil
	})
}

// identityStep is a retry step that just echoes its key.
func identityStep(_ context.Context, k int) (Yield[int], error) {
	return Raw(k), nil
}

// flakyStep fails the first failures attempts for each key listed in
// failing, then succeeds, echoing the key. It records every attempt in
// order.
type flakyStep struct {
	failures int
	failing  map[int]bool
	attempts []int
	seen     map[int]int
}

func (f *flakyStep) step(_ context.Context, k int) (Yield[int], error) {
	if f.seen == nil {
		f.seen = make(map[int]int)
	}
	f.attempts = append(f.attempts, k)
	if f.failing[k] && f.seen[k] < f.failures {
		f.seen[k]++
		return Yield[int]{}, errBoom
	}
	return Raw(k), nil
}
