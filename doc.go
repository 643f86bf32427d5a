// SPDX-License-Identifier: Apache-2.0

// Package lazyseq provides a resumable, single-pass lazy sequence: a
// pull-based stream abstraction for sources that are unbounded or expensive
// to materialize, such as paginated queries, blocking queues and infinite
// generators, with composition operators and a retry/backlog subsystem for
// flaky production steps.
//
// # The Problem
//
// Code that consumes a paginated API, a message queue, or a generator tends
// to re-grow the same scaffolding every time: a fetch loop, an index into
// the current page, an "are we done" flag, ad-hoc retry logic around the
// fetch. The consumption logic ends up interleaved with the pagination and
// failure mechanics, and none of it composes.
//
// Package lazyseq separates the two. A producer describes how to compute the
// next step; the engine owns the buffering, flattening, and retry
// discipline; consumers see one flat, lazy stream.
//
// # Core Concepts
//
// [Seq] is the central type: a single-pass, stateful, lazily-evaluated
// source of elements driven with [Seq.HasNext] and [Seq.Next]. It wraps a
// pair of caller-owned functions supplied through [Source]:
//
//	type Source[T any] struct {
//	    Produce ProduceFunc[T]  // compute the next step
//	    HasMore HasMoreFunc     // cheap existence check
//	    Finite  bool            // guaranteed to terminate?
//	}
//
// A production step returns a [Yield]: [Raw] for a single element, or
// [Nested] for a whole sub-sequence that is flattened into the outer stream
// lazily, one element per Next call. A paginated source, for example,
// fetches one page per production step and serves many elements per fetch:
//
//	page := 0
//	rows := lazyseq.New(lazyseq.Source[Row]{
//	    Produce: func(ctx context.Context) (lazyseq.Yield[Row], error) {
//	        batch, err := fetchPage(ctx, page)
//	        if err != nil {
//	            return lazyseq.Yield[Row]{}, err
//	        }
//	        page++
//	        return lazyseq.Nested(lazyseq.FromSlice(batch)), nil
//	    },
//	    HasMore: func(ctx context.Context) (bool, error) {
//	        return hasPage(ctx, page)
//	    },
//	    Finite: true,
//	})
//
// # Composition
//
// Operators build new sequences on top of existing ones without eager
// evaluation: [Map], [Seq.Filter] and [Seq.TakeWhile] (with bounded
// lookahead), [Seq.Take], [Reduce], [Extend], [Merge]. Constructors cover
// the common sources: [FromSlice], [Empty], [Singular], [Range], [Cycle],
// [Generate], [FromChan].
//
//	evens := lazyseq.Range(0, 100, 1).
//	    Filter(func(_ context.Context, n int) (bool, error) {
//	        return n%2 == 0, nil
//	    })
//
// # Failure Handling
//
// Errors are typed: a [*PredicateError] (fatal, never retried), a
// [*ProductionError] (subject to policy), [ErrInfinite] for full
// materialization of a non-finite sequence, and [*AttemptsExhaustedError]
// for a retry budget running out.
//
// [WithRetry] drives a sequence of keys through a failable step and applies
// a [RetryPolicy]: failed steps are parked on a backlog and replayed with
// fixed, linear, or exponential backoff, in FIFO, LIFO, or immediate order.
//
//	ids := lazyseq.FromSlice(userIDs)
//	users := lazyseq.WithRetry(ids, loadUser, lazyseq.RetryPolicy{
//	    OnFailure:   lazyseq.OnFailureRetry,
//	    Strategy:    lazyseq.StrategyExponential,
//	    Order:       lazyseq.OrderFIFO,
//	    Interval:    lazyseq.Duration(500 * time.Millisecond),
//	    MaxAttempts: 3,
//	})
//
// Policies can also be loaded from YAML documents with [ParseRetryPolicy].
//
// # Concurrency Model
//
// A Seq is single-pass and single-owner: nothing in the engine suspends or
// spawns goroutines on its own, producers may block, and the context handed
// to HasNext/Next is the only cancellation lever. [ForEachParallel] is the
// one explicit opt-in to concurrency: the sequence is still pulled serially,
// only element processing fans out.
//
// # Requirements
//
// Requires Go 1.24 or later.
package lazyseq
