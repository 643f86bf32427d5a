// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"context"
	"log/slog"
	"time"
)

type sloggerKey struct{}

// Slogger returns the [slog.Logger] from the context, or [slog.Default] if
// none is set.
//
// This is useful for custom instrumentation decorators that need access to
// the logger configured by the consumer driving the sequence.
func Slogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(sloggerKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// WithSlogger returns a context carrying the given structured logger.
//
// Since the consumer's context flows through every HasNext/Next call in the
// chain, setting the logger once at the drain site configures logging for
// all [Logged] sequences in the pipeline.
func WithSlogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, sloggerKey{}, logger)
}

// Logged wraps a sequence with structured logging that emits a record for
// every pull, including its duration and, on failure, the error.
//
// The logger is retrieved from the context (set by [WithSlogger]); if none
// is configured, [slog.Default] is used. Records carry the sequence name as
// a "seq" attribute and the pull duration in milliseconds.
func Logged[T any](level slog.Level, name string, s *Seq[T]) *Seq[T] {
	return New(Source[T]{
		Produce: func(ctx context.Context) (Yield[T], error) {
			logger := Slogger(ctx)
			start := time.Now()
			v, err := s.Next(ctx)
			duration := time.Since(start)
			if err != nil {
				logger.Log(ctx, slog.LevelError, "pull failed",
					"seq", name, "duration_ms", duration.Milliseconds(), "err", err)
				return Yield[T]{}, err
			}
			logger.Log(ctx, level, "pulled element",
				"seq", name, "duration_ms", duration.Milliseconds())
			return Raw(v), nil
		},
		HasMore: s.HasNext,
		Finite:  s.finite,
	})
}
