// SPDX-License-Identifier: Apache-2.0

package lazyseq

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// FailurePolicy selects what happens when a production step fails.
type FailurePolicy string

const (
	// OnFailureRetry enqueues the failed step on the backlog for a
	// backoff-scheduled re-attempt.
	OnFailureRetry FailurePolicy = "retry"

	// OnFailureFail propagates the error immediately and terminates the
	// sequence.
	OnFailureFail FailurePolicy = "fail"

	// OnFailureIgnore silently skips the failed step and attempts the next
	// one. This is the only policy under which data loss is possible, and it
	// is an explicit opt-in.
	OnFailureIgnore FailurePolicy = "ignore"
)

// RetryStrategy selects how the retry delay grows with the failure count.
type RetryStrategy string

const (
	// StrategyFixed waits the base interval before every re-attempt.
	StrategyFixed RetryStrategy = "fixed"

	// StrategyLinear waits interval × failedCount.
	StrategyLinear RetryStrategy = "linear"

	// StrategyExponential waits interval × 2^(failedCount-1).
	StrategyExponential RetryStrategy = "exponential"
)

// BacklogOrder selects which backlog entry is re-attempted first.
type BacklogOrder string

const (
	// OrderFIFO re-attempts the oldest entry first.
	OrderFIFO BacklogOrder = "fifo"

	// OrderLIFO re-attempts the newest entry first.
	OrderLIFO BacklogOrder = "lifo"

	// OrderImmediate bypasses the retry delay entirely and re-attempts
	// right away.
	OrderImmediate BacklogOrder = "immediate"
)

// Duration is a time.Duration that unmarshals from YAML strings
// (e.g. "500ms", "5m") as well as bare integers, read as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// RetryPolicy is the immutable retry configuration attached to a sequence at
// construction via [WithRetry].
//
// The zero value is not usable; start from [DefaultRetryPolicy] or a parsed
// document and adjust.
type RetryPolicy struct {
	// OnFailure selects the failure policy for ordinary production steps.
	OnFailure FailurePolicy `yaml:"on_failure"`

	// Strategy selects the backoff growth curve.
	Strategy RetryStrategy `yaml:"retry_strategy"`

	// Order selects which backlog entry is re-attempted first.
	Order BacklogOrder `yaml:"backlog_order"`

	// Interval is the base retry delay.
	Interval Duration `yaml:"retry_interval"`

	// MaxAttempts caps the total failed attempts per entry, the first
	// failure included. Zero means unlimited.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultRetryPolicy returns a sensible default policy: retry with
// exponential backoff, oldest entry first, 100ms base interval, at most 5
// attempts per entry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		OnFailure:   OnFailureRetry,
		Strategy:    StrategyExponential,
		Order:       OrderFIFO,
		Interval:    Duration(100 * time.Millisecond),
		MaxAttempts: 5,
	}
}

// Validate checks the policy for unknown enum values and nonsensical
// numbers.
func (p RetryPolicy) Validate() error {
	switch p.OnFailure {
	case OnFailureRetry, OnFailureFail, OnFailureIgnore:
	default:
		return fmt.Errorf("lazyseq: unknown on_failure policy %q", p.OnFailure)
	}
	switch p.Strategy {
	case StrategyFixed, StrategyLinear, StrategyExponential:
	default:
		return fmt.Errorf("lazyseq: unknown retry_strategy %q", p.Strategy)
	}
	switch p.Order {
	case OrderFIFO, OrderLIFO, OrderImmediate:
	default:
		return fmt.Errorf("lazyseq: unknown backlog_order %q", p.Order)
	}
	if p.Interval < 0 {
		return fmt.Errorf("lazyseq: retry_interval cannot be negative")
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("lazyseq: max_attempts cannot be negative")
	}
	return nil
}

// Delay returns the retry delay for an entry with the given failure count.
//
// Fixed strategy: the base interval. Linear: interval × failedCount.
// Exponential: interval × 2^(failedCount-1). An entry is eligible for a
// re-attempt once Delay has elapsed since its last failure.
func (p RetryPolicy) Delay(failedCount int) time.Duration {
	base := p.Interval.Duration()
	if failedCount < 1 {
		failedCount = 1
	}
	switch p.Strategy {
	case StrategyLinear:
		return base * time.Duration(failedCount)
	case StrategyExponential:
		shift := uint(failedCount) - 1
		if shift > 62 {
			shift = 62
		}
		delay := base * time.Duration(1<<shift)
		if delay <= 0 {
			// overflow; cap rather than wrap
			delay = base
		}
		return delay
	default:
		return base
	}
}

// ParseRetryPolicy decodes a YAML policy document, filling absent fields
// from [DefaultRetryPolicy] and validating the result.
//
// Example document:
//
//	on_failure: retry
//	retry_strategy: linear
//	backlog_order: fifo
//	retry_interval: 500ms
//	max_attempts: 3
func ParseRetryPolicy(data []byte) (RetryPolicy, error) {
	p := DefaultRetryPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return RetryPolicy{}, fmt.Errorf("lazyseq: parse retry policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return RetryPolicy{}, err
	}
	return p, nil
}
