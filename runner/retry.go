package runner

import (
	"time"
)

// RetryStrategy encapsulates the delay between retries.
type RetryStrategy interface {
	// SleepDuration returns how long to wait before the next retry attempt.
	// The attempt index starts at 0, incrementing after each failure.
	SleepDuration(attempt int, err error) time.Duration
}

// RetryDecision is the outcome of asking a strategy whether a failed attempt
// should be followed by another one.
type RetryDecision struct {
	ShouldRetry bool
	Delay       time.Duration
	Metadata    map[string]any
}

// RetryDecider is implemented by strategies that can veto a retry, for
// example because the error is not one they recognize as transient.
type RetryDecider interface {
	DecideRetry(attempt int, err error) RetryDecision
}

// DecideRetry asks strategy for a decision. Strategies that only implement
// RetryStrategy always retry after SleepDuration.
func DecideRetry(strategy RetryStrategy, attempt int, err error) RetryDecision {
	if strategy == nil {
		return RetryDecision{ShouldRetry: true}
	}
	if decider, ok := strategy.(RetryDecider); ok {
		return decider.DecideRetry(attempt, err)
	}
	return RetryDecision{
		ShouldRetry: true,
		Delay:       strategy.SleepDuration(attempt, err),
	}
}

// NoDelayStrategy performs all retries immediately without waiting.
type NoDelayStrategy struct{}

// SleepDuration always returns zero, causing immediate retries.
func (n NoDelayStrategy) SleepDuration(_ int, _ error) time.Duration {
	return 0
}

// FixedDelayStrategy waits the same amount of time before every retry.
type FixedDelayStrategy struct {
	Delay time.Duration
}

func (f FixedDelayStrategy) SleepDuration(_ int, _ error) time.Duration {
	if f.Delay < 0 {
		return 0
	}
	return f.Delay
}

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

// ClassifiedStrategy retries only errors accepted by Retryable, delegating the
// delay to Strategy. A nil Retryable accepts nothing.
//
//	WithRetryStrategy(ClassifiedStrategy{
//	    Retryable: isTransient,
//	    Strategy:  FixedDelayStrategy{Delay: 250 * time.Millisecond},
//	})
type ClassifiedStrategy struct {
	Retryable Classifier
	Strategy  RetryStrategy
}

func (c ClassifiedStrategy) SleepDuration(attempt int, err error) time.Duration {
	if c.Strategy == nil {
		return 0
	}
	return c.Strategy.SleepDuration(attempt, err)
}

func (c ClassifiedStrategy) DecideRetry(attempt int, err error) RetryDecision {
	if c.Retryable == nil || !c.Retryable(err) {
		return RetryDecision{
			ShouldRetry: false,
			Metadata:    map[string]any{"classified": "fatal"},
		}
	}
	return RetryDecision{
		ShouldRetry: true,
		Delay:       c.SleepDuration(attempt, err),
		Metadata:    map[string]any{"classified": "transient"},
	}
}
