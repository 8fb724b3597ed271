package runner

import "time"

type Option func(*Handler)

// WithTimeout bounds a whole Run, retries and delays included.
func WithTimeout(t time.Duration) Option {
	return func(r *Handler) {
		r.timeout = t
	}
}

// WithMaxAttempts sets the total number of calls Run may make, first call
// included. Values below 1 are treated as 1.
func WithMaxAttempts(max int) Option {
	return func(r *Handler) {
		r.maxAttempts = max
	}
}

// WithErrorHandler is called with every failed attempt that will be retried.
func WithErrorHandler(h func(attempt int, err error)) Option {
	return func(r *Handler) {
		if h == nil {
			h = func(int, error) {}
		}
		r.errorHandler = h
	}
}

func WithLogger(l Logger) Option {
	return func(r *Handler) {
		r.logger = l
	}
}

// WithRetryStrategy lets you define a custom retry/backoff approach
func WithRetryStrategy(s RetryStrategy) Option {
	return func(r *Handler) {
		r.retryStrategy = s
	}
}

// WithClock replaces the clock used for inter-attempt delays.
func WithClock(c Clock) Option {
	return func(r *Handler) {
		if c != nil {
			r.clock = c
		}
	}
}
