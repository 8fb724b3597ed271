package runner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handler runs a function with a bounded number of sequential attempts. At
// most one attempt is in flight per Run call.
type Handler struct {
	mu sync.Mutex

	logger        Logger
	errorHandler  func(attempt int, err error)
	retryStrategy RetryStrategy
	clock         Clock

	maxAttempts int
	timeout     time.Duration

	runs           int
	successfulRuns int
	attempts       int
}

// NewHandler constructs a Handler from various options, applying defaults if unset.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		errorHandler:  func(int, error) {},
		retryStrategy: NoDelayStrategy{},
		clock:         SystemClock{},
		maxAttempts:   1,
	}
	for _, o := range opts {
		if o != nil {
			o(h)
		}
	}
	if h.maxAttempts < 1 {
		h.maxAttempts = 1
	}
	return h
}

// Run calls fn until it succeeds, the strategy declines a retry, or the
// attempt budget is spent. It returns the number of calls made and the last
// error observed, or nil on success.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) (int, error) {
	h.mu.Lock()
	maxAttempts := h.maxAttempts
	strategy := h.retryStrategy
	clock := h.clock
	h.mu.Unlock()

	ctx, cancel := h.contextWithSettings(ctx)
	defer cancel()

	var (
		err     error
		attempt int
	)
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			break
		}
		if attempt == maxAttempts {
			break
		}

		decision := DecideRetry(strategy, attempt-1, err)
		if !decision.ShouldRetry {
			break
		}

		h.handleError(attempt, err)
		h.logInfo("attempt %d of %d failed, retrying in %s: %v", attempt, maxAttempts, decision.Delay, err)

		if decision.Delay > 0 {
			if serr := clock.Sleep(ctx, decision.Delay); serr != nil {
				err = fmt.Errorf("%w (retry interrupted: %v)", err, serr)
				break
			}
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs++
	h.attempts += attempt
	if err == nil {
		h.successfulRuns++
	} else {
		h.logError("run failed after %d attempt(s): %v", attempt, err)
	}

	return attempt, err
}

// Stats reports how many runs completed, how many succeeded, and the total
// number of attempts across them.
func (h *Handler) Stats() (runs, successful, attempts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs, h.successfulRuns, h.attempts
}

func (h *Handler) handleError(attempt int, err error) {
	if h.errorHandler != nil {
		h.errorHandler(attempt, err)
	}
}

func (h *Handler) logInfo(format string, args ...any) {
	if h.logger != nil {
		h.logger.Info(format, args...)
	}
}

func (h *Handler) logError(format string, args ...any) {
	if h.logger != nil {
		h.logger.Error(format, args...)
	}
}

func (h *Handler) contextWithSettings(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return parent, func() {}
}
