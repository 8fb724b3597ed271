package runner

import (
	"context"
	"time"

	apperrors "github.com/goliatone/go-errors"
)

const ErrCodePollTimeout = "POLL_TIMEOUT"

// DefaultPollInterval is used when Poll is given a non-positive interval.
const DefaultPollInterval = 100 * time.Millisecond

var ErrPollTimeout = apperrors.New("condition not met before timeout", apperrors.CategoryExternal).
	WithTextCode(ErrCodePollTimeout)

// Poll evaluates check every interval until it returns true or timeout
// elapses. The check runs once more at the deadline, so a condition that
// becomes true exactly at the bound still counts.
func Poll(ctx context.Context, clock Clock, interval, timeout time.Duration, check func() bool) error {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := clock.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if check() {
			return nil
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return ErrPollTimeout.Clone().WithMetadata(map[string]any{
				"timeout":  timeout.String(),
				"interval": interval.String(),
			})
		}

		wait := interval
		if remaining < wait {
			wait = remaining
		}
		if err := clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
