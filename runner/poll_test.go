package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_SucceedsWhenConditionHolds(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	start := clock.Now()
	readyAt := start.Add(350 * time.Millisecond)

	err := Poll(context.Background(), clock, 100*time.Millisecond, time.Second, func() bool {
		return !clock.Now().Before(readyAt)
	})

	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, clock.Now().Sub(start))
}

func TestPoll_TimesOut(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	start := clock.Now()
	checks := 0

	err := Poll(context.Background(), clock, 100*time.Millisecond, time.Second, func() bool {
		checks++
		return false
	})

	require.Error(t, err)
	var ge *apperrors.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, ErrCodePollTimeout, ge.TextCode)
	assert.Equal(t, time.Second, clock.Now().Sub(start))
	// one check at t=0, one per interval, last one at the deadline
	assert.Equal(t, 11, checks)
}

func TestPoll_FinalCheckAtDeadline(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	deadline := clock.Now().Add(250 * time.Millisecond)

	err := Poll(context.Background(), clock, 100*time.Millisecond, 250*time.Millisecond, func() bool {
		return !clock.Now().Before(deadline)
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		100 * time.Millisecond,
		50 * time.Millisecond,
	}, clock.Sleeps())
}

func TestPoll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, NewFakeClock(time.Unix(0, 0)), 10*time.Millisecond, time.Second, func() bool {
		t.Fatal("check must not run on canceled context")
		return false
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoll_WallClock(t *testing.T) {
	n := 0
	err := Poll(context.Background(), nil, time.Millisecond, time.Second, func() bool {
		n++
		return n == 3
	})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
