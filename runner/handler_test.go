package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestHandler_NoError_NoRetries(t *testing.T) {
	h := NewHandler(WithMaxAttempts(3))

	cf := countingFunc{failUntil: 0}
	attempts, err := h.Run(context.Background(), cf.fn)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.calls != 1 || attempts != 1 {
		t.Errorf("expected calls=1 attempts=1, got calls=%d attempts=%d", cf.calls, attempts)
	}

	runs, ok, _ := h.Stats()
	if runs != 1 || ok != 1 {
		t.Errorf("expected runs=1 successful=1, got %d/%d", runs, ok)
	}
}

func TestHandler_SuccessOnSecondAttempt(t *testing.T) {
	h := NewHandler(WithMaxAttempts(4))

	cf := countingFunc{failUntil: 1}
	attempts, err := h.Run(context.Background(), cf.fn)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected attempts=2, got %d", attempts)
	}
}

func TestHandler_AllAttemptsFail(t *testing.T) {
	h := NewHandler(WithMaxAttempts(3))

	cf := countingFunc{failUntil: 5}
	attempts, err := h.Run(context.Background(), cf.fn)

	if cf.calls != 3 || attempts != 3 {
		t.Errorf("expected calls=3, got calls=%d attempts=%d", cf.calls, attempts)
	}
	if err == nil || err.Error() != "forced error attempt 3" {
		t.Errorf("expected last error to be preserved, got %v", err)
	}
	if _, ok, _ := h.Stats(); ok != 0 {
		t.Errorf("expected no successful runs, got %d", ok)
	}
}

func TestHandler_DefaultsToSingleAttempt(t *testing.T) {
	h := NewHandler(WithMaxAttempts(0))

	cf := countingFunc{failUntil: 5}
	attempts, err := h.Run(context.Background(), cf.fn)

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestHandler_StrategyVetoStopsImmediately(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	fatal := errors.New("fatal")
	h := NewHandler(
		WithMaxAttempts(5),
		WithClock(clock),
		WithRetryStrategy(ClassifiedStrategy{
			Retryable: func(err error) bool { return !errors.Is(err, fatal) },
			Strategy:  FixedDelayStrategy{Delay: time.Second},
		}),
	)

	calls := 0
	attempts, err := h.Run(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("expected one call, got calls=%d attempts=%d", calls, attempts)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("expected no delay for fatal error, got %v", clock.Sleeps())
	}
}

func TestHandler_FixedDelayBetweenAttempts(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	h := NewHandler(
		WithMaxAttempts(3),
		WithClock(clock),
		WithRetryStrategy(FixedDelayStrategy{Delay: 250 * time.Millisecond}),
	)

	cf := countingFunc{failUntil: 5}
	_, _ = h.Run(context.Background(), cf.fn)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 sleeps between 3 attempts, got %v", sleeps)
	}
	for _, s := range sleeps {
		if s != 250*time.Millisecond {
			t.Errorf("unexpected delay %s", s)
		}
	}
}

func TestHandler_Timeout(t *testing.T) {
	h := NewHandler(
		WithTimeout(50*time.Millisecond),
		WithMaxAttempts(1),
	)

	start := time.Now()
	_, err := h.Run(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
			return nil
		}
	})
	elapsed := time.Since(start)

	if elapsed >= 500*time.Millisecond {
		t.Error("expected function to time out quickly, but took too long")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHandler_CanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHandler(
		WithMaxAttempts(3),
		WithRetryStrategy(FixedDelayStrategy{Delay: time.Hour}),
	)

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := h.Run(ctx, func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	if calls != 1 {
		t.Errorf("expected one call before cancel, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHandler_Concurrency(t *testing.T) {
	h := NewHandler(WithMaxAttempts(2))
	wg := sync.WaitGroup{}
	const goroutines = 10

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cf := &countingFunc{failUntil: 1}
			_, _ = h.Run(context.Background(), cf.fn)
		}()
	}
	wg.Wait()

	runs, ok, attempts := h.Stats()
	if runs != goroutines || ok != goroutines {
		t.Errorf("expected %d successful runs, got runs=%d ok=%d", goroutines, runs, ok)
	}
	if attempts != 2*goroutines {
		t.Errorf("expected %d attempts, got %d", 2*goroutines, attempts)
	}
}

func TestHandler_Logger(t *testing.T) {
	ml := &mockLogger{}
	h := NewHandler(
		WithLogger(ml),
		WithMaxAttempts(2),
	)

	cf := countingFunc{failUntil: 2}
	_, _ = h.Run(context.Background(), cf.fn)

	if len(ml.infoMessages) != 1 {
		t.Errorf("expected one retry log, got %v", ml.infoMessages)
	}
	if len(ml.errorMessages) == 0 {
		t.Error("expected some error logs, got none")
	}
}

func TestHandler_ErrorHandlerSeesRetriedAttempts(t *testing.T) {
	var seen []int
	h := NewHandler(
		WithMaxAttempts(3),
		WithErrorHandler(func(attempt int, _ error) { seen = append(seen, attempt) }),
	)

	cf := countingFunc{failUntil: 5}
	_, _ = h.Run(context.Background(), cf.fn)

	if fmt.Sprint(seen) != "[1 2]" {
		t.Errorf("expected retried attempts [1 2], got %v", seen)
	}
}

type mockLogger struct {
	mu            sync.Mutex
	infoMessages  []string
	errorMessages []string
}

func (m *mockLogger) Info(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMessages = append(m.infoMessages, fmt.Sprintf(msg, args...))
}

func (m *mockLogger) Error(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMessages = append(m.errorMessages, fmt.Sprintf(msg, args...))
}

type countingFunc struct {
	calls     int
	failUntil int // fail this many times, then succeed
}

func (cf *countingFunc) fn(_ context.Context) error {
	cf.calls++
	if cf.calls <= cf.failUntil {
		return fmt.Errorf("forced error attempt %d", cf.calls)
	}
	return nil
}
