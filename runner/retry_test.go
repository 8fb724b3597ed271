package runner

import (
	"fmt"
	"testing"
	"time"
)

type fixedDecisionStrategy struct {
	decision RetryDecision
}

func (f fixedDecisionStrategy) SleepDuration(int, error) time.Duration { return f.decision.Delay }

func (f fixedDecisionStrategy) DecideRetry(int, error) RetryDecision { return f.decision }

func TestDecideRetryUsesDeciderWhenAvailable(t *testing.T) {
	strategy := fixedDecisionStrategy{
		decision: RetryDecision{
			ShouldRetry: false,
			Delay:       25 * time.Millisecond,
			Metadata: map[string]any{
				"source": "test",
			},
		},
	}

	decision := DecideRetry(strategy, 1, fmt.Errorf("boom"))
	if decision.ShouldRetry {
		t.Fatal("expected strategy decision to disable retry")
	}
	if decision.Delay != 25*time.Millisecond {
		t.Fatalf("unexpected delay: %s", decision.Delay)
	}
	if decision.Metadata["source"] != "test" {
		t.Fatal("expected metadata propagation")
	}
}

func TestDecideRetryFallsBackToSleepDuration(t *testing.T) {
	decision := DecideRetry(FixedDelayStrategy{Delay: 40 * time.Millisecond}, 2, nil)
	if !decision.ShouldRetry {
		t.Fatal("expected fallback strategy to retry")
	}
	if decision.Delay != 40*time.Millisecond {
		t.Fatalf("unexpected fallback delay: %s", decision.Delay)
	}
}

func TestClassifiedStrategy(t *testing.T) {
	transient := fmt.Errorf("store not ready")
	strategy := ClassifiedStrategy{
		Retryable: func(err error) bool { return err == transient },
		Strategy:  FixedDelayStrategy{Delay: 10 * time.Millisecond},
	}

	d := DecideRetry(strategy, 0, transient)
	if !d.ShouldRetry || d.Delay != 10*time.Millisecond {
		t.Fatalf("expected transient retry with delay, got %+v", d)
	}

	d = DecideRetry(strategy, 0, fmt.Errorf("bad payload"))
	if d.ShouldRetry {
		t.Fatal("expected other errors to be fatal")
	}
	if d.Delay != 0 {
		t.Fatalf("expected no delay on fatal decision, got %s", d.Delay)
	}
}

func TestClassifiedStrategyWithoutClassifierNeverRetries(t *testing.T) {
	d := DecideRetry(ClassifiedStrategy{}, 0, fmt.Errorf("anything"))
	if d.ShouldRetry {
		t.Fatal("expected nil classifier to reject retries")
	}
}

func TestFixedDelayStrategyClampsNegative(t *testing.T) {
	if got := (FixedDelayStrategy{Delay: -time.Second}).SleepDuration(0, nil); got != 0 {
		t.Fatalf("expected 0, got %s", got)
	}
}
