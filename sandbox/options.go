package sandbox

import (
	"time"

	"github.com/jaskirat05/graviton-bridge/runner"
)

type Option func(*App)

// WithClock sets the clock subsystem delays are measured on.
func WithClock(c runner.Clock) Option {
	return func(a *App) {
		if c != nil {
			a.clock = c
		}
	}
}

func WithGraphDelay(d time.Duration) Option {
	return func(a *App) { a.graphDelay = d }
}

func WithCanvasDelay(d time.Duration) Option {
	return func(a *App) { a.canvasDelay = d }
}

func WithUIDelay(d time.Duration) Option {
	return func(a *App) { a.uiDelay = d }
}

// WithRaceFailures makes the first n ingestion calls fail with RaceMessage.
func WithRaceFailures(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.raceFailures = n
		}
	}
}

// WithoutConverter makes DocumentFromGraph fail, forcing exports onto the
// serializer path.
func WithoutConverter() Option {
	return func(a *App) { a.noConverter = true }
}

// WithGraph preloads a graph.
func WithGraph(graph map[string]any) Option {
	return func(a *App) {
		if graph == nil {
			return
		}
		if cp, err := deepCopy(graph); err == nil {
			a.graph = cp
		}
	}
}
