package bridge

import (
	"time"

	"github.com/jaskirat05/graviton-bridge/runner"
)

// Version is reported in the ready event.
const Version = "0.4.0"

const (
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultReadyTimeout     = 30 * time.Second
	DefaultImportAttempts   = 5
	DefaultImportRetryDelay = 250 * time.Millisecond
	DefaultImportFileName   = "workflow.json"
	DefaultIngestSource     = "graviton-bridge"
)

type Option func(*Bridge)

func WithLogger(l Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

func WithMetrics(m MetricsRecorder) Option {
	return func(b *Bridge) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithClock replaces the clock used for readiness polling, retry delays and
// pong timestamps.
func WithClock(c runner.Clock) Option {
	return func(b *Bridge) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithHostSource sets the source tag inbound messages must carry.
func WithHostSource(tag string) Option {
	return func(b *Bridge) {
		if tag != "" {
			b.hostSource = tag
		}
	}
}

// WithBridgeSource sets the source tag placed on outbound events.
func WithBridgeSource(tag string) Option {
	return func(b *Bridge) {
		if tag != "" {
			b.bridgeSource = tag
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

func WithReadyTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.readyTimeout = d
		}
	}
}

// WithImportAttempts sets the total ingestion attempts per import, the first
// one included.
func WithImportAttempts(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.importAttempts = n
		}
	}
}

func WithImportRetryDelay(d time.Duration) Option {
	return func(b *Bridge) {
		if d >= 0 {
			b.importDelay = d
		}
	}
}

// WithTransientSignatures replaces the error substrings treated as the
// editor's initialization race.
func WithTransientSignatures(sigs ...string) Option {
	return func(b *Bridge) {
		b.classifier = RaceClassifier{Signatures: append([]string(nil), sigs...)}
	}
}

func WithIngestSource(tag string) Option {
	return func(b *Bridge) {
		if tag != "" {
			b.ingestSource = tag
		}
	}
}

func WithImportFileName(name string) Option {
	return func(b *Bridge) {
		if name != "" {
			b.fileName = name
		}
	}
}

// WithInboxSize sets how many inbound envelopes may wait for the event loop.
func WithInboxSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.inboxSize = n
		}
	}
}
