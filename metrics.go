package bridge

import "time"

// Import attempt outcomes reported to MetricsRecorder.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
)

// MetricsRecorder receives bridge activity counts.
type MetricsRecorder interface {
	RecordCommand(command string)
	RecordEvent(event string)
	RecordImportAttempt(outcome string)
	RecordReadinessWait(d time.Duration, ready bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string)                   {}
func (nopRecorder) RecordEvent(string)                     {}
func (nopRecorder) RecordImportAttempt(string)             {}
func (nopRecorder) RecordReadinessWait(time.Duration, bool) {}
