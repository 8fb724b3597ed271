package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaskirat05/graviton-bridge/runner"
)

// Readiness predicate names, as reported in timeout messages.
const (
	PredicateGraph  = "graph"
	PredicateCanvas = "canvas"
	PredicateUI     = "ui"
)

// AwaitReady polls the application's readiness predicates until all of them
// hold in the same check, or fails with ErrReadinessTimeout. It does not
// change session state; Run does that with the result.
func (b *Bridge) AwaitReady(ctx context.Context) error {
	start := b.clock.Now()
	var unmet []string

	err := runner.Poll(ctx, b.clock, b.pollInterval, b.readyTimeout, func() bool {
		unmet = b.unmetPredicates()
		return len(unmet) == 0
	})
	b.metrics.RecordReadinessWait(b.clock.Now().Sub(start), err == nil)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return cloneError(ErrReadinessTimeout,
		fmt.Sprintf("%s: timed out after %s waiting for %s", StageReady, b.readyTimeout, strings.Join(unmet, ", ")),
		err,
		map[string]any{
			"stage":   StageReady,
			"unmet":   unmet,
			"timeout": b.readyTimeout.String(),
		},
	)
}

func (b *Bridge) unmetPredicates() []string {
	var unmet []string
	if !b.predicate(Probe.GraphPresent) {
		unmet = append(unmet, PredicateGraph)
	}
	if !b.predicate(Probe.CanvasPresent) {
		unmet = append(unmet, PredicateCanvas)
	}
	if !b.predicate(Probe.UIReady) {
		unmet = append(unmet, PredicateUI)
	}
	return unmet
}

// diagnose logs one snapshot of the application's surface per session, on
// the first readiness or capability failure.
func (b *Bridge) diagnose(stage string, cause error) {
	if !b.session.claimDiagnostic() {
		return
	}
	caps := CapabilitiesOf(b.app)
	withLoggerFields(b.logger, map[string]any{
		"stage":      stage,
		"graph":      b.predicate(Probe.GraphPresent),
		"canvas":     b.predicate(Probe.CanvasPresent),
		"ui":         b.predicate(Probe.UIReady),
		"serializer": caps.Serializer,
		"converter":  caps.Converter,
		"ingester":   caps.Ingester,
		"repainter":  caps.Repainter,
		"state":      b.session.State().String(),
	}).Warn("embedded application diagnostic: %v", cause)
}
