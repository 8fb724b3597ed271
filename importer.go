package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jaskirat05/graviton-bridge/runner"
	"github.com/jaskirat05/graviton-bridge/workflow"
)

// ImportWorkflow normalizes raw, hands it to the application's ingestion
// entry point and returns the application's state as re-read afterwards,
// which may be nil. Only failures matching the race classifier are retried.
func (b *Bridge) ImportWorkflow(ctx context.Context, raw any) (*workflow.Document, error) {
	if raw == nil {
		return nil, ErrMissingPayload.Clone()
	}

	ingester, ok := b.app.(Ingester)
	if !ok {
		err := cloneError(ErrCapabilityUnavailable,
			"embedded application has no file ingestion entry point", nil,
			map[string]any{"capability": "ingester"})
		b.diagnose(CommandImport, err)
		return nil, err
	}

	doc := workflow.Normalize(raw)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, cloneError(ErrImportFailed, fmt.Sprintf("encode workflow: %v", err), err, nil)
	}
	file := File{Name: b.fileName, ContentType: "application/json", Data: data}

	log := withLoggerFields(b.logger, map[string]any{
		"command": CommandImport,
		"form":    doc.Form.String(),
	})
	h := runner.NewHandler(
		runner.WithMaxAttempts(b.importAttempts),
		runner.WithClock(b.clock),
		runner.WithLogger(log),
		runner.WithRetryStrategy(runner.ClassifiedStrategy{
			Retryable: b.classifier.IsTransient,
			Strategy:  runner.FixedDelayStrategy{Delay: b.importDelay},
		}),
	)

	attempts, err := h.Run(ctx, func(ctx context.Context) error {
		err := b.ingest(ctx, ingester, file)
		switch {
		case err == nil:
			b.metrics.RecordImportAttempt(OutcomeSuccess)
		case b.classifier.IsTransient(err):
			b.metrics.RecordImportAttempt(OutcomeTransient)
		default:
			b.metrics.RecordImportAttempt(OutcomeFatal)
		}
		return err
	})
	if err != nil {
		return nil, cloneError(ErrImportFailed,
			fmt.Sprintf("import failed after %d attempt(s): %s", attempts, err.Error()),
			err,
			map[string]any{
				"attempts":  attempts,
				"transient": b.classifier.IsTransient(err),
				"form":      doc.Form.String(),
			})
	}

	b.markDirty()
	return b.Snapshot(ctx), nil
}

func (b *Bridge) ingest(ctx context.Context, ingester Ingester, file File) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()
	return ingester.HandleFile(ctx, file, b.ingestSource)
}

func (b *Bridge) markDirty() {
	rp, ok := b.app.(Repainter)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("dirty hint panicked: %v", r)
		}
	}()
	rp.SetDirty(true, true)
}
