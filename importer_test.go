package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskirat05/graviton-bridge/runner"
	"github.com/jaskirat05/graviton-bridge/workflow"
)

const raceText = `"getActivePinia()" was called but there was no active Pinia`

func graphDoc() map[string]any {
	return map[string]any{"last_node_id": 1, "nodes": []any{map[string]any{"id": 1, "type": "KSampler"}}}
}

func TestImportWorkflow_RetriesTransientFailures(t *testing.T) {
	for _, failures := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("%d failures", failures), func(t *testing.T) {
			app := newFullApp(true)
			app.ingestFn = func(n int, _ File) error {
				if n <= failures {
					return errors.New(raceText)
				}
				return nil
			}
			clock := runner.NewFakeClock(time.Unix(0, 0))
			b := newTestBridge(app, &recorder{}, WithClock(clock))

			doc, err := b.ImportWorkflow(context.Background(), graphDoc())
			require.NoError(t, err)
			require.NotNil(t, doc)
			assert.Equal(t, workflow.FormGraph, doc.Form)

			assert.Len(t, app.ingested(), failures+1)
			assert.Len(t, clock.Sleeps(), failures)
			for _, d := range clock.Sleeps() {
				assert.Equal(t, DefaultImportRetryDelay, d)
			}
			assert.Equal(t, 1, app.dirtyCalls())
		})
	}
}

func TestImportWorkflow_ExhaustsBudget(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(n int, _ File) error {
		return fmt.Errorf("attempt %d: %s", n, raceText)
	}
	clock := runner.NewFakeClock(time.Unix(0, 0))
	b := newTestBridge(app, &recorder{}, WithClock(clock))

	doc, err := b.ImportWorkflow(context.Background(), graphDoc())
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, ErrCodeImportFailed, ErrorCode(err))
	assert.Contains(t, ErrorMessage(err), "5 attempt(s)")
	assert.Contains(t, ErrorMessage(err), "attempt 5:")

	assert.Len(t, app.ingested(), DefaultImportAttempts)
	assert.Len(t, clock.Sleeps(), DefaultImportAttempts-1)
	assert.Equal(t, 0, app.dirtyCalls())

	var ge *apperrors.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, DefaultImportAttempts, ge.Metadata["attempts"])
	assert.Equal(t, true, ge.Metadata["transient"])
}

func TestImportWorkflow_FatalFailureIsNotRetried(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(int, File) error {
		return errors.New("unsupported node type")
	}
	clock := runner.NewFakeClock(time.Unix(0, 0))
	b := newTestBridge(app, &recorder{}, WithClock(clock))

	_, err := b.ImportWorkflow(context.Background(), graphDoc())
	require.Error(t, err)
	assert.Equal(t, ErrCodeImportFailed, ErrorCode(err))
	assert.Contains(t, ErrorMessage(err), "unsupported node type")
	assert.Len(t, app.ingested(), 1)
	assert.Empty(t, clock.Sleeps())
}

func TestImportWorkflow_StructuredTransientCode(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(n int, _ File) error {
		if n == 1 {
			return ErrTransientRace.Clone()
		}
		return nil
	}
	b := newTestBridge(app, &recorder{}, WithClock(runner.NewFakeClock(time.Unix(0, 0))))

	_, err := b.ImportWorkflow(context.Background(), graphDoc())
	require.NoError(t, err)
	assert.Len(t, app.ingested(), 2)
}

func TestImportWorkflow_CustomSignatures(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(n int, _ File) error {
		if n == 1 {
			return errors.New("store warming up")
		}
		return nil
	}
	b := newTestBridge(app, &recorder{},
		WithClock(runner.NewFakeClock(time.Unix(0, 0))),
		WithTransientSignatures("warming up"),
		WithImportAttempts(2),
		WithImportRetryDelay(0),
	)

	_, err := b.ImportWorkflow(context.Background(), graphDoc())
	require.NoError(t, err)
	assert.Len(t, app.ingested(), 2)
}

func TestImportWorkflow_MissingPayload(t *testing.T) {
	app := newFullApp(true)
	b := newTestBridge(app, &recorder{})

	_, err := b.ImportWorkflow(context.Background(), nil)
	assert.True(t, HasErrorCode(err, ErrCodeMissingPayload))
	assert.Empty(t, app.ingested())
}

func TestImportWorkflow_NoIngester(t *testing.T) {
	app := &probeApp{}
	app.ready.Store(true)
	b := newTestBridge(app, &recorder{})

	_, err := b.ImportWorkflow(context.Background(), graphDoc())
	assert.True(t, HasErrorCode(err, ErrCodeCapabilityUnavailable))
	assert.True(t, b.session.diagnosed.Load())
}

func TestImportWorkflow_IngestPanicIsFatal(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(int, File) error { panic("ingest exploded") }
	clock := runner.NewFakeClock(time.Unix(0, 0))
	b := newTestBridge(app, &recorder{}, WithClock(clock))

	_, err := b.ImportWorkflow(context.Background(), graphDoc())
	require.Error(t, err)
	assert.Contains(t, ErrorMessage(err), "ingest exploded")
	assert.Empty(t, clock.Sleeps())
}

func TestImportWorkflow_NormalizesWrappedPrompt(t *testing.T) {
	app := newFullApp(true)
	b := newTestBridge(app, &recorder{})

	raw := map[string]any{"workflow": map[string]any{
		"5": map[string]any{"class_type": "EmptyLatentImage", "inputs": map[string]any{"width": 512}},
	}}
	doc, err := b.ImportWorkflow(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, workflow.FormPrompt, doc.Form)

	files := app.ingested()
	require.Len(t, files, 1)
	assert.JSONEq(t, `{"5":{"class_type":"EmptyLatentImage","inputs":{"width":512}}}`, string(files[0].Data))
}

func TestImportWorkflow_CanceledDuringBackoff(t *testing.T) {
	app := newFullApp(true)
	app.ingestFn = func(int, File) error { return errors.New(raceText) }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newTestBridge(app, &recorder{}, WithClock(runner.NewFakeClock(time.Unix(0, 0))))

	_, err := b.ImportWorkflow(ctx, graphDoc())
	require.Error(t, err)
	assert.Equal(t, ErrCodeImportFailed, ErrorCode(err))
	assert.Len(t, app.ingested(), 1)
}
