// Package bridge drives an embedded graph editor from a host application over
// an asynchronous message channel.
//
// A Bridge owns one Session. Its event loop, started by Run, is the only
// writer of the session's readiness state and pre-readiness queue. Imports
// run one at a time on a separate lane; exports and pings never wait for it.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/jaskirat05/graviton-bridge/router"
	"github.com/jaskirat05/graviton-bridge/runner"
)

// Poster delivers outbound envelopes to the host.
type Poster interface {
	Post(ctx context.Context, env Envelope) error
}

// PosterFunc is an adapter that lets you use a function as a Poster.
type PosterFunc func(ctx context.Context, env Envelope) error

func (f PosterFunc) Post(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

type commandHandler func(ctx context.Context, env Envelope)

type Bridge struct {
	app     Probe
	poster  Poster
	session *Session
	mux     *router.Mux[commandHandler]
	lane    *lane
	inbox   chan Envelope
	running atomic.Bool

	emitMu sync.Mutex

	logger  Logger
	metrics MetricsRecorder
	clock   runner.Clock

	hostSource   string
	bridgeSource string
	version      string
	inboxSize    int

	pollInterval   time.Duration
	readyTimeout   time.Duration
	importAttempts int
	importDelay    time.Duration
	classifier     RaceClassifier
	fileName       string
	ingestSource   string
}

// New builds a bridge for app that answers through poster. app may be nil,
// in which case readiness is never reached and exports yield null.
func New(app Probe, poster Poster, opts ...Option) *Bridge {
	b := &Bridge{
		app:            app,
		poster:         poster,
		session:        newSession(),
		lane:           newLane(),
		metrics:        nopRecorder{},
		clock:          runner.SystemClock{},
		hostSource:     DefaultHostSource,
		bridgeSource:   DefaultBridgeSource,
		version:        Version,
		inboxSize:      64,
		pollInterval:   DefaultPollInterval,
		readyTimeout:   DefaultReadyTimeout,
		importAttempts: DefaultImportAttempts,
		importDelay:    DefaultImportRetryDelay,
		classifier:     RaceClassifier{Signatures: DefaultTransientSignatures},
		fileName:       DefaultImportFileName,
		ingestSource:   DefaultIngestSource,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.poster == nil {
		b.poster = PosterFunc(func(context.Context, Envelope) error { return nil })
	}
	b.logger = withLoggerFields(normalizeLogger(b.logger), map[string]any{
		"session_id": b.session.ID(),
	})
	b.inbox = make(chan Envelope, b.inboxSize)

	b.mux = router.NewMux[commandHandler]()
	b.mux.Add(CommandPing, b.handlePing)
	b.mux.Add(CommandExport, b.handleExport)
	b.mux.Add(CommandImport, b.handleImport)

	return b
}

func (b *Bridge) Session() *Session { return b.session }

// Deliver hands an inbound envelope to the event loop. It blocks only while
// the inbox is full.
func (b *Bridge) Deliver(ctx context.Context, env Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.inbox <- env:
		return nil
	}
}

// Run starts readiness monitoring and processes inbound envelopes until ctx
// is done. A Bridge can be run once.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("bridge is already running", errors.CategoryConflict).
			WithTextCode("BRIDGE_ALREADY_RUNNING")
	}

	go b.lane.run(ctx)

	readiness := make(chan error, 1)
	go func() {
		readiness <- b.AwaitReady(ctx)
	}()

	b.logger.Info("bridge session started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bridge session stopped")
			return ctx.Err()
		case err := <-readiness:
			readiness = nil
			b.onReadiness(ctx, err)
		case env := <-b.inbox:
			b.route(ctx, env)
		}
	}
}

func (b *Bridge) route(ctx context.Context, env Envelope) {
	if env.Source != b.hostSource {
		return
	}
	handlers := b.mux.Get(env.Type)
	if len(handlers) == 0 {
		b.logger.Debug("ignoring unknown command %q", env.Type)
		return
	}
	b.metrics.RecordCommand(env.Type)
	b.dispatch(ctx, handlers, env)
}

func (b *Bridge) dispatch(ctx context.Context, handlers []commandHandler, env Envelope) {
	for _, h := range handlers {
		b.guard(ctx, env.Type, func() { h(ctx, env) })
	}
}

// onReadiness runs on the event loop. Queued commands are dispatched before
// the loop reads the next inbound envelope.
func (b *Bridge) onReadiness(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		b.session.failReadiness(err)
		b.diagnose(StageReady, err)
		b.emitError(ctx, StageReady, err)
		for _, q := range b.session.queue.drain() {
			b.emitError(ctx, q.Type, err)
		}
		return
	}

	if !b.session.markReady() {
		return
	}
	b.logger.Info("embedded application ready")
	b.emit(ctx, StageReady, EventReady, ReadyPayload{
		Version:  b.version,
		HasGraph: b.predicate(Probe.GraphPresent),
	})

	queued := b.session.queue.drain()
	if len(queued) > 0 {
		b.logger.Info("replaying %d queued command(s)", len(queued))
	}
	for _, q := range queued {
		b.dispatch(ctx, b.mux.Get(q.Type), Envelope{
			Source:  b.hostSource,
			Type:    q.Type,
			Payload: q.Payload,
		})
	}
}

func (b *Bridge) handlePing(ctx context.Context, _ Envelope) {
	b.emit(ctx, CommandPing, EventPong, PongPayload{Now: b.clock.Now().UnixMilli()})
}

// handleExport does not wait for readiness or for the import lane.
func (b *Bridge) handleExport(ctx context.Context, _ Envelope) {
	go b.guard(ctx, CommandExport, func() {
		b.emit(ctx, CommandExport, EventExported, WorkflowPayload{Workflow: b.Snapshot(ctx)})
	})
}

func (b *Bridge) handleImport(ctx context.Context, env Envelope) {
	if err := b.session.ReadinessError(); err != nil {
		b.emitError(ctx, CommandImport, err)
		return
	}
	if b.session.State() != Ready {
		b.session.queue.push(QueuedCommand{
			Type:       env.Type,
			Payload:    append(json.RawMessage(nil), env.Payload...),
			ReceivedAt: b.clock.Now(),
		})
		b.logger.Debug("queued %s until ready (%d pending)", env.Type, b.session.Pending())
		return
	}

	payload := env.Payload
	b.lane.submit(func(ctx context.Context) {
		b.guard(ctx, CommandImport, func() {
			b.runImport(ctx, payload)
		})
	})
}

func (b *Bridge) runImport(ctx context.Context, payload json.RawMessage) {
	cmd, err := DecodeImportCommand(payload)
	if err == nil {
		err = cmd.Validate()
	}
	if err != nil {
		b.emitError(ctx, CommandImport, err)
		return
	}

	doc, err := b.ImportWorkflow(ctx, cmd.Workflow)
	if err != nil {
		b.emitError(ctx, CommandImport, err)
		return
	}
	b.emit(ctx, CommandImport, EventImported, WorkflowPayload{Workflow: doc})
}

// guard turns a panic inside fn into an error event for stage.
func (b *Bridge) guard(ctx context.Context, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := panicError(stage, r)
			withLoggerFields(b.logger, map[string]any{"stack": panicStack()}).
				Error("recovered from panic in %s: %v", stage, r)
			b.emitError(ctx, stage, err)
		}
	}()
	fn()
}

// predicate evaluates an application probe, treating a panic as false.
func (b *Bridge) predicate(fn func(Probe) bool) (ok bool) {
	if b.app == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn(b.app)
}

func (b *Bridge) emit(ctx context.Context, stage, eventType string, payload any) {
	env, err := NewEnvelope(b.bridgeSource, eventType, payload)
	if err != nil {
		b.emitError(ctx, stage, err)
		return
	}
	b.post(ctx, env)
}

func (b *Bridge) emitError(ctx context.Context, stage string, err error) {
	if lf, ok := b.logger.(FieldsLogger); ok {
		lf.WithFields(map[string]any{"stage": stage, "code": ErrorCode(err)}).Warn("%s failed: %v", stage, err)
	} else {
		b.logger.Warn("%s failed: %v", stage, err)
	}
	env, merr := NewEnvelope(b.bridgeSource, EventError, ErrorPayload{
		Stage:   stage,
		Message: ErrorMessage(err),
	})
	if merr != nil {
		b.logger.Error("encode error event: %v", merr)
		return
	}
	b.post(ctx, env)
}

func (b *Bridge) post(ctx context.Context, env Envelope) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	if err := b.deliverOut(ctx, env); err != nil {
		b.logger.Warn("post %s event: %v", env.Type, err)
		return
	}
	b.metrics.RecordEvent(env.Type)
}

// deliverOut calls the poster with a panic turned into an error. post runs
// inside guard's recover, so a second panic there would escape.
func (b *Bridge) deliverOut(ctx context.Context, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poster panicked: %v", r)
		}
	}()
	return b.poster.Post(ctx, env)
}
