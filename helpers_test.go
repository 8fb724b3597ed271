package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaskirat05/graviton-bridge/runner"
	"github.com/jaskirat05/graviton-bridge/workflow"
)

type recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *recorder) Post(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *recorder) events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envs...)
}

func (r *recorder) wait(t *testing.T, n int) []Envelope {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.events()) >= n
	}, 2*time.Second, 2*time.Millisecond, "expected %d events", n)
	return r.events()
}

// probeApp has the readiness predicates and nothing else.
type probeApp struct {
	ready atomic.Bool
}

func (a *probeApp) GraphPresent() bool  { return a.ready.Load() }
func (a *probeApp) CanvasPresent() bool { return a.ready.Load() }
func (a *probeApp) UIReady() bool       { return a.ready.Load() }

// fullApp implements every optional capability. Ingested graphs become the
// current graph unless ingestFn is set.
type fullApp struct {
	probeApp

	mu        sync.Mutex
	graph     any
	files     []File
	sources   []string
	dirty     int
	ingestFn  func(n int, f File) error
	convertFn func() (Conversion, error)
	serialFn  func() (any, error)
}

func newFullApp(ready bool) *fullApp {
	a := &fullApp{}
	a.ready.Store(ready)
	return a
}

func (a *fullApp) HandleFile(_ context.Context, f File, source string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = append(a.files, f)
	a.sources = append(a.sources, source)
	if a.ingestFn != nil {
		if err := a.ingestFn(len(a.files), f); err != nil {
			return err
		}
	}
	raw, err := workflow.Decode(f.Data)
	if err != nil {
		return err
	}
	a.graph = raw
	return nil
}

func (a *fullApp) SerializeGraph(context.Context) (any, error) {
	if a.serialFn != nil {
		return a.serialFn()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.graph, nil
}

func (a *fullApp) DocumentFromGraph(context.Context) (Conversion, error) {
	if a.convertFn != nil {
		return a.convertFn()
	}
	return Conversion{}, errNoConverter
}

func (a *fullApp) SetDirty(fg, bg bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty++
}

func (a *fullApp) ingested() []File {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]File(nil), a.files...)
}

func (a *fullApp) dirtyCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

var errNoConverter = ErrCapabilityUnavailable.Clone()

// gateClock is a FakeClock whose sleeps block until the gate opens.
type gateClock struct {
	*runner.FakeClock
	gate chan struct{}
}

func newGateClock() *gateClock {
	return &gateClock{
		FakeClock: runner.NewFakeClock(time.Unix(1700000000, 0)),
		gate:      make(chan struct{}),
	}
}

func (c *gateClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.gate:
	}
	return c.FakeClock.Sleep(ctx, d)
}

func (c *gateClock) open() { close(c.gate) }

func quietLogger() Logger {
	return NewFmtLogger(io.Discard)
}

func newTestBridge(app Probe, rec *recorder, opts ...Option) *Bridge {
	base := []Option{
		WithLogger(quietLogger()),
		WithPollInterval(2 * time.Millisecond),
		WithReadyTimeout(10 * time.Second),
	}
	return New(app, rec, append(base, opts...)...)
}

func startBridge(t *testing.T, b *Bridge) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctx
}

func hostEnvelope(t *testing.T, msgType string, payload any) Envelope {
	t.Helper()
	env, err := NewEnvelope(DefaultHostSource, msgType, payload)
	require.NoError(t, err)
	return env
}

func importEnvelope(t *testing.T, wf any) Envelope {
	t.Helper()
	return hostEnvelope(t, CommandImport, map[string]any{"workflow": wf})
}

func decodeMap(t *testing.T, data json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out))
	return out
}

func types(envs []Envelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}
