// Package sandbox is an in-memory embedded editor. It implements the whole
// capability surface the bridge consumes, with subsystems that come up after
// configurable delays and an injectable initialization race. It backs the
// serve command's local mode and the integration tests.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/jaskirat05/graviton-bridge"
	"github.com/jaskirat05/graviton-bridge/runner"
	"github.com/jaskirat05/graviton-bridge/workflow"
)

// RaceMessage mimics the error the real editor raises when its canvas
// accessor runs before the internal store exists.
const RaceMessage = `[🍍]: "getActivePinia()" was called but there was no active Pinia. Are you trying to use a store before calling "app.use(pinia)"?`

type App struct {
	mu sync.Mutex

	clock   runner.Clock
	started time.Time

	graphDelay  time.Duration
	canvasDelay time.Duration
	uiDelay     time.Duration

	raceFailures int
	noConverter  bool

	graph  map[string]any
	prompt map[string]any

	ingestCalls int
	sources     []string
	dirtyCalls  int
}

var (
	_ bridge.Probe             = (*App)(nil)
	_ bridge.GraphSerializer   = (*App)(nil)
	_ bridge.DocumentConverter = (*App)(nil)
	_ bridge.Ingester          = (*App)(nil)
	_ bridge.Repainter         = (*App)(nil)
)

// New returns an App whose delays start counting now.
func New(opts ...Option) *App {
	a := &App{clock: runner.SystemClock{}}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.started = a.clock.Now()
	return a
}

func (a *App) since() time.Duration {
	return a.clock.Now().Sub(a.started)
}

func (a *App) GraphPresent() bool  { return a.since() >= a.graphDelay }
func (a *App) CanvasPresent() bool { return a.since() >= a.canvasDelay }
func (a *App) UIReady() bool       { return a.since() >= a.uiDelay }

// SerializeGraph returns a copy of the current graph, or nil when nothing has
// been loaded.
func (a *App) SerializeGraph(context.Context) (any, error) {
	if !a.GraphPresent() {
		return nil, errors.New("graph not initialized", errors.CategoryConflict)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.graph == nil {
		return nil, nil
	}
	return deepCopy(a.graph)
}

// DocumentFromGraph converts the current graph into PromptForm.
func (a *App) DocumentFromGraph(context.Context) (bridge.Conversion, error) {
	if a.noConverter {
		return bridge.Conversion{}, errors.New("document conversion is disabled", errors.CategoryBadInput)
	}
	if !a.GraphPresent() {
		return bridge.Conversion{}, errors.New("graph not initialized", errors.CategoryConflict)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.graph == nil {
		return bridge.Conversion{}, nil
	}

	graph, err := deepCopy(a.graph)
	if err != nil {
		return bridge.Conversion{}, err
	}
	var prompt map[string]any
	if a.prompt != nil {
		prompt, err = deepCopy(a.prompt)
	} else {
		prompt, err = graphToPrompt(a.graph)
	}
	if err != nil {
		return bridge.Conversion{}, err
	}
	if prompt == nil {
		return bridge.Conversion{Workflow: graph}, nil
	}
	return bridge.Conversion{Output: prompt, Workflow: graph}, nil
}

// HandleFile loads a JSON workflow file. PromptForm files are laid out as a
// graph; GraphForm files get ids assigned to nodes that lack one.
func (a *App) HandleFile(_ context.Context, file bridge.File, source string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ingestCalls++
	a.sources = append(a.sources, source)

	if a.raceFailures > 0 {
		a.raceFailures--
		return fmt.Errorf("%s", RaceMessage)
	}

	doc, err := workflow.Parse(file.Data)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, fmt.Sprintf("unable to load %s", file.Name))
	}

	switch doc.Form {
	case workflow.FormPrompt:
		prompt, err := deepCopy(doc.Value())
		if err != nil {
			return err
		}
		a.prompt = prompt
		a.graph = promptToGraph(doc)
	default:
		raw, ok := doc.Graph.(map[string]any)
		if !ok {
			return errors.New(fmt.Sprintf("unable to load %s: workflow is not an object", file.Name), errors.CategoryBadInput)
		}
		graph, err := deepCopy(raw)
		if err != nil {
			return err
		}
		if err := assignNodeIDs(graph); err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, fmt.Sprintf("unable to load %s", file.Name))
		}
		a.graph = graph
		a.prompt = nil
	}
	return nil
}

func (a *App) SetDirty(foreground, background bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if foreground || background {
		a.dirtyCalls++
	}
}

// IngestCalls is the number of HandleFile calls so far, failed ones included.
func (a *App) IngestCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ingestCalls
}

// Sources lists the ingestion source tags in call order.
func (a *App) Sources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sources...)
}

func (a *App) DirtyCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirtyCalls
}

// assignNodeIDs gives every node without a numeric id the next free id and
// updates last_node_id.
func assignNodeIDs(graph map[string]any) error {
	nodes, ok := graph["nodes"].([]any)
	if !ok {
		return fmt.Errorf("workflow has no nodes list")
	}

	maxID := int64(0)
	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			return fmt.Errorf("node is not an object")
		}
		if id, ok := numericID(node["id"]); ok && id > maxID {
			maxID = id
		}
	}
	if last, ok := numericID(graph["last_node_id"]); ok && last > maxID {
		maxID = last
	}

	for _, n := range nodes {
		node := n.(map[string]any)
		if _, ok := numericID(node["id"]); ok {
			continue
		}
		maxID++
		node["id"] = maxID
	}
	graph["last_node_id"] = maxID
	return nil
}

func numericID(v any) (int64, bool) {
	switch id := v.(type) {
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case float64:
		return int64(id), true
	case int:
		return int64(id), true
	case int64:
		return id, true
	}
	return 0, false
}

func promptToGraph(doc workflow.Document) map[string]any {
	ids := doc.NodeIDs()
	nodes := make([]any, 0, len(ids))
	maxID := int64(0)
	for i, id := range ids {
		op := doc.Prompt[id]
		nodeID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			nodeID = int64(i + 1)
		}
		if nodeID > maxID {
			maxID = nodeID
		}
		nodes = append(nodes, map[string]any{
			"id":             nodeID,
			"type":           op.ClassType,
			"widgets_values": op.Inputs,
		})
	}
	return map[string]any{
		"last_node_id": maxID,
		"nodes":        nodes,
		"links":        []any{},
	}
}

func graphToPrompt(graph map[string]any) (map[string]any, error) {
	nodes, _ := graph["nodes"].([]any)
	out := make(map[string]any, len(nodes))
	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		classType, ok := node["type"].(string)
		if !ok {
			continue
		}
		id, ok := numericID(node["id"])
		if !ok {
			continue
		}
		inputs, _ := node["widgets_values"].(map[string]any)
		if inputs == nil {
			inputs = map[string]any{}
		}
		out[strconv.FormatInt(id, 10)] = map[string]any{
			workflow.ClassTypeKey: classType,
			workflow.InputsKey:    inputs,
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return deepCopy(out)
}

// deepCopy round trips v through JSON so callers never share maps with the
// app's state.
func deepCopy[T any](v T) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	raw, err := workflow.Decode(data)
	if err != nil {
		return nil, err
	}
	out, _ := raw.(map[string]any)
	return out, nil
}

// NodeTypes returns the node types of the current graph, sorted.
func (a *App) NodeTypes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	nodes, _ := a.graph["nodes"].([]any)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if node, ok := n.(map[string]any); ok {
			if t, ok := node["type"].(string); ok {
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
