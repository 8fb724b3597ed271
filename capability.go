package bridge

import "context"

// Probe is the minimal surface every embedded application exposes: the three
// readiness predicates. The other capabilities below are optional and are
// discovered by type assertion, so an application missing one degrades that
// operation instead of failing to construct a Bridge.
type Probe interface {
	// GraphPresent reports whether the graph object exists.
	GraphPresent() bool
	// CanvasPresent reports whether the rendering surface exists.
	CanvasPresent() bool
	// UIReady reports whether the UI runtime is attached and fully initialized.
	UIReady() bool
}

// GraphSerializer returns the editor's own structural serialization of the
// current graph.
type GraphSerializer interface {
	SerializeGraph(ctx context.Context) (any, error)
}

// Conversion is the result of converting the current graph into a document.
// Output is what an export returns. Workflow is the graph the conversion ran
// on; the bridge only logs whether it was present.
type Conversion struct {
	Output   any
	Workflow any
}

// DocumentConverter is the richer graph to document conversion path.
type DocumentConverter interface {
	DocumentFromGraph(ctx context.Context) (Conversion, error)
}

// File is a named payload handed to the ingestion entry point.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ingester is the editor's file ingestion entry point. source tags where the
// file came from, the way a drop or paste handler would.
type Ingester interface {
	HandleFile(ctx context.Context, file File, source string) error
}

// Repainter receives the dirty hint after a successful import.
type Repainter interface {
	SetDirty(foreground, background bool)
}

// Capabilities summarizes which optional capabilities app provides.
type Capabilities struct {
	Serializer bool `json:"serializer"`
	Converter  bool `json:"converter"`
	Ingester   bool `json:"ingester"`
	Repainter  bool `json:"repainter"`
}

func CapabilitiesOf(app Probe) Capabilities {
	if app == nil {
		return Capabilities{}
	}
	_, serializer := app.(GraphSerializer)
	_, converter := app.(DocumentConverter)
	_, ingester := app.(Ingester)
	_, repainter := app.(Repainter)
	return Capabilities{
		Serializer: serializer,
		Converter:  converter,
		Ingester:   ingester,
		Repainter:  repainter,
	}
}
