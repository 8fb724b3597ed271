package bridge

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jaskirat05/graviton-bridge/workflow"
)

// Snapshot returns the application's current workflow, preferring the
// document converter and falling back to the structural serializer. nil
// means no exportable state; failures of either path are never returned.
func (b *Bridge) Snapshot(ctx context.Context) *workflow.Document {
	if conv, ok := b.app.(DocumentConverter); ok {
		doc, err := b.convert(ctx, conv)
		if err == nil {
			return doc
		}
		b.logger.Debug("document conversion unavailable, falling back: %v", err)
	}

	if ser, ok := b.app.(GraphSerializer); ok {
		doc, err := b.serialize(ctx, ser)
		if err == nil {
			return doc
		}
		b.logger.Debug("graph serialization failed: %v", err)
	}
	return nil
}

func (b *Bridge) convert(ctx context.Context, conv DocumentConverter) (doc *workflow.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("document conversion panicked: %v", r)
		}
	}()
	out, err := conv.DocumentFromGraph(ctx)
	if err != nil {
		return nil, err
	}
	if isNil(out.Output) {
		return nil, fmt.Errorf("document conversion produced no output (graph present: %t)", !isNil(out.Workflow))
	}
	d := workflow.FromValue(out.Output)
	return &d, nil
}

func (b *Bridge) serialize(ctx context.Context, ser GraphSerializer) (doc *workflow.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("graph serialization panicked: %v", r)
		}
	}()
	graph, err := ser.SerializeGraph(ctx)
	if err != nil {
		return nil, err
	}
	if isNil(graph) {
		return nil, nil
	}
	d := workflow.FromValue(graph)
	return &d, nil
}

// isNil also reports true for a nil map, slice or pointer held in v.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
