// Package workflow classifies and normalizes the two workflow encodings the
// embedded editor accepts.
//
// A GraphForm document is the editor's native node-graph tree and is passed
// through untouched. A PromptForm document is a flat mapping from node id to
// an operation record of the shape {"class_type": string, "inputs": object}.
// The wire format carries no discriminator, so the form is decided by shape.
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ClassifierVersion changes whenever the shape rules below change.
const ClassifierVersion = 1

const (
	WrapperKey   = "workflow"
	ClassTypeKey = "class_type"
	InputsKey    = "inputs"
)

type Form int

const (
	FormGraph Form = iota
	FormPrompt
)

func (f Form) String() string {
	switch f {
	case FormPrompt:
		return "prompt"
	default:
		return "graph"
	}
}

// Operation is one PromptForm entry. Record holds the entry as received,
// including keys other than class_type and inputs (such as "_meta").
type Operation struct {
	ClassType string
	Inputs    map[string]any
	Record    map[string]any
}

// Document is a classified workflow. Exactly one of Graph or Prompt is
// meaningful, selected by Form.
type Document struct {
	Form   Form
	Graph  any
	Prompt map[string]Operation
}

// Value returns the wire representation of d.
func (d Document) Value() any {
	if d.Form != FormPrompt {
		return d.Graph
	}
	out := make(map[string]any, len(d.Prompt))
	for id, op := range d.Prompt {
		out[id] = op.Record
	}
	return out
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Value())
}

// UnmarshalJSON decodes and normalizes data.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// NodeIDs returns the PromptForm node ids in sorted order, or nil for
// GraphForm documents.
func (d Document) NodeIDs() []string {
	if d.Form != FormPrompt {
		return nil
	}
	ids := make([]string, 0, len(d.Prompt))
	for id := range d.Prompt {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Decode reads a JSON value keeping numbers as json.Number so that large
// integers such as node ids and seeds survive a round trip.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode workflow: trailing data after document")
	}
	return raw, nil
}

// Parse decodes data and normalizes the result.
func Parse(data []byte) (Document, error) {
	raw, err := Decode(data)
	if err != nil {
		return Document{}, err
	}
	return Normalize(raw), nil
}
