package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	"github.com/jaskirat05/graviton-bridge/workflow"
)

const (
	DefaultHostSource   = "graviton-host"
	DefaultBridgeSource = "graviton-bridge"
)

// Inbound command types.
const (
	CommandPing   = "ping"
	CommandExport = "export-workflow"
	CommandImport = "import-workflow"
)

// Outbound event types.
const (
	EventReady    = "ready"
	EventPong     = "pong"
	EventExported = "workflow-exported"
	EventImported = "workflow-imported"
	EventError    = "error"
)

// StageReady names readiness failures in error events. Command failures use
// the command type as their stage.
const StageReady = "ready"

// Envelope is the message shape in both directions.
type Envelope struct {
	Source  string          `json:"source"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEnvelope parses a raw frame. Frames that are not JSON objects or lack
// a type are rejected.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Wrap(err, errors.CategoryBadInput, "decode envelope").
			WithTextCode(ErrCodeInvalidMessage)
	}
	if strings.TrimSpace(env.Type) == "" {
		return Envelope{}, errors.New("envelope has no type", errors.CategoryBadInput).
			WithTextCode(ErrCodeInvalidMessage)
	}
	return env, nil
}

// NewEnvelope builds an envelope with payload marshaled to JSON.
func NewEnvelope(source, msgType string, payload any) (Envelope, error) {
	env := Envelope{Source: source, Type: msgType}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env.Payload = data
	return env, nil
}

type ReadyPayload struct {
	Version  string `json:"version"`
	HasGraph bool   `json:"hasGraph"`
}

type PongPayload struct {
	// Now is milliseconds since the Unix epoch.
	Now int64 `json:"now"`
}

// WorkflowPayload carries a document, or null when none is available.
type WorkflowPayload struct {
	Workflow *workflow.Document `json:"workflow"`
}

type ErrorPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ImportCommand is the decoded payload of an import-workflow command.
// Workflow holds the raw document, possibly wrapped, as decoded from JSON.
type ImportCommand struct {
	Workflow any
}

func (ImportCommand) Type() string { return CommandImport }

func (c ImportCommand) Validate() error {
	if c.Workflow == nil {
		return ErrMissingPayload.Clone()
	}
	return nil
}

// DecodeImportCommand extracts payload.workflow. An absent payload or a null
// workflow decodes to an ImportCommand that fails validation.
func DecodeImportCommand(payload json.RawMessage) (ImportCommand, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return ImportCommand{}, nil
	}
	var body struct {
		Workflow json.RawMessage `json:"workflow"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ImportCommand{}, errors.Wrap(err, errors.CategoryBadInput, "decode import payload").
			WithTextCode(ErrCodeInvalidMessage)
	}
	if len(body.Workflow) == 0 || string(body.Workflow) == "null" {
		return ImportCommand{}, nil
	}
	raw, err := workflow.Decode(body.Workflow)
	if err != nil {
		return ImportCommand{}, errors.Wrap(err, errors.CategoryBadInput, "decode import workflow").
			WithTextCode(ErrCodeInvalidMessage)
	}
	return ImportCommand{Workflow: raw}, nil
}
