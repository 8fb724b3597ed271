package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaskirat05/graviton-bridge"
	"github.com/jaskirat05/graviton-bridge/transport/ws"
	"github.com/jaskirat05/graviton-bridge/workflow"
)

type SendCmd struct {
	URL      string        `arg:"" help:"Bridge WebSocket URL, e.g. ws://localhost:8188/bridge."`
	Command  string        `arg:"" enum:"ping,export-workflow,import-workflow" help:"Command type (${enum})."`
	Workflow string        `short:"w" help:"Workflow file for import-workflow, or - for stdin."`
	Source   string        `help:"Source tag placed on the command." default:"graviton-host"`
	Timeout  time.Duration `help:"How long to wait for the reply." default:"40s"`
}

// replies maps each command to the events that complete it.
var replies = map[string][]string{
	bridge.CommandPing:   {bridge.EventPong},
	bridge.CommandExport: {bridge.EventExported, bridge.EventError},
	bridge.CommandImport: {bridge.EventImported, bridge.EventError},
}

func (c *SendCmd) payload() (any, error) {
	if c.Command != bridge.CommandImport {
		return nil, nil
	}
	if c.Workflow == "" {
		return nil, fmt.Errorf("--workflow is required for %s", bridge.CommandImport)
	}
	data, err := readInput(c.Workflow)
	if err != nil {
		return nil, err
	}
	raw, err := workflow.Decode(data)
	if err != nil {
		return nil, err
	}
	return map[string]any{"workflow": raw}, nil
}

func (c *SendCmd) Run(g *Globals) error {
	payload, err := c.payload()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	client, err := ws.Dial(ctx, c.URL, c.Source)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer client.Close()

	if err := client.Send(ctx, c.Command, payload); err != nil {
		return fmt.Errorf("send %s: %w", c.Command, err)
	}
	env, err := client.ReceiveType(ctx, replies[c.Command]...)
	if err != nil {
		return fmt.Errorf("await reply to %s: %w", c.Command, err)
	}

	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return err
	}
	if env.Type == bridge.EventError {
		var e bridge.ErrorPayload
		_ = json.Unmarshal(env.Payload, &e)
		return fmt.Errorf("%s failed: %s", e.Stage, e.Message)
	}
	return nil
}
