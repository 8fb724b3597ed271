package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jaskirat05/graviton-bridge/workflow"
)

type NormalizeCmd struct {
	Path    string `arg:"" help:"Workflow JSON file, or - for stdin."`
	Compact bool   `help:"Print compact JSON."`
}

type normalizeReport struct {
	Form              string            `json:"form"`
	ClassifierVersion int               `json:"classifierVersion"`
	Nodes             []string          `json:"nodes,omitempty"`
	Workflow          workflow.Document `json:"workflow"`
}

func (c *NormalizeCmd) Run(g *Globals) error {
	data, err := readInput(c.Path)
	if err != nil {
		return err
	}
	doc, err := workflow.Parse(data)
	if err != nil {
		return err
	}

	report := normalizeReport{
		Form:              doc.Form.String(),
		ClassifierVersion: workflow.ClassifierVersion,
		Nodes:             doc.NodeIDs(),
		Workflow:          doc,
	}
	enc := json.NewEncoder(g.out)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return data, nil
}
