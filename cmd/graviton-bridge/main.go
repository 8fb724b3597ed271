// Command graviton-bridge serves bridge sessions over WebSocket and offers
// offline helpers for workflow documents.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jaskirat05/graviton-bridge"
	"github.com/jaskirat05/graviton-bridge/config"
)

type Globals struct {
	Config string `help:"Path to a YAML config file." type:"path" env:"GRAVITON_CONFIG"`

	out io.Writer
}

func (g *Globals) load() (config.Config, error) {
	return config.Load(g.Config)
}

type CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" help:"Serve bridge sessions backed by the sandbox application."`
	Normalize NormalizeCmd `cmd:"" help:"Classify and normalize a workflow file."`
	Send      SendCmd      `cmd:"" help:"Send one command to a running bridge and print the reply."`
	Version   VersionCmd   `cmd:"" help:"Print the bridge protocol version."`
}

func newParser(cli *CLI, out io.Writer) (*kong.Kong, error) {
	cli.out = out
	return kong.New(cli,
		kong.Name("graviton-bridge"),
		kong.Description("Readiness and command bridge for an embedded graph editor."),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

type VersionCmd struct{}

func (VersionCmd) Run(g *Globals) error {
	_, err := io.WriteString(g.out, bridge.Version+"\n")
	return err
}
