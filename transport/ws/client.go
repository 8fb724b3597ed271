package ws

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/coder/websocket"

	"github.com/jaskirat05/graviton-bridge"
)

// Client is the host side of a bridge connection.
type Client struct {
	ws     *websocket.Conn
	poster *Conn
	source string
}

// Dial connects to a bridge endpoint. Commands are tagged with source, or
// bridge.DefaultHostSource when empty.
func Dial(ctx context.Context, url, source string) (*Client, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = bridge.DefaultHostSource
	}
	return &Client{ws: c, poster: NewConn(c, 0), source: source}, nil
}

// Send posts a command with payload marshaled to JSON.
func (c *Client) Send(ctx context.Context, msgType string, payload any) error {
	env, err := bridge.NewEnvelope(c.source, msgType, payload)
	if err != nil {
		return err
	}
	return c.poster.Post(ctx, env)
}

// Receive reads the next event.
func (c *Client) Receive(ctx context.Context) (bridge.Envelope, error) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return bridge.Envelope{}, err
		}
		if typ != websocket.MessageText {
			continue
		}
		var env bridge.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return bridge.Envelope{}, err
		}
		return env, nil
	}
}

// ReceiveType reads events until one of types arrives, discarding the rest.
func (c *Client) ReceiveType(ctx context.Context, types ...string) (bridge.Envelope, error) {
	for {
		env, err := c.Receive(ctx)
		if err != nil {
			return bridge.Envelope{}, err
		}
		if slices.Contains(types, env.Type) {
			return env, nil
		}
	}
}

func (c *Client) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
