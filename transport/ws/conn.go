// Package ws carries bridge envelopes over WebSocket connections, one bridge
// session per connection.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/jaskirat05/graviton-bridge"
)

const DefaultWriteTimeout = 5 * time.Second

// Conn posts bridge events as text frames. Writes are serialized.
type Conn struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

var _ bridge.Poster = (*Conn)(nil)

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

func (c *Conn) Post(ctx context.Context, env bridge.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}
