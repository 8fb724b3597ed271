package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/jaskirat05/graviton-bridge"
)

// NewBridgeFunc builds the bridge for one accepted connection. The returned
// release func, if any, runs after the session ends.
type NewBridgeFunc func(r *http.Request, poster bridge.Poster) (*bridge.Bridge, func())

type Options struct {
	// OriginPatterns lists the host patterns allowed to connect cross origin.
	OriginPatterns []string
	ReadLimit      int64
	WriteTimeout   time.Duration
	Logger         bridge.Logger
}

// Handler upgrades requests to WebSocket and runs one bridge session per
// connection until either side closes it.
func Handler(newBridge NewBridgeFunc, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = bridge.NewFmtLogger(nil)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept: %v", err)
			return
		}
		defer c.CloseNow()
		if opts.ReadLimit > 0 {
			c.SetReadLimit(opts.ReadLimit)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		b, release := newBridge(r, NewConn(c, opts.WriteTimeout))
		if release != nil {
			defer release()
		}
		log := logger
		if fl, ok := logger.(bridge.FieldsLogger); ok {
			log = fl.WithFields(map[string]any{
				"session_id": b.Session().ID(),
				"remote":     r.RemoteAddr,
			})
		}

		done := make(chan error, 1)
		go func() {
			done <- b.Run(ctx)
		}()
		log.Info("websocket session opened")

		readLoop(ctx, c, b, log)

		cancel()
		<-done
		_ = c.Close(websocket.StatusNormalClosure, "")
		log.Info("websocket session closed")
	}
}

func readLoop(ctx context.Context, c *websocket.Conn, b *bridge.Bridge, log bridge.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			switch {
			case errors.As(err, &ce) && ce.Code == websocket.StatusNormalClosure:
			case errors.As(err, &ce):
				log.Warn("websocket closed: %d %s", ce.Code, ce.Reason)
			case ctx.Err() == nil:
				log.Warn("websocket read: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		env, err := bridge.DecodeEnvelope(data)
		if err != nil {
			log.Debug("dropping frame: %v", err)
			continue
		}
		if err := b.Deliver(ctx, env); err != nil {
			return
		}
	}
}
