package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jaskirat05/graviton-bridge"
	"github.com/jaskirat05/graviton-bridge/config"
	"github.com/jaskirat05/graviton-bridge/metrics"
	"github.com/jaskirat05/graviton-bridge/sandbox"
	"github.com/jaskirat05/graviton-bridge/transport/ws"
)

type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr." placeholder:"HOST:PORT"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	logger := newLogger(cfg.Log, os.Stderr)
	rec := metrics.New()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, logger, rec),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s (websocket %s)", cfg.Server.Addr, cfg.Server.WebSocketPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg config.Config, logger bridge.Logger, rec *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": bridge.Version,
		})
	})
	r.Handle("/metrics", rec.Handler())
	r.Get(cfg.Server.WebSocketPath, ws.Handler(sessionFactory(cfg, logger, rec), ws.Options{
		OriginPatterns: cfg.Server.AllowedOrigins,
		ReadLimit:      cfg.Server.ReadLimit,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Logger:         logger,
	}))
	return r
}

// sessionFactory gives every connection its own sandbox application and
// bridge.
func sessionFactory(cfg config.Config, logger bridge.Logger, rec *metrics.Recorder) ws.NewBridgeFunc {
	return func(_ *http.Request, poster bridge.Poster) (*bridge.Bridge, func()) {
		app := sandbox.New(
			sandbox.WithGraphDelay(cfg.Sandbox.GraphDelay),
			sandbox.WithCanvasDelay(cfg.Sandbox.CanvasDelay),
			sandbox.WithUIDelay(cfg.Sandbox.UIDelay),
			sandbox.WithRaceFailures(cfg.Sandbox.RaceFailures),
		)
		opts := append(cfg.Bridge.Options(),
			bridge.WithLogger(logger),
			bridge.WithMetrics(rec),
		)
		rec.SessionStarted()
		return bridge.New(app, poster, opts...), rec.SessionEnded
	}
}
