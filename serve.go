package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/stevemurr/bookstore/config"
	"github.com/stevemurr/bookstore/handler"
	"github.com/stevemurr/bookstore/store"
)

// newServer builds the handler chain for s.
//
// The returned cleanup releases middleware resources.
func newServer(s store.Store, cfg config.Config) (http.Handler, func()) {
	var h http.Handler = handler.New(s)
	cleanup := func() {}
	if cfg.RateLimit > 0 {
		l := handler.NewLimiter(cfg.RateLimit, cfg.RateBurst)
		h = handler.RateLimit(h, l)
		cleanup = l.Close
	}
	h = handler.CORS(h, cfg.Origins())
	return handler.LogRequests(h), cleanup
}

func serve(ctx context.Context, cfg config.Config) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	// The server still starts; requests fail until the file is usable.
	if err := s.Init(); err != nil {
		slog.ErrorContext(ctx, "Failed to initialize data file", "err", err)
	}

	path := store.Path(cfg.Backend, cfg.DataDir, cfg.FileName)
	if cfg.Watch && path != "" {
		if err := watchDataFile(ctx, path, logDataFileChange(ctx, path)); err != nil {
			slog.WarnContext(ctx, "Cannot watch data file", "path", path, "err", err)
		}
	}

	h, cleanup := newServer(s, cfg)
	defer cleanup()

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "backend", cfg.Backend, "path", path)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.Info("Server stopped")
	}
	return nil
}
