package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/worksreg/internal/config"
	"github.com/rpggio/worksreg/internal/sqlite"
)

const (
	httpSessionTimeout = 30 * time.Minute
	shutdownGrace      = 5 * time.Second
)

// serve runs the MCP server on the configured transport until ctx is
// cancelled or the transport ends on its own.
func serve(ctx context.Context, cfg config.Config, server *sdkmcp.Server, db *sqlite.DB, logger *slog.Logger) error {
	if cfg.Transport.Mode == "stdio" {
		logger.Info("serving registry over stdio")
		// Run returns when stdin closes; a cancelled context is a normal stop.
		err := server.Run(ctx, &sdkmcp.StdioTransport{})
		if err != nil && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return serveHTTP(ctx, cfg.Server, server, db, logger)
}

func serveHTTP(ctx context.Context, cfg config.ServerConfig, server *sdkmcp.Server, db *sqlite.DB, logger *slog.Logger) error {
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: httpSessionTimeout},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.Handle("/mcp/", handler)
	mux.Handle("/health", healthHandler(db))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving registry over http", "addr", httpServer.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("draining http sessions", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// healthHandler reports whether the registry database answers.
func healthHandler(db *sqlite.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
}

// ensureParentDir creates the directory holding path. In-memory databases
// have none.
func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
