package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ghproxy/internal/auth"
	"github.com/sha1n/ghproxy/internal/config"
	"github.com/sha1n/ghproxy/internal/httpapi"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// NewHTTPServer creates the HTTP server: the REST API, the MCP SSE endpoint and authentication.
func NewHTTPServer(svcs *Services, settings *config.Settings, logger *slog.Logger) (*http.Server, error) {
	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	cfg := httpapi.Config{
		MaxFileSize: settings.GitHub.MaxFileSize,
		Logger:      logger.With("component", "http"),
	}
	if svcs.Files != nil {
		cfg.Files = svcs.Files
	}
	if svcs.GitHub != nil {
		cfg.GitHub = svcs.GitHub
	}
	if svcs.Logs != nil {
		cfg.Logs = svcs.Logs
	}
	router := httpapi.NewRouter(cfg)

	if svcs.MCP != nil {
		sseHandler := mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
			return svcs.MCP
		}, nil)
		router.Handle("/sse", sseHandler)
	}

	return &http.Server{
		Addr:              net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port)),
		Handler:           authMiddleware(router),
		ReadHeaderTimeout: readHeaderTimeout,
	}, nil
}

// ServeHTTP listens on srv.Addr and serves until ctx is done.
func ServeHTTP(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln, logger)
}

// Serve serves srv on ln until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server listening (HTTP)", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
