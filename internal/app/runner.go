package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ghproxy/internal/config"
	"github.com/sha1n/ghproxy/internal/github"
	"github.com/sha1n/ghproxy/internal/lineview"
	"github.com/sha1n/ghproxy/internal/logpush"
	mcputil "github.com/sha1n/ghproxy/internal/mcp"
	"github.com/spf13/pflag"
)

const serverName = "ghproxy"

// Services holds the wired application components.
type Services struct {
	GitHub *github.Client
	Files  *lineview.View

	// Logs is nil when log pushing is disabled.
	Logs *logpush.Pusher

	MCP *mcp.Server
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	CreateServices    func(settings *config.Settings, logger *slog.Logger, version string) (*Services, error)
	StartHTTPServer   func(context.Context, *http.Server, *slog.Logger) error
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:    config.LoadSettingsWithFlags,
		ValidSettings:   config.ValidateSettings,
		CreateServices:  CreateServices,
		StartHTTPServer: ServeHTTP,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs always go to stderr; stdout belongs to the stdio transport.
	var out io.Writer = os.Stderr
	if params.LogOutput != nil {
		out = params.LogOutput
	}
	writers := []io.Writer{out}
	if settings.Logs.Enabled {
		logFile, err := openLogFile(settings.Logs)
		if err != nil {
			return err
		}
		defer func() { _ = logFile.Close() }()
		writers = append(writers, logFile)
	}

	logger := config.NewLogger(settings.LogLevel, writers...)
	slog.SetDefault(logger)

	logger.Info("Starting GitHub proxy", "version", version)
	config.LogWithLogger(settings, logger)

	svcs, err := params.CreateServices(settings, logger, version)
	if err != nil {
		return err
	}

	if settings.Transport == config.TransportStdio {
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return svcs.MCP.Run(ctx, transport)
	}

	srv, err := NewHTTPServer(svcs, settings, logger)
	if err != nil {
		return err
	}
	return params.StartHTTPServer(ctx, srv, logger)
}

// CreateServices wires the GitHub client, the line view, the log pusher and the MCP server.
func CreateServices(settings *config.Settings, logger *slog.Logger, version string) (*Services, error) {
	client, err := github.NewClient(&settings.GitHub, logger.With("component", "github"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	view, err := lineview.NewView(client, settings.GitHub.ChunkSize, logger.With("component", "lineview"))
	if err != nil {
		return nil, fmt.Errorf("failed to create line view: %w", err)
	}

	var pusher *logpush.Pusher
	if settings.Logs.Enabled {
		pusher = logpush.NewPusher(settings.Logs, &logpush.DefaultExecutor{}, logger.With("component", "logpush"))
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    serverName,
		Version: version,
		Files:   view,
		GitHub:  client,
	})

	return &Services{
		GitHub: client,
		Files:  view,
		Logs:   pusher,
		MCP:    server,
	}, nil
}

func openLogFile(settings config.LogsSettings) (*os.File, error) {
	path := filepath.Join(settings.RepoDir, settings.File)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
