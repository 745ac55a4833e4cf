package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gh "github.com/google/go-github/v74/github"
	"github.com/sha1n/ghproxy/internal/domain"
	"github.com/sha1n/ghproxy/internal/lineview"
)

// FileService answers line-oriented questions about remote files.
type FileService interface {
	TotalLineCount(ctx context.Context, h domain.FileHandle) (int, error)
	GetLines(ctx context.Context, h domain.FileHandle, start int, end *int) (lineview.Lines, error)
	Head(ctx context.Context, h domain.FileHandle, n int) ([]string, error)
	Content(ctx context.Context, h domain.FileHandle) (string, error)
	Search(ctx context.Context, h domain.FileHandle, q string, limit int) (lineview.SearchResult, error)
}

// Upstream is the part of the GitHub client used by the pass-through routes.
type Upstream interface {
	Forward(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
	GetTree(ctx context.Context, owner, repo, ref string) (*gh.Tree, error)
	GetFile(ctx context.Context, h domain.FileHandle, maxSize int64) (*gh.RepositoryContent, error)
}

// LogPusher commits and pushes the application log.
type LogPusher interface {
	Push(ctx context.Context) (string, error)
}

// Config holds the dependencies of the REST API.
type Config struct {
	Files  FileService
	GitHub Upstream

	// Logs is nil when log pushing is disabled.
	Logs LogPusher

	// MaxFileSize limits the whole-file route. Zero means no limit.
	MaxFileSize int64

	Logger *slog.Logger
}

type handler struct {
	files       FileService
	github      Upstream
	logs        LogPusher
	maxFileSize int64
	logger      *slog.Logger
}

// NewRouter creates the REST API router. Callers may register additional routes
// on the returned mux, such as the MCP endpoint.
func NewRouter(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		files:       cfg.Files,
		github:      cfg.GitHub,
		logs:        cfg.Logs,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(compress)

		r.Get("/", h.welcome)
		r.Get("/logs/push", h.pushLogs)

		r.Route("/repo/{owner}/{repo}", func(r chi.Router) {
			r.Get("/", h.forwardTo(""))
			r.Get("/contents", h.contents)
			r.Get("/contents/*", h.contents)
			r.Get("/commits", h.forwardTo("commits"))
			r.Get("/pulls", h.forwardTo("pulls"))
			r.Get("/issues", h.forwardTo("issues"))
			r.Get("/branches", h.forwardTo("branches"))
			r.Get("/traffic/views", h.forwardTo("traffic/views"))
			r.Get("/traffic/clones", h.forwardTo("traffic/clones"))
			r.Get("/tree", h.tree)
			r.Get("/file/*", h.file)
		})

		r.Get("/traffic/repo/{owner}/{repo}/views", h.forwardTo("traffic/views"))
		r.Get("/traffic/repo/{owner}/{repo}/clones", h.forwardTo("traffic/clones"))
	})

	return r
}
