package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sha1n/ghproxy/internal/domain"
	"github.com/sha1n/ghproxy/internal/github"
	"github.com/sha1n/ghproxy/internal/lineview"
)

const (
	welcomeMessage  = "Welcome to the GitHub proxy API"
	defaultHeadSize = 10
)

// File route operations, selected by the last segment of the wildcard path.
const (
	fileOpLines    = "lines"
	fileOpMaxLines = "max-lines"
	fileOpContent  = "content"
	fileOpHead     = "head"
	fileOpSearch   = "search"
)

var fileOps = []string{fileOpLines, fileOpMaxLines, fileOpContent, fileOpHead, fileOpSearch}

type messageResponse struct {
	Message string `json:"message"`
}

type linesResponse struct {
	Lines    []string `json:"lines"`
	MaxLines int      `json:"max_lines"`
}

type maxLinesResponse struct {
	MaxLines int `json:"max_lines"`
}

type headResponse struct {
	Lines []string `json:"lines"`
}

type searchMatch struct {
	Line  int     `json:"line"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Matches   []searchMatch `json:"matches"`
	TotalHits uint64        `json:"total_hits"`
	MaxLines  int           `json:"max_lines"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: welcomeMessage})
}

func (h *handler) pushLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		writeDetail(w, http.StatusServiceUnavailable, "log push is disabled")
		return
	}

	msg, err := h.logs.Push(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// forwardTo returns a handler that forwards the request, query string included,
// to repos/{owner}/{repo}/{suffix}.
func (h *handler) forwardTo(suffix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := github.RepoPath(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), suffix)
		h.forward(w, r, endpoint, r.URL.Query())
	}
}

func (h *handler) contents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := wildcardPath(r)
	if path == "" {
		path = query.Get("path")
	}
	query.Del("path")

	endpoint := github.RepoPath(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), "contents", path)
	h.forward(w, r, endpoint, query)
}

func (h *handler) forward(w http.ResponseWriter, r *http.Request, endpoint string, query url.Values) {
	body, err := h.github.Forward(r.Context(), endpoint, query)
	if err != nil {
		h.writePassthroughError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *handler) tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.github.GetTree(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), r.URL.Query().Get("ref"))
	if err != nil {
		h.writePassthroughError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *handler) file(w http.ResponseWriter, r *http.Request) {
	path, op := splitFileRoute(wildcardPath(r))
	if path == "" {
		writeDetail(w, http.StatusBadRequest, "file path is required")
		return
	}

	fh := domain.FileHandle{
		Owner: chi.URLParam(r, "owner"),
		Repo:  chi.URLParam(r, "repo"),
		Path:  path,
		Ref:   r.URL.Query().Get("ref"),
	}

	switch op {
	case fileOpLines:
		h.fileLines(w, r, fh)
	case fileOpMaxLines:
		h.fileMaxLines(w, r, fh)
	case fileOpContent:
		h.fileContent(w, r, fh)
	case fileOpHead:
		h.fileHead(w, r, fh)
	case fileOpSearch:
		h.fileSearch(w, r, fh)
	default:
		h.wholeFile(w, r, fh)
	}
}

func (h *handler) wholeFile(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	content, err := h.github.GetFile(r.Context(), fh, h.maxFileSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *handler) fileLines(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	start, _, err := queryInt(r, "start_line")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	endValue, hasEnd, err := queryInt(r, "end_line")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var end *int
	if hasEnd {
		end = &endValue
	}

	lines, err := h.files.GetLines(r.Context(), fh, start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linesResponse{Lines: lines.Lines, MaxLines: lines.Total})
}

func (h *handler) fileMaxLines(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	total, err := h.files.TotalLineCount(r.Context(), fh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maxLinesResponse{MaxLines: total})
}

func (h *handler) fileContent(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	text, err := h.files.Content(r.Context(), fh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (h *handler) fileHead(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	n, ok, err := queryInt(r, "n")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		n = defaultHeadSize
	}

	lines, err := h.files.Head(r.Context(), fh, n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, headResponse{Lines: lines})
}

func (h *handler) fileSearch(w http.ResponseWriter, r *http.Request, fh domain.FileHandle) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.files.Search(r.Context(), fh, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(res))
}

func toSearchResponse(res lineview.SearchResult) searchResponse {
	matches := make([]searchMatch, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, searchMatch{Line: m.Line, Text: m.Text, Score: m.Score})
	}
	return searchResponse{Matches: matches, TotalHits: res.TotalHits, MaxLines: res.Total}
}

// splitFileRoute separates the file path from a trailing operation segment.
func splitFileRoute(rest string) (path, op string) {
	rest = strings.Trim(rest, "/")
	for _, candidate := range fileOps {
		if p, ok := strings.CutSuffix(rest, "/"+candidate); ok {
			return p, candidate
		}
	}
	return rest, ""
}

// wildcardPath returns the decoded value of the route's trailing wildcard.
func wildcardPath(r *http.Request) string {
	value := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return value
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (value int, present bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidArgument, name, raw)
	}
	return value, true, nil
}
