package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ghproxy/internal/domain"
	"github.com/sha1n/ghproxy/internal/github"
	"github.com/sha1n/ghproxy/internal/lineview"
)

// FileService answers line-oriented questions about remote files.
type FileService interface {
	TotalLineCount(ctx context.Context, h domain.FileHandle) (int, error)
	GetLines(ctx context.Context, h domain.FileHandle, start int, end *int) (lineview.Lines, error)
	Search(ctx context.Context, h domain.FileHandle, q string, limit int) (lineview.SearchResult, error)
}

// RepoSource forwards read-only GitHub API calls.
type RepoSource interface {
	Forward(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
}

// FileArgument identifies a file in a repository.
type FileArgument struct {
	Owner string `json:"owner" jsonschema:"Repository owner (user or organization)"`
	Repo  string `json:"repo" jsonschema:"Repository name"`
	Path  string `json:"path" jsonschema:"File path relative to the repository root"`
	Ref   string `json:"ref,omitempty" jsonschema:"Branch, tag or commit SHA; defaults to the default branch"`
}

// LinesArgument defines get_file_lines parameters.
type LinesArgument struct {
	Owner     string `json:"owner" jsonschema:"Repository owner (user or organization)"`
	Repo      string `json:"repo" jsonschema:"Repository name"`
	Path      string `json:"path" jsonschema:"File path relative to the repository root"`
	Ref       string `json:"ref,omitempty" jsonschema:"Branch, tag or commit SHA; defaults to the default branch"`
	StartLine int  `json:"start_line,omitempty" jsonschema:"Zero-based first line to return (default 0)"`
	EndLine   *int `json:"end_line,omitempty" jsonschema:"Zero-based line to stop before; omit to read to the end"`
}

// SearchArgument defines search_file_lines parameters.
type SearchArgument struct {
	Owner string `json:"owner" jsonschema:"Repository owner (user or organization)"`
	Repo  string `json:"repo" jsonschema:"Repository name"`
	Path  string `json:"path" jsonschema:"File path relative to the repository root"`
	Ref   string `json:"ref,omitempty" jsonschema:"Branch, tag or commit SHA; defaults to the default branch"`
	Query string `json:"query" jsonschema:"Words that must all appear on a matching line"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of matches (default 20)"`
}

// RepoArgument identifies a repository.
type RepoArgument struct {
	Owner string `json:"owner" jsonschema:"Repository owner (user or organization)"`
	Repo  string `json:"repo" jsonschema:"Repository name"`
}

// FileToolsHandler serves the file line tools.
type FileToolsHandler struct {
	files FileService
}

// NewFileToolsHandler creates a handler backed by files.
func NewFileToolsHandler(files FileService) *FileToolsHandler {
	return &FileToolsHandler{files: files}
}

// HandleGetLines returns a numbered line range of a file.
func (h *FileToolsHandler) HandleGetLines(ctx context.Context, _ *mcp.CallToolRequest, args LinesArgument) (*mcp.CallToolResult, any, error) {
	fh, err := args.handle()
	if err != nil {
		return errorResult(err), nil, nil
	}

	lines, err := h.files.GetLines(ctx, fh, args.StartLine, args.EndLine)
	if err != nil {
		return errorResult(err), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**File**: `%s`\n", fh.String())
	if len(lines.Lines) == 0 {
		fmt.Fprintf(&sb, "**Lines**: none selected (file has %d lines)\n", lines.Total)
		return textResult(sb.String()), nil, nil
	}

	last := args.StartLine + len(lines.Lines) - 1
	fmt.Fprintf(&sb, "**Lines**: %d-%d of %d\n\n```\n", args.StartLine, last, lines.Total)
	for i, line := range lines.Lines {
		fmt.Fprintf(&sb, "%6d  %s\n", args.StartLine+i, strings.TrimRight(line, "\r\n"))
	}
	sb.WriteString("```")

	return textResult(sb.String()), nil, nil
}

// HandleCountLines returns the number of lines of a file.
func (h *FileToolsHandler) HandleCountLines(ctx context.Context, _ *mcp.CallToolRequest, args FileArgument) (*mcp.CallToolResult, any, error) {
	fh, err := args.handle()
	if err != nil {
		return errorResult(err), nil, nil
	}

	total, err := h.files.TotalLineCount(ctx, fh)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(fmt.Sprintf("`%s` has %d lines", fh.String(), total)), nil, nil
}

// HandleSearch returns the lines of a file matching a query.
func (h *FileToolsHandler) HandleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	fh, err := args.handle()
	if err != nil {
		return errorResult(err), nil, nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult(errors.New("query cannot be empty")), nil, nil
	}

	res, err := h.files.Search(ctx, fh, args.Query, args.Limit)
	if err != nil {
		return errorResult(err), nil, nil
	}

	if len(res.Matches) == 0 {
		return textResult(fmt.Sprintf("No lines in `%s` match: %s", fh.String(), args.Query)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching lines in `%s` (%d lines total)", res.TotalHits, fh.String(), res.Total)
	if uint64(len(res.Matches)) < res.TotalHits {
		fmt.Fprintf(&sb, ", showing %d", len(res.Matches))
	}
	sb.WriteString("\n\n")
	for _, m := range res.Matches {
		fmt.Fprintf(&sb, "%6d  %s\n", m.Line, strings.TrimRight(m.Text, "\r\n"))
	}

	return textResult(sb.String()), nil, nil
}

// RepoInfoHandler serves the get_repo_info tool.
type RepoInfoHandler struct {
	github RepoSource
}

// NewRepoInfoHandler creates a handler backed by source.
func NewRepoInfoHandler(source RepoSource) *RepoInfoHandler {
	return &RepoInfoHandler{github: source}
}

// Handle returns the repository metadata JSON.
func (h *RepoInfoHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, args RepoArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Owner) == "" || strings.TrimSpace(args.Repo) == "" {
		return errorResult(errors.New("owner and repo are required")), nil, nil
	}

	body, err := h.github.Forward(ctx, github.RepoPath(args.Owner, args.Repo), nil)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(string(body)), nil, nil
}

// RegisterFileTools registers get_file_lines, count_file_lines and search_file_lines.
func RegisterFileTools(server *mcp.Server, files FileService) {
	handler := NewFileToolsHandler(files)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_file_lines",
		Description: "Read a range of lines from a file in a GitHub repository without downloading it whole",
	}, handler.HandleGetLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_file_lines",
		Description: "Count the lines of a file in a GitHub repository",
	}, handler.HandleCountLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_file_lines",
		Description: "Find the lines of a file in a GitHub repository that contain all query words",
	}, handler.HandleSearch)
}

// RegisterRepoInfoTool registers get_repo_info.
func RegisterRepoInfoTool(server *mcp.Server, source RepoSource) {
	handler := NewRepoInfoHandler(source)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_repo_info",
		Description: "Get the metadata of a GitHub repository",
	}, handler.Handle)
}

func (a FileArgument) handle() (domain.FileHandle, error) {
	return fileHandle(a.Owner, a.Repo, a.Path, a.Ref)
}

func (a LinesArgument) handle() (domain.FileHandle, error) {
	return fileHandle(a.Owner, a.Repo, a.Path, a.Ref)
}

func (a SearchArgument) handle() (domain.FileHandle, error) {
	return fileHandle(a.Owner, a.Repo, a.Path, a.Ref)
}

func fileHandle(owner, repo, path, ref string) (domain.FileHandle, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return domain.FileHandle{}, errors.New("owner and repo are required")
	}
	if strings.TrimSpace(path) == "" {
		return domain.FileHandle{}, errors.New("path cannot be empty")
	}
	return domain.FileHandle{Owner: owner, Repo: repo, Path: strings.Trim(path, "/"), Ref: ref}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errorResult renders err as a tool error the model can act on.
func errorResult(err error) *mcp.CallToolResult {
	var rangeErr *domain.RangeError
	var encErr *domain.EncodingError

	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		msg = "Not found: " + msg
	case errors.As(err, &rangeErr):
		msg = "Invalid line range: " + msg
	case errors.As(err, &encErr):
		msg = "Cannot display file: " + msg
	default:
		if ue, ok := domain.IsUpstream(err); ok {
			msg = fmt.Sprintf("GitHub request failed with status %d: %s", ue.StatusCode, ue.Body)
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
