package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sha1n/ghproxy/internal/domain"
	"github.com/sha1n/ghproxy/internal/logpush"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail any `json:"detail"`
}

// upstreamDetail describes a failed upstream call on a file route.
type upstreamDetail struct {
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status"`
	UpstreamBody   any    `json:"upstream_body,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// rawOrString returns body as raw JSON when it is valid JSON and as a string otherwise.
func rawOrString(body string) any {
	if body != "" && json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	var rangeErr *domain.RangeError
	var encErr *domain.EncodingError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.As(err, &rangeErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &encErr):
		return http.StatusInternalServerError
	case errors.Is(err, logpush.ErrLockTimeout):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err for a route that computes its response from upstream data.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ue, ok := domain.IsUpstream(err); ok {
		h.logger.Warn("Upstream request failed", "path", r.URL.Path, "upstream_status", ue.StatusCode)
		writeDetail(w, http.StatusInternalServerError, upstreamDetail{
			Message:        "upstream request failed",
			UpstreamStatus: ue.StatusCode,
			UpstreamBody:   rawOrString(ue.Body),
		})
		return
	}

	status := statusFor(err)
	h.log(r, status, err)
	writeDetail(w, status, err.Error())
}

// writePassthroughError writes err for a route that forwards a single upstream call.
// Upstream failures keep their status and body.
func (h *handler) writePassthroughError(w http.ResponseWriter, r *http.Request, err error) {
	if ue, ok := domain.IsUpstream(err); ok {
		h.logger.Debug("Mirroring upstream error", "path", r.URL.Path, "upstream_status", ue.StatusCode)
		writeDetail(w, ue.StatusCode, rawOrString(ue.Body))
		return
	}
	h.writeError(w, r, err)
}

func (h *handler) log(r *http.Request, status int, err error) {
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "Request failed", "path", r.URL.Path, "status", status, "error", err)
}
