package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the repository, path or blob does not exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrFileTooLarge indicates the file exceeds the single-request size limit.
	ErrFileTooLarge = errors.New("file too large to retrieve in a single request")

	// ErrInvalidArgument indicates a malformed request parameter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UpstreamError carries a non-2xx response from the GitHub API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// RangeError reports a line range that is invalid for the actual file length.
// End is -1 when the caller did not supply an end line.
type RangeError struct {
	Start int
	End   int
	Total int
}

func (e *RangeError) Error() string {
	if e.Start < 0 {
		return fmt.Sprintf("start_line %d must not be negative", e.Start)
	}
	return fmt.Sprintf("start_line %d is out of range: file has %d lines", e.Start, e.Total)
}

// EncodingError reports blob bytes that cannot be decoded as UTF-8 text.
type EncodingError struct {
	// Offset is the byte offset in the blob where the undecodable data starts.
	Offset int64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("content is not valid UTF-8 text (near byte %d)", e.Offset)
}

// IsUpstream reports whether err wraps an UpstreamError and returns it.
func IsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
