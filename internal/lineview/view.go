package lineview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sha1n/ghproxy/internal/domain"
)

// Lines is a window of a file together with the file's total line count.
type Lines struct {
	Lines []string
	Total int
}

// View answers line-oriented questions about remote files by streaming their blobs
// in fixed-size chunks. It holds no per-file state between calls.
type View struct {
	scanner *scanner
	logger  *slog.Logger
}

// NewView creates a view reading blobs through reader in chunks of chunkSize bytes.
func NewView(reader BlobReader, chunkSize int64, logger *slog.Logger) (*View, error) {
	if reader == nil {
		return nil, fmt.Errorf("blob reader cannot be nil")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &View{
		scanner: &scanner{reader: reader, chunkSize: chunkSize},
		logger:  logger,
	}, nil
}

// TotalLineCount returns the number of lines in the file, including a final line
// without a terminator.
func (v *View) TotalLineCount(ctx context.Context, h domain.FileHandle) (int, error) {
	total := 0
	fetches, err := v.scanner.run(ctx, h, func(string) { total++ }, nil)
	if err != nil {
		return 0, err
	}

	v.logger.Debug("Counted lines", "file", h.String(), "lines", total, "chunks", fetches)
	return total, nil
}

// GetLines returns lines [start, end) of the file and its total line count. A nil end
// means "to the end of the file"; an end past the file is clamped and an end before
// start yields no lines. A start outside the file is a RangeError.
func (v *View) GetLines(ctx context.Context, h domain.FileHandle, start int, end *int) (Lines, error) {
	endValue := -1
	if end != nil {
		endValue = *end
	}
	if start < 0 {
		return Lines{}, &domain.RangeError{Start: start, End: endValue}
	}

	window := make([]string, 0)
	total := 0
	emit := func(line string) {
		if total >= start && (end == nil || total < *end) {
			window = append(window, line)
		}
		total++
	}

	fetches, err := v.scanner.run(ctx, h, emit, nil)
	if err != nil {
		return Lines{}, err
	}
	if start >= total {
		return Lines{}, &domain.RangeError{Start: start, End: endValue, Total: total}
	}

	v.logger.Debug("Read lines", "file", h.String(), "start", start, "end", endValue, "returned", len(window), "total", total, "chunks", fetches)
	return Lines{Lines: window, Total: total}, nil
}

// Head returns the first n lines of the file, fetching no more chunks than needed.
func (v *View) Head(ctx context.Context, h domain.FileHandle, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n must not be negative, got %d", domain.ErrInvalidArgument, n)
	}

	lines := make([]string, 0, min(n, 1024))
	emit := func(line string) { lines = append(lines, line) }
	satisfied := func() bool { return len(lines) >= n }

	fetches, err := v.scanner.run(ctx, h, emit, satisfied)
	if err != nil {
		return nil, err
	}
	if len(lines) > n {
		lines = lines[:n]
	}

	v.logger.Debug("Read head", "file", h.String(), "n", n, "returned", len(lines), "chunks", fetches)
	return lines, nil
}

// Content returns the full text of the file, reassembled from its lines.
func (v *View) Content(ctx context.Context, h domain.FileHandle) (string, error) {
	var sb strings.Builder
	fetches, err := v.scanner.run(ctx, h, func(line string) { sb.WriteString(line) }, nil)
	if err != nil {
		return "", err
	}

	v.logger.Debug("Read content", "file", h.String(), "bytes", sb.Len(), "chunks", fetches)
	return sb.String(), nil
}

// allLines returns every line of the file.
func (v *View) allLines(ctx context.Context, h domain.FileHandle) ([]string, error) {
	var lines []string
	if _, err := v.scanner.run(ctx, h, func(line string) { lines = append(lines, line) }, nil); err != nil {
		return nil, err
	}
	return lines, nil
}
