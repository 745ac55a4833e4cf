package lineview

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/sha1n/ghproxy/internal/domain"
)

// BlobReader is the upstream source of file metadata and blob byte ranges.
type BlobReader interface {
	FetchMetadata(ctx context.Context, h domain.FileHandle) (domain.FileMetadata, error)
	FetchChunk(ctx context.Context, h domain.FileHandle, sha string, start, size int64) (domain.Chunk, error)
}

// cursor is the scan position within a blob.
type cursor struct {
	// offset is the next byte to request. It moves in steps of the chunk size.
	offset int64

	// carry holds the tail of the consumed bytes that has no line terminator yet.
	carry []byte

	// carryStart is the blob offset of carry[0].
	carryStart int64
}

// splitLines appends chunk to carry and splits the result on '\n'. Terminators stay
// attached to their lines. The trailing segment without a terminator is returned as rest.
func splitLines(carry, chunk []byte) (lines [][]byte, rest []byte) {
	buf := make([]byte, 0, len(carry)+len(chunk))
	buf = append(buf, carry...)
	buf = append(buf, chunk...)

	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, buf[:i+1])
		buf = buf[i+1:]
	}

	if len(buf) > 0 {
		rest = bytes.Clone(buf)
	}
	return lines, rest
}

// feed consumes data and emits every line it completes.
func (c *cursor) feed(data []byte, emit func(string)) error {
	lines, rest := splitLines(c.carry, data)
	pos := c.carryStart
	for _, line := range lines {
		if err := validateLine(line, pos); err != nil {
			return err
		}
		emit(string(line))
		pos += int64(len(line))
	}
	c.carry = rest
	c.carryStart = pos
	return nil
}

// flush emits the carry-over as the last line of the file.
func (c *cursor) flush(emit func(string)) error {
	if len(c.carry) == 0 {
		return nil
	}
	if err := validateLine(c.carry, c.carryStart); err != nil {
		return err
	}
	emit(string(c.carry))
	c.carryStart += int64(len(c.carry))
	c.carry = nil
	return nil
}

func validateLine(line []byte, offset int64) error {
	if utf8.Valid(line) {
		return nil
	}
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRune(line[i:])
		if r == utf8.RuneError && size == 1 {
			return &domain.EncodingError{Offset: offset + int64(i)}
		}
		i += size
	}
	return &domain.EncodingError{Offset: offset}
}

// scanner drives chunk fetches for a single file.
type scanner struct {
	reader    BlobReader
	chunkSize int64
}

// run streams the lines of h to emit in file order. When satisfied is non-nil it is
// checked before every chunk fetch and stops the scan once it reports true.
func (s *scanner) run(ctx context.Context, h domain.FileHandle, emit func(string), satisfied func() bool) (fetches int, err error) {
	meta, err := s.reader.FetchMetadata(ctx, h)
	if err != nil {
		return 0, err
	}

	var cur cursor
	for cur.offset < meta.Size {
		if satisfied != nil && satisfied() {
			return fetches, nil
		}
		if err := ctx.Err(); err != nil {
			return fetches, err
		}

		want := min(s.chunkSize, meta.Size-cur.offset)
		chunk, err := s.reader.FetchChunk(ctx, h, meta.SHA, cur.offset, s.chunkSize)
		if err != nil {
			return fetches, err
		}
		fetches++

		if !chunk.Final && int64(len(chunk.Data)) < want {
			return fetches, &domain.UpstreamError{
				StatusCode: http.StatusPartialContent,
				Body:       fmt.Sprintf("short range response at offset %d: got %d of %d bytes", cur.offset, len(chunk.Data), want),
			}
		}
		cur.offset += s.chunkSize

		if err := cur.feed(chunk.Data, emit); err != nil {
			return fetches, err
		}
		if chunk.Final {
			break
		}
	}

	return fetches, cur.flush(emit)
}
