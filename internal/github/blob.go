package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	gh "github.com/google/go-github/v74/github"
	"github.com/sha1n/ghproxy/internal/domain"
)

const mediaTypeRaw = "application/vnd.github.raw+json"

// FetchMetadata returns the size and blob SHA of the file at h.
// Directories and symlinks are reported as ErrNotFound.
func (c *Client) FetchMetadata(ctx context.Context, h domain.FileHandle) (domain.FileMetadata, error) {
	fc, err := c.getFileContents(ctx, h)
	if err != nil {
		return domain.FileMetadata{}, err
	}

	meta := domain.FileMetadata{Size: int64(fc.GetSize()), SHA: fc.GetSHA()}
	c.logger.Debug("Fetched file metadata", "file", h.String(), "size", meta.Size, "sha", meta.SHA)
	return meta, nil
}

// FetchChunk requests bytes [start, start+size) of blob sha in h's repository.
// When the upstream ignores the range and returns the whole blob, the data is sliced
// from start and the chunk is marked final.
func (c *Client) FetchChunk(ctx context.Context, h domain.FileHandle, sha string, start, size int64) (domain.Chunk, error) {
	if start < 0 || size <= 0 {
		return domain.Chunk{}, fmt.Errorf("invalid chunk range: start=%d size=%d", start, size)
	}

	req, err := c.api.NewRequest(http.MethodGet, RepoPath(h.Owner, h.Repo, "git/blobs", sha), nil)
	if err != nil {
		return domain.Chunk{}, err
	}
	req.Header.Set("Accept", mediaTypeRaw)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+size-1))

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("failed to fetch blob %s: %w", sha, err)
	}
	defer drainAndClose(resp.Body)

	var chunk domain.Chunk
	switch resp.StatusCode {
	case http.StatusPartialContent:
		data, err := io.ReadAll(io.LimitReader(resp.Body, size))
		if err != nil {
			return domain.Chunk{}, fmt.Errorf("failed to read blob %s: %w", sha, err)
		}
		chunk = domain.Chunk{Data: data}
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return domain.Chunk{}, fmt.Errorf("failed to read blob %s: %w", sha, err)
		}
		if start < int64(len(data)) {
			data = data[start:]
		} else {
			data = nil
		}
		chunk = domain.Chunk{Data: data, Final: true}
	case http.StatusRequestedRangeNotSatisfiable:
		chunk = domain.Chunk{Final: true}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return domain.Chunk{}, statusError(resp.StatusCode, string(body))
	}

	if i := bytes.IndexByte(chunk.Data, 0); i >= 0 {
		return domain.Chunk{}, &domain.EncodingError{Offset: start + int64(i)}
	}

	c.logger.Debug("Fetched blob chunk", "file", h.String(), "start", start, "bytes", len(chunk.Data), "final", chunk.Final)
	return chunk, nil
}

func (c *Client) getFileContents(ctx context.Context, h domain.FileHandle) (*gh.RepositoryContent, error) {
	var opts *gh.RepositoryContentGetOptions
	if h.Ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: h.Ref}
	}

	fc, dir, _, err := c.api.Repositories.GetContents(ctx, h.Owner, h.Repo, h.Path, opts)
	if err != nil {
		return nil, classifyError(err)
	}
	if fc == nil || dir != nil || fc.GetType() != "file" {
		return nil, fmt.Errorf("%w: %s is not a file", domain.ErrNotFound, h.String())
	}
	return fc, nil
}
