package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	gh "github.com/google/go-github/v74/github"
	"github.com/sha1n/ghproxy/internal/domain"
)

// Forward performs a GET on endpoint (relative to the API base URL) and returns the
// response body untouched. Any non-2xx status is returned as an UpstreamError carrying
// the raw body.
func (c *Client) Forward(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := c.api.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid JSON for %s", endpoint)
	}

	c.logger.Debug("Forwarded GitHub request", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// GetFile returns the contents object of h with its content decoded to text.
// Files larger than maxSize are rejected with ErrFileTooLarge.
func (c *Client) GetFile(ctx context.Context, h domain.FileHandle, maxSize int64) (*gh.RepositoryContent, error) {
	fc, err := c.getFileContents(ctx, h)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(fc.GetSize()) > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrFileTooLarge, h.String(), fc.GetSize(), maxSize)
	}

	text, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", h.String(), err)
	}
	if !utf8.ValidString(text) {
		return nil, &domain.EncodingError{Offset: int64(invalidUTF8Offset(text))}
	}

	fc.Content = gh.Ptr(text)
	fc.Encoding = gh.Ptr("utf-8")
	return fc, nil
}

// GetTree returns the recursive git tree of ref, or of HEAD when ref is empty.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string) (*gh.Tree, error) {
	if ref == "" {
		ref = "HEAD"
	}
	tree, _, err := c.api.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, classifyError(err)
	}
	return tree, nil
}

func invalidUTF8Offset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(s)
}
