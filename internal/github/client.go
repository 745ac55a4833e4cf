package github

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v74/github"
	"github.com/sha1n/ghproxy/internal/config"
	"github.com/sha1n/ghproxy/internal/domain"
	"golang.org/x/oauth2"
)

// Client talks to the GitHub REST API on behalf of the proxy.
type Client struct {
	api    *gh.Client
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client from settings. The token, when set, is sent as a bearer token
// on every request; transient failures are retried up to MaxRetries times.
func NewClient(settings *config.GitHubSettings, logger *slog.Logger) (*Client, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var transport http.RoundTripper = newRetryTransport(http.DefaultTransport, settings.MaxRetries, logger)
	if settings.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings.Token}),
			Base:   transport,
		}
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   settings.Timeout,
	}
	return NewClientWithHTTP(settings.APIURL, httpClient, logger)
}

// NewClientWithHTTP creates a client against apiURL using a caller-supplied HTTP client.
func NewClientWithHTTP(apiURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}

	api := gh.NewClient(httpClient)
	api.BaseURL = base

	return &Client{
		api:    api,
		http:   httpClient,
		logger: logger,
	}, nil
}

// RepoPath builds an escaped API path under repos/{owner}/{repo}.
// Each element of parts may itself contain slashes; its segments are escaped individually.
func RepoPath(owner, repo string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString("repos/")
	sb.WriteString(url.PathEscape(owner))
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(repo))
	for _, part := range parts {
		for _, seg := range strings.Split(strings.Trim(part, "/"), "/") {
			if seg == "" {
				continue
			}
			sb.WriteString("/")
			sb.WriteString(url.PathEscape(seg))
		}
	}
	return sb.String()
}

// classifyError maps go-github errors onto the domain error taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return statusError(errResp.Response.StatusCode, errResp.Message)
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &domain.UpstreamError{StatusCode: rateErr.Response.StatusCode, Body: rateErr.Message}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &domain.UpstreamError{StatusCode: abuseErr.Response.StatusCode, Body: abuseErr.Message}
	}

	return err
}

// statusError converts an upstream status into ErrNotFound or an UpstreamError.
func statusError(status int, body string) error {
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, strings.TrimSpace(body))
	}
	return &domain.UpstreamError{StatusCode: status, Body: strings.TrimSpace(body)}
}
