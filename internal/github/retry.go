package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 10 * time.Second
)

// retryTransport retries idempotent requests on transient network errors and
// on rate-limit or gateway statuses. The last attempt's response is returned as is.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

func newRetryTransport(base http.RoundTripper, maxRetries int, logger *slog.Logger) *retryTransport {
	return &retryTransport{
		base:       base,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialInterval
			b.MaxInterval = retryMaxInterval
			return b
		},
		logger: logger,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.maxRetries <= 0 || !isIdempotent(req.Method) || req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	maxTries := uint(t.maxRetries) + 1
	var attempt uint

	operation := func() (*http.Response, error) {
		attempt++
		attemptReq := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			attemptReq.Body = body
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			if !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			t.logger.Debug("Retrying GitHub request", "url", req.URL.Redacted(), "attempt", attempt, "error", err)
			return nil, err
		}

		if attempt < maxTries && isRetryableStatus(resp.StatusCode) {
			drainAndClose(resp.Body)
			t.logger.Debug("Retrying GitHub request", "url", req.URL.Redacted(), "attempt", attempt, "status", resp.StatusCode)
			return nil, &retryableStatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	}

	return backoff.Retry(req.Context(), operation,
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(maxTries),
	)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

type retryableStatusError struct {
	StatusCode int
}

func (e *retryableStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
