package testkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sha1n/ghproxy/internal/app"
)

// PropProxyURL is the property holding the running proxy's base URL.
const PropProxyURL = "proxy_url"

// ProxyServer runs the proxy in-process against the fake GitHub of the environment.
type ProxyServer struct {
	t    testing.TB
	opts FlagOptions

	env    TestEnvContext
	cancel context.CancelFunc
	done   chan error
}

// NewProxyServer creates a proxy service. GitHubURL defaults to the environment's fake GitHub.
func NewProxyServer(t testing.TB, opts FlagOptions) *ProxyServer {
	return &ProxyServer{t: t, opts: opts}
}

func (p *ProxyServer) GetName() string { return "ghproxy" }

func (p *ProxyServer) SetContext(ctx TestEnvContext) { p.env = ctx }

func (p *ProxyServer) Start() (map[string]any, error) {
	opts := p.opts
	if opts.GitHubURL == "" && p.env != nil {
		if url, ok := p.env.GetProperty(PropGitHubURL); ok {
			opts.GitHubURL = url.(string)
		}
	}
	if opts.Port == 0 {
		port, err := GetFreePort()
		if err != nil {
			return nil, err
		}
		opts.Port = port
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}

	flags := NewTestFlags(p.t, &opts)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)

	go func() {
		p.done <- app.RunWithDeps(ctx, app.DefaultRunParams(), flags, "test")
	}()

	baseURL := fmt.Sprintf("http://%s:%d", opts.Host, opts.Port)
	if err := p.waitHealthy(ctx, baseURL); err != nil {
		cancel()
		p.cancel = nil
		return nil, err
	}
	return map[string]any{PropProxyURL: baseURL}, nil
}

func (p *ProxyServer) Stop() error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("proxy did not shut down")
	}
}

func (p *ProxyServer) waitHealthy(ctx context.Context, baseURL string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		select {
		case err := <-p.done:
			return struct{}{}, backoff.Permanent(fmt.Errorf("proxy exited during startup: %v", err))
		default:
		}

		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return struct{}{}, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("health returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(20*time.Millisecond)),
		backoff.WithMaxElapsedTime(5*time.Second),
	)
	return err
}
