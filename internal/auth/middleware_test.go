package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sha1n/ghproxy/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, settings config.AuthSettings, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	middleware, err := NewMiddleware(settings)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	rec := httptest.NewRecorder()
	middleware(okHandler()).ServeHTTP(rec, req)
	return rec
}

func basicSettings() config.AuthSettings {
	return config.AuthSettings{
		Type:  config.AuthTypeBasic,
		Basic: config.BasicAuthSettings{Username: "admin", Password: "secret"},
	}
}

func apiKeySettings() config.AuthSettings {
	return config.AuthSettings{
		Type:    config.AuthTypeAPIKey,
		APIKeys: []string{"key1", "key2"},
	}
}

func TestNewMiddleware_NoAuth(t *testing.T) {
	for _, authType := range []string{config.AuthTypeNone, ""} {
		req := httptest.NewRequest("GET", "/repo/octo/demo", nil)
		rec := serve(t, config.AuthSettings{Type: authType}, req)
		if rec.Code != http.StatusOK {
			t.Errorf("type %q: expected status 200, got %d", authType, rec.Code)
		}
	}
}

func TestNewMiddleware_BasicAuth(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		wantStatus int
	}{
		{name: "valid", user: "admin", pass: "secret", setAuth: true, wantStatus: http.StatusOK},
		{name: "wrong password", user: "admin", pass: "wrong", setAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "wrong user", user: "root", pass: "secret", setAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/repo/octo/demo", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := serve(t, basicSettings(), req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="ghproxy"` {
					t.Errorf("Unexpected WWW-Authenticate header: %q", got)
				}
				if !strings.Contains(rec.Body.String(), `"detail":"Unauthorized"`) {
					t.Errorf("Expected JSON detail body, got %q", rec.Body.String())
				}
			}
		})
	}
}

func TestNewMiddleware_BasicAuth_MissingCredentials(t *testing.T) {
	tests := []config.BasicAuthSettings{
		{Username: "", Password: "secret"},
		{Username: "admin", Password: ""},
	}

	for _, basic := range tests {
		_, err := NewMiddleware(config.AuthSettings{Type: config.AuthTypeBasic, Basic: basic})
		if err == nil {
			t.Errorf("Expected error for %+v", basic)
		}
	}
}

func TestNewMiddleware_APIKey(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "header first key", header: APIKeyHeader, value: "key1", wantStatus: http.StatusOK},
		{name: "header second key", header: APIKeyHeader, value: "key2", wantStatus: http.StatusOK},
		{name: "bearer token", header: "Authorization", value: "Bearer key2", wantStatus: http.StatusOK},
		{name: "invalid key", header: APIKeyHeader, value: "nope", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme ignored", header: "Authorization", value: "Basic a2V5MQ==", wantStatus: http.StatusUnauthorized},
		{name: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/repo/octo/demo/file/a.go/lines", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := serve(t, apiKeySettings(), req)

			want := tt.wantStatus
			if want == 0 {
				want = http.StatusUnauthorized
			}
			if rec.Code != want {
				t.Errorf("Expected status %d, got %d", want, rec.Code)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "" {
				t.Error("API key auth must not send a Basic challenge")
			}
		})
	}
}

func TestNewMiddleware_APIKey_NoKeys(t *testing.T) {
	_, err := NewMiddleware(config.AuthSettings{Type: config.AuthTypeAPIKey})
	if err == nil {
		t.Error("Expected error for API key auth without keys")
	}
}

func TestNewMiddleware_UnknownType(t *testing.T) {
	_, err := NewMiddleware(config.AuthSettings{Type: "oauth"})
	if err == nil {
		t.Error("Expected error for unknown auth type")
	}
}

func TestPublicPaths_BypassAuth(t *testing.T) {
	for _, settings := range []config.AuthSettings{basicSettings(), apiKeySettings()} {
		for _, path := range []string{"/", "/health"} {
			rec := serve(t, settings, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("%s with %s auth: expected status 200, got %d", path, settings.Type, rec.Code)
			}
		}

		rec := serve(t, settings, httptest.NewRequest("GET", "/health/extra", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("/health/extra with %s auth: expected status 401, got %d", settings.Type, rec.Code)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/health", true},
		{"/sse", false},
		{"/logs/push", false},
		{"/repo/octo/demo", false},
	}

	for _, tt := range tests {
		if got := isPublicPath(tt.path); got != tt.want {
			t.Errorf("isPublicPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
