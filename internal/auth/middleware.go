package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/ghproxy/internal/config"
)

const (
	// APIKeyHeader carries the API key for apikey authentication.
	APIKeyHeader = "X-API-Key"

	realm = "ghproxy"
)

// publicPaths bypass authentication.
var publicPaths = map[string]bool{
	"/":       true,
	"/health": true,
}

func isPublicPath(path string) bool {
	return publicPaths[path]
}

// NewMiddleware creates an authentication middleware for the proxy's own clients.
// Rejected requests get a 401 with a JSON detail body.
func NewMiddleware(settings config.AuthSettings) (func(http.Handler) http.Handler, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return guard(basicAuthenticator(settings.Basic), true), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return guard(apiKeyAuthenticator(settings.APIKeys), false), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// authenticator reports whether a request carries valid credentials.
type authenticator func(r *http.Request) bool

func guard(authenticate authenticator, challenge bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || authenticate(r) {
				next.ServeHTTP(w, r)
				return
			}
			if challenge {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
			}
			unauthorized(w)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Unauthorized"})
}

func basicAuthenticator(settings config.BasicAuthSettings) authenticator {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		return ok && userMatch && passMatch
	}
}

// apiKeyAuthenticator accepts a key from the X-API-Key header or a Bearer token.
func apiKeyAuthenticator(apiKeys []string) authenticator {
	return func(r *http.Request) bool {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				key = strings.TrimSpace(token)
			}
		}
		if key == "" {
			return false
		}

		valid := false
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
				valid = true
			}
		}
		return valid
	}
}
