package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport constants
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Defaults for the upstream API and the log pusher.
const (
	DefaultGitHubAPIURL  = "https://api.github.com/"
	DefaultChunkSize     = 50000       // 50 KB
	DefaultMaxFileSize   = 1024 * 1024 // 1 MB soft limit of the contents API
	DefaultLogFile       = "app.log"
	DefaultLogRemote     = "origin"
	DefaultGitHubTimeout = 30 * time.Second
)

// AuthSettings configuration for inbound authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// GitHubSettings configuration for the upstream GitHub API
type GitHubSettings struct {
	APIURL      string        `mapstructure:"api_url"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	ChunkSize   int64         `mapstructure:"chunk_size"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
}

// LogsSettings configuration for the log commit-and-push utility
type LogsSettings struct {
	Enabled     bool          `mapstructure:"enabled"`
	RepoDir     string        `mapstructure:"repo_dir"`
	File        string        `mapstructure:"file"`
	Remote      string        `mapstructure:"remote"`
	Branch      string        `mapstructure:"branch"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	LogLevel  string         `mapstructure:"log_level"`
	Auth      AuthSettings   `mapstructure:"auth"`
	GitHub    GitHubSettings `mapstructure:"github"`
	Logs      LogsSettings   `mapstructure:"logs"`
}

// flagBindings maps config keys to CLI flag names.
var flagBindings = map[string]string{
	"transport":            "transport",
	"host":                 "host",
	"port":                 "port",
	"log_level":            "log-level",
	"auth.type":            "auth-type",
	"auth.basic.username":  "auth-basic-username",
	"auth.basic.password":  "auth-basic-password",
	"auth.api_keys":        "auth-api-keys",
	"github.api_url":       "github-api-url",
	"github.token":         "github-token",
	"github.timeout":       "github-timeout",
	"github.max_retries":   "github-max-retries",
	"github.chunk_size":    "github-chunk-size",
	"github.max_file_size": "github-max-file-size",
	"logs.enabled":         "logs-enabled",
	"logs.repo_dir":        "logs-repo-dir",
	"logs.file":            "logs-file",
	"logs.remote":          "logs-remote",
	"logs.branch":          "logs-branch",
	"logs.lock_timeout":    "logs-lock-timeout",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("github.api_url", DefaultGitHubAPIURL)
	v.SetDefault("github.timeout", DefaultGitHubTimeout)
	v.SetDefault("github.max_retries", 0)
	v.SetDefault("github.chunk_size", int64(DefaultChunkSize))
	v.SetDefault("github.max_file_size", int64(DefaultMaxFileSize))

	v.SetDefault("logs.enabled", false)
	v.SetDefault("logs.repo_dir", ".")
	v.SetDefault("logs.file", DefaultLogFile)
	v.SetDefault("logs.remote", DefaultLogRemote)
	v.SetDefault("logs.branch", "")
	v.SetDefault("logs.lock_timeout", 30*time.Second)

	// Environment variables
	v.SetEnvPrefix("GHPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys are not picked up by AutomaticEnv during Unmarshal unless bound
	for key := range flagBindings {
		_ = v.BindEnv(key, envName(key))
	}
	// GITHUB_TOKEN is honored as a fallback for the upstream token
	_ = v.BindEnv("github.token", envName("github.token"), "GITHUB_TOKEN")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv(envName("auth.api_keys"))
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	// go-github resolves endpoints relative to the base URL, which must end in a slash
	if settings.GitHub.APIURL != "" && !strings.HasSuffix(settings.GitHub.APIURL, "/") {
		settings.GitHub.APIURL += "/"
	}

	settings.Logs.RepoDir = expandHomeDir(settings.Logs.RepoDir)

	return &settings, nil
}

// envName returns the environment variable bound to a config key.
func envName(key string) string {
	return "GHPROXY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case TransportHTTP, TransportStdio:
		// valid
	default:
		return errors.New("transport must be 'http' or 'stdio', got: " + s.Transport)
	}

	if s.Transport == TransportHTTP && (s.Port <= 0 || s.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", s.Port)
	}

	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	if err := validateAuthSettings(&s.Auth); err != nil {
		return err
	}

	if err := validateGitHubSettings(&s.GitHub); err != nil {
		return err
	}

	return validateLogsSettings(&s.Logs)
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

func validateGitHubSettings(g *GitHubSettings) error {
	if g.APIURL == "" {
		return errors.New("github-api-url cannot be empty")
	}
	if g.ChunkSize <= 0 {
		return errors.New("github-chunk-size must be positive")
	}
	if g.MaxFileSize <= 0 {
		return errors.New("github-max-file-size must be positive")
	}
	if g.MaxRetries < 0 {
		return errors.New("github-max-retries cannot be negative")
	}
	if g.Timeout < 0 {
		return errors.New("github-timeout cannot be negative")
	}
	return nil
}

func validateLogsSettings(l *LogsSettings) error {
	if !l.Enabled {
		return nil // No validation needed when disabled
	}
	if l.RepoDir == "" {
		return errors.New("logs-repo-dir cannot be empty")
	}
	if l.File == "" {
		return errors.New("logs-file cannot be empty")
	}
	if filepath.IsAbs(l.File) || strings.HasPrefix(filepath.Clean(l.File), "..") {
		return errors.New("logs-file must be relative to logs-repo-dir")
	}
	if l.Remote == "" {
		return errors.New("logs-remote cannot be empty")
	}
	if l.LockTimeout <= 0 {
		return errors.New("logs-lock-timeout must be positive")
	}
	return nil
}
