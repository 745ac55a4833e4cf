package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const masked = "****"

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level must be one of debug, info, warn, error, got: %s", level)
	}
}

// NewLogger creates a text logger writing to all the given writers at the configured level.
func NewLogger(level string, writers ...io.Writer) *slog.Logger {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportHTTP {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: github", "value", GitHubSettingsLogValue(s.GitHub))

	logger.InfoContext(ctx, "Config: logs.enabled", "value", s.Logs.Enabled)
	if s.Logs.Enabled {
		logger.InfoContext(ctx, "Config: logs", "value", LogsSettingsLogValue(s.Logs))
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", masked),
	)
}

// GitHubSettingsLogValue returns a slog.Value for GitHubSettings with the token masked
func GitHubSettingsLogValue(s GitHubSettings) slog.Value {
	token := ""
	if s.Token != "" {
		token = masked
	}
	return slog.GroupValue(
		slog.String("api_url", s.APIURL),
		slog.String("token", token),
		slog.Duration("timeout", s.Timeout),
		slog.Int("max_retries", s.MaxRetries),
		slog.Int64("chunk_size", s.ChunkSize),
		slog.Int64("max_file_size", s.MaxFileSize),
	)
}

// LogsSettingsLogValue returns a slog.Value for LogsSettings
func LogsSettingsLogValue(s LogsSettings) slog.Value {
	return slog.GroupValue(
		slog.String("repo_dir", s.RepoDir),
		slog.String("file", s.File),
		slog.String("remote", s.Remote),
		slog.String("branch", s.Branch),
		slog.Duration("lock_timeout", s.LockTimeout),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("log_level", s.LogLevel),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("github", GitHubSettingsLogValue(s.GitHub)),
		slog.Any("logs", LogsSettingsLogValue(s.Logs)),
	)
}
