package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger_StdioTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Transport = TransportStdio

	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "transport") {
		t.Error("Expected 'transport' in log output")
	}
	// stdio transport should not log host/port
	if strings.Contains(output, "Config: host") {
		t.Error("Expected no host in log output for stdio transport")
	}
}

func TestLogWithLogger_HTTPTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogWithLogger(validSettings(), logger)

	output := buf.String()
	if !strings.Contains(output, "Config: host") {
		t.Error("Expected host in log output for http transport")
	}
	if !strings.Contains(output, "Config: port") {
		t.Error("Expected port in log output for http transport")
	}
	if !strings.Contains(output, "chunk_size=50000") {
		t.Errorf("Expected chunk size in log output, got: %s", output)
	}
}

func TestLogWithLogger_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Auth = AuthSettings{
		Type:  AuthTypeBasic,
		Basic: BasicAuthSettings{Username: "admin", Password: "secret"},
	}
	s.GitHub.Token = "ghp_supersecret"

	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "admin") {
		t.Error("Expected username in log output")
	}
	if strings.Contains(output, "secret") {
		t.Errorf("Secrets should be masked, got: %s", output)
	}
	if !strings.Contains(output, "****") {
		t.Error("Expected masked values in log output")
	}
}

func TestLogWithLogger_APIKeyAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1", "key2", "key3"}}

	LogWithLogger(s, logger)

	if !strings.Contains(buf.String(), "count=3") {
		t.Errorf("Expected 'count=3' in log output, got: %s", buf.String())
	}
}

func TestLogWithLogger_LogsSection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	LogWithLogger(s, logger)
	if strings.Contains(buf.String(), "repo_dir") {
		t.Error("Expected no logs details when log push is disabled")
	}

	buf.Reset()
	s.Logs.Enabled = true
	LogWithLogger(s, logger)
	if !strings.Contains(buf.String(), "repo_dir") {
		t.Error("Expected logs details when log push is enabled")
	}
}

func TestSettingsLogValue(t *testing.T) {
	val := SettingsLogValue(*validSettings())
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_LevelAndWriters(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger("warn", &a, &b)

	logger.Info("hidden")
	logger.Warn("shown")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		if strings.Contains(buf.String(), "hidden") {
			t.Error("Info message should be filtered at warn level")
		}
		if !strings.Contains(buf.String(), "shown") {
			t.Error("Warn message should be written to every writer")
		}
	}
}
