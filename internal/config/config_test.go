package config

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "DB_HOST", "DB_PORT", "SERVER_PORT", "LEDGER_LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.DBPort != "5432" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PersistenceEnabled() {
		t.Fatal("persistence should be disabled without DB_HOST")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "replays")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.PersistenceEnabled() {
		t.Fatal("persistence should be enabled")
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	dsn := cfg.DSN()
	if !strings.Contains(dsn, "host=db.internal") || !strings.Contains(dsn, "dbname=replays") {
		t.Fatalf("DSN = %q", dsn)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		wantOut string
	}{
		{name: "json", cfg: Config{LogLevel: "info", LogFormat: "json"}, wantOut: `"msg":"hello"`},
		{name: "text", cfg: Config{LogLevel: "debug", LogFormat: "text"}, wantOut: "msg=hello"},
		{name: "filtered", cfg: Config{LogLevel: "error", LogFormat: "text"}, wantOut: ""},
		{name: "bad level", cfg: Config{LogLevel: "loud", LogFormat: "text"}, wantErr: true},
		{name: "bad format", cfg: Config{LogLevel: "info", LogFormat: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := tt.cfg.NewLogger(&buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger() unexpected error: %v", err)
			}
			logger.InfoContext(context.Background(), "hello")
			if tt.wantOut == "" {
				if buf.Len() != 0 {
					t.Fatalf("expected no output, got %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.wantOut) {
				t.Fatalf("output %q does not contain %q", buf.String(), tt.wantOut)
			}
		})
	}
}
