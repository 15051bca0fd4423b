package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
addr: 127.0.0.1:9000
path: /chat
mode: broadcast
max_message_size: 65536
rate_limit:
  enabled: true
  messages_per_second: 5
  burst: 10
log:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Addr != "127.0.0.1:9000" || cfg.Path != "/chat" || cfg.Mode != ModeBroadcast {
		t.Errorf("server fields = %q %q %q", cfg.Addr, cfg.Path, cfg.Mode)
	}
	if cfg.MaxMessageSize != 65536 {
		t.Errorf("MaxMessageSize = %d, want 65536", cfg.MaxMessageSize)
	}
	if cfg.RateLimit != (RateLimit{Enabled: true, MessagesPerSecond: 5, Burst: 10}) {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}

	// Keys absent from the file keep their defaults.
	if cfg.ReadBufferSize != Default().ReadBufferSize {
		t.Errorf("ReadBufferSize = %d, want default %d", cfg.ReadBufferSize, Default().ReadBufferSize)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, %v; want debug", level, err)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Parse(nil) = %+v, want defaults", cfg)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "adress: :80", "failed to parse YAML"},
		{"malformed", "addr: [", "failed to parse YAML"},
		{"empty addr", `addr: ""`, "addr is required"},
		{"relative path", "path: ws", "must start with /"},
		{"unknown mode", "mode: relay", "unsupported mode"},
		{"negative size", "max_message_size: -1", "max_message_size"},
		{"negative buffer", "read_buffer_size: -1", "read_buffer_size"},
		{"zero rate", "rate_limit: {enabled: true, messages_per_second: 0, burst: 1}", "messages_per_second"},
		{"zero burst", "rate_limit: {enabled: true, messages_per_second: 1, burst: 0}", "burst"},
		{"bad level", "log: {level: loud, format: text}", "log level"},
		{"bad format", "log: {level: info, format: xml}", "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_DisabledRateLimitSkipsChecks(t *testing.T) {
	if _, err := Parse([]byte("rate_limit: {enabled: false, messages_per_second: 0, burst: 0}")); err != nil {
		t.Errorf("Parse = %v, want nil", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsecho.yaml")
	if err := os.WriteFile(path, []byte("addr: :9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}
