package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDefaultPath, dir)
	logger := zerolog.New(nil)

	cfg, path, err := Load(&logger, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != filepath.Join(dir, defaultConfigName) {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Addr != ":3000" || cfg.JoinPolicy != "permissive" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.PermanentRooms) != 1 || cfg.PermanentRooms[0] != "Public" {
		t.Fatalf("unexpected permanent rooms: %v", cfg.PermanentRooms)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := "addr: \":4000\"\njoin_policy: strict\nresync_interval: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("P2PCHAT_ADDR", ":5000")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":5000" {
		t.Fatalf("env should override file, got %q", cfg.Addr)
	}
	if cfg.JoinPolicy != "strict" {
		t.Fatalf("expected strict policy from file, got %q", cfg.JoinPolicy)
	}
	if cfg.ResyncInterval != 3*time.Second {
		t.Fatalf("unexpected resync interval %v", cfg.ResyncInterval)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("join_policy: invite_only\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadClient(t *testing.T) {
	cfg, err := LoadClient("")
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.SignalStrategy != "eager" || cfg.JoinRetryDelay != 100*time.Millisecond {
		t.Fatalf("unexpected client defaults: %+v", cfg)
	}

	t.Setenv("P2PCHAT_SIGNAL_STRATEGY", "queue")
	cfg, err = LoadClient("")
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.SignalStrategy != "queue" {
		t.Fatalf("env override ignored: %q", cfg.SignalStrategy)
	}

	if _, err := LoadClient(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit client config")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":9000", LogLevel: "debug"})
	if cfg.Addr != ":9000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.JoinPolicy != "permissive" {
		t.Fatalf("zero values must not override: %q", cfg.JoinPolicy)
	}
}
