package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("got listen addr %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("got timezone %q, want %q", cfg.Timezone, "Asia/Kolkata")
	}
	if cfg.DatabasePath == "" {
		t.Error("expected a default database path")
	}
	if cfg.StatePath == "" {
		t.Error("expected a default state path")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DAYPILOT_LISTEN_ADDR", ":9999")
	t.Setenv("DAYPILOT_TIMEZONE", "UTC")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := &Config{ListenAddr: ":8080", Timezone: "Asia/Kolkata"}
	applyEnv(cfg)

	if cfg.ListenAddr != ":9999" {
		t.Errorf("got listen addr %q, want %q", cfg.ListenAddr, ":9999")
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("got timezone %q, want %q", cfg.Timezone, "UTC")
	}
	if cfg.GeminiAPIKey != "test-key" {
		t.Errorf("got API key %q, want %q", cfg.GeminiAPIKey, "test-key")
	}
}

func TestEnvLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := &Config{DatabasePath: "/tmp/x.db"}
	applyEnv(cfg)
	if cfg.DatabasePath != "/tmp/x.db" {
		t.Errorf("got database path %q, want %q", cfg.DatabasePath, "/tmp/x.db")
	}
}
