package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TaskTimeoutMinutes != 30 {
		t.Fatalf("expected default task timeout, got %d", cfg.TaskTimeoutMinutes)
	}
	if cfg.UpdateIntervalMs != 1500 {
		t.Fatalf("expected default update interval, got %d", cfg.UpdateIntervalMs)
	}
	if cfg.Backend.Type != BackendCLI {
		t.Fatalf("expected cli backend default, got %q", cfg.Backend.Type)
	}
}

func TestLoadBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen_addr":"localhost:9000"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != "localhost:9000" {
		t.Fatalf("explicit value lost: %q", cfg.ListenAddr)
	}
	if cfg.SessionTTLHours != 24 {
		t.Fatalf("expected backfilled session TTL, got %d", cfg.SessionTTLHours)
	}
	if cfg.ContinuationPrompt == "" {
		t.Fatal("expected backfilled continuation prompt")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:1234"
	cfg.Backend.Model = "claude-sonnet"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ListenAddr != "localhost:1234" || loaded.Backend.Model != "claude-sonnet" {
		t.Fatalf("round trip lost values: %+v", loaded)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
