package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.OrderPoolSize != 8192 {
		t.Errorf("OrderPoolSize = %d, want 8192", cfg.OrderPoolSize)
	}
	if cfg.ProcessedRetention != 10*time.Minute {
		t.Errorf("ProcessedRetention = %v, want 10m", cfg.ProcessedRetention)
	}
	if !cfg.Paper || len(cfg.Venues) != 1 || cfg.Venues[0].Name != "paper" {
		t.Errorf("expected default paper venue, got %+v", cfg.Venues)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ORDER_POOL_SIZE", "128")
	t.Setenv("IDLE_BACKOFF", "5ms")
	t.Setenv("PAPER_TRADING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OrderPoolSize != 128 {
		t.Errorf("OrderPoolSize = %d, want 128", cfg.OrderPoolSize)
	}
	if cfg.IdleBackoff != 5*time.Millisecond {
		t.Errorf("IdleBackoff = %v, want 5ms", cfg.IdleBackoff)
	}
	if len(cfg.Venues) != 0 {
		t.Errorf("expected no venues with paper disabled, got %+v", cfg.Venues)
	}
}

func TestVenuesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "venues.yaml")
	doc := `venues:
  - name: bybit
    testnet: true
  - name: sim
    kind: paper
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VENUES_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Venues) != 2 {
		t.Fatalf("venues = %d, want 2", len(cfg.Venues))
	}
	if cfg.Venues[0].Kind != "bybit" {
		t.Errorf("kind should default to name, got %q", cfg.Venues[0].Kind)
	}
	if !cfg.Venues[0].Testnet {
		t.Error("testnet flag lost")
	}
	if cfg.Venues[1].Kind != "paper" {
		t.Errorf("kind = %q, want paper", cfg.Venues[1].Kind)
	}
}

func TestVenuesFileRejectsUnnamedVenue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "venues.yaml")
	if err := os.WriteFile(path, []byte("venues:\n  - kind: paper\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VENUES_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unnamed venue")
	}
}
