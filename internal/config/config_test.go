package config_test

import (
	"testing"

	"github.com/voxdesk/client/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("VOXDESK_EVENTS_URL", "")
	t.Setenv("VOXDESK_STORE_BUDGET_BYTES", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr == "" {
		t.Fatal("expected default server address")
	}
	if cfg.Store.BudgetBytes != 5_000_000 {
		t.Fatalf("default budget: got %d want 5000000", cfg.Store.BudgetBytes)
	}
	if cfg.Events.Enabled() {
		t.Fatal("events channel should be disabled without VOXDESK_EVENTS_URL")
	}
}

func TestLoadPortForms(t *testing.T) {
	t.Setenv("PORT", "9001")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9001" {
		t.Fatalf("addr: got %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", ":9002")
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9002" {
		t.Fatalf("addr: got %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "90 02")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for malformed PORT")
	}
}

func TestLoadBudgetOverride(t *testing.T) {
	t.Setenv("VOXDESK_STORE_BUDGET_BYTES", "1024")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Store.BudgetBytes != 1024 {
		t.Fatalf("budget override: got %d want 1024", cfg.Store.BudgetBytes)
	}

	t.Setenv("VOXDESK_STORE_BUDGET_BYTES", "-1")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for non-positive budget")
	}
}
