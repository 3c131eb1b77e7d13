package app

import (
	"context"
	"testing"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/config"
)

func TestNewAssemblesRuntime(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Templates.Dir = t.TempDir()
	cfg.Backup.OutputDir = t.TempDir()
	cfg.Compliance.PolicyFile = t.TempDir() + "/absent.yaml"

	a, err := New(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Orch == nil || a.Inventory == nil || a.Store == nil {
		t.Fatal("runtime is missing collaborators")
	}
	if a.Registry == nil || a.Metrics == nil {
		t.Fatal("metrics registry not wired")
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "etcd"

	if _, err := New(context.Background(), cfg, logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}
