package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keepithuman/netconfig-automation/internal/backup"
	"github.com/keepithuman/netconfig-automation/internal/compliance"
	"github.com/keepithuman/netconfig-automation/internal/inventory"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/observability"
	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/template"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/config"
)

// App is the assembled runtime. The CLI and the API gateway both build
// one from configuration and share its collaborators.
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Store     storage.Store
	Inventory *inventory.Service
	Templates *template.Store
	Checker   *compliance.Checker
	Backups   *backup.Service
	Gateway   transport.Gateway
	Orch      *orchestrator.Orchestrator
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
}

// New opens the store, loads the policy set and wires the orchestrator.
// The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	policies, err := compliance.LoadPolicies(cfg.Compliance.PolicyFile, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load compliance policies: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	gateway := transport.NewSSHGateway(log)
	inv := inventory.NewService(store, log)
	templates := template.NewStore(cfg.Templates.Dir)
	checker := compliance.NewChecker(policies, log)
	backups := backup.NewService(gateway, store, cfg.Transport, log)

	orch := orchestrator.New(orchestrator.Deps{
		Inventory:  inv,
		Templates:  templates,
		Compliance: checker,
		Backups:    backups,
		Gateway:    gateway,
		Store:      store,
		Config:     cfg,
		Metrics:    metrics,
		Logger:     log,
	})

	return &App{
		Config:    cfg,
		Logger:    log,
		Store:     store,
		Inventory: inv,
		Templates: templates,
		Checker:   checker,
		Backups:   backups,
		Gateway:   gateway,
		Orch:      orch,
		Metrics:   metrics,
		Registry:  registry,
	}, nil
}

// Close releases the store connection.
func (a *App) Close() error {
	return a.Store.Close()
}
