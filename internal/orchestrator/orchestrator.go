package orchestrator

import (
	"context"
	"time"

	"github.com/keepithuman/netconfig-automation/internal/backup"
	"github.com/keepithuman/netconfig-automation/internal/compliance"
	"github.com/keepithuman/netconfig-automation/internal/inventory"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/observability"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/template"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Orchestrator coordinates fleet-wide configuration operations:
// deploy, backup, rollback, and compliance audits. Each operation
// resolves its targets, fans out one worker per device under a fixed
// concurrency ceiling, and aggregates per-device outcomes into a
// BatchResult whose order matches the target list.
type Orchestrator struct {
	inventory *inventory.Service
	templates *template.Store
	engine    *template.Engine
	checker   *compliance.Checker
	backups   *backup.Service
	gateway   transport.Gateway
	store     storage.Store
	cfg       *config.Config
	metrics   *observability.Metrics
	logger    logger.Logger

	locks      *lockRegistry
	workerPool chan struct{}
	maxWorkers int
}

// Deps bundles the collaborators an Orchestrator needs
type Deps struct {
	Inventory  *inventory.Service
	Templates  *template.Store
	Compliance *compliance.Checker
	Backups    *backup.Service
	Gateway    transport.Gateway
	Store      storage.Store
	Config     *config.Config
	Metrics    *observability.Metrics
	Logger     logger.Logger
}

// New creates an orchestrator with a pre-filled worker pool
func New(deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	workers := 0
	if deps.Config != nil {
		workers = deps.Config.Orchestrator.Workers
	}
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	o := &Orchestrator{
		inventory:  deps.Inventory,
		templates:  deps.Templates,
		engine:     template.NewEngine(),
		checker:    deps.Compliance,
		backups:    deps.Backups,
		gateway:    deps.Gateway,
		store:      deps.Store,
		cfg:        deps.Config,
		metrics:    deps.Metrics,
		logger:     log,
		locks:      newLockRegistry(),
		workerPool: make(chan struct{}, workers),
		maxWorkers: workers,
	}

	for i := 0; i < workers; i++ {
		o.workerPool <- struct{}{}
	}

	return o
}

// finishBatch fills the aggregate fields shared by every operation
func (o *Orchestrator) finishBatch(batch *types.BatchResult, results []types.DeviceResult, started time.Time) {
	batch.Results = results
	batch.Summary = types.Summarize(results)
	batch.Success = types.AnySucceeded(results)
	batch.DurationMs = time.Since(started).Milliseconds()
	o.metrics.ObserveBatch(batch.Operation, time.Since(started))
}

// writeHistory persists the batch as a DeploymentRecord. A failed
// write never changes the batch outcome; the operation it describes
// already happened. The write survives caller cancellation so an
// aborted batch still leaves a trace.
func (o *Orchestrator) writeHistory(ctx context.Context, batch *types.BatchResult, templateName string, variables map[string]string) {
	record := &types.DeploymentRecord{
		DeploymentID: batch.DeploymentID,
		Operation:    batch.Operation,
		Template:     templateName,
		Devices:      deviceNames(batch.Results),
		Variables:    variables,
		Results:      batch.Results,
		SuccessRate:  types.SuccessRate(batch.Results),
		CreatedAt:    time.Now().UTC(),
	}

	if err := o.store.SaveDeploymentRecord(context.WithoutCancel(ctx), record); err != nil {
		o.logger.Error("failed to record batch history", err)
		batch.HistoryError = err.Error()
	}
}

// markSeen updates inventory status after a successful device contact
func (o *Orchestrator) markSeen(ctx context.Context, device *types.Device) {
	if err := o.inventory.MarkSeen(context.WithoutCancel(ctx), device, time.Now().UTC()); err != nil {
		o.logger.WithField("device", device.Name).Warn("failed to update device status: " + err.Error())
	}
}

func deviceNames(results []types.DeviceResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Device
	}
	return names
}
