package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// RollbackRequest restores a stored configuration snapshot
type RollbackRequest struct {
	ConfigID string
	// Devices narrows the rollback; when empty the targets are the
	// devices that received the snapshot's deployment.
	Devices []string
}

// Rollback pushes a snapshot's stored configuration back onto its
// devices. A missing snapshot aborts immediately with no partial
// work. Every target gets a best-effort backup of its current state
// before the push.
func (o *Orchestrator) Rollback(ctx context.Context, req RollbackRequest) (*types.BatchResult, error) {
	started := time.Now()

	snapshot, err := o.store.GetSnapshot(ctx, req.ConfigID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, neterrors.ErrConfigNotFound
		}
		return nil, neterrors.Wrap(neterrors.ErrorTypePersistence, "rollback", err)
	}

	devices, err := o.rollbackTargets(ctx, snapshot, req.Devices)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	o.logger.WithFields(map[string]interface{}{
		"config":  req.ConfigID,
		"batch":   batchID,
		"devices": len(devices),
	}).Info("starting rollback")

	batch := &types.BatchResult{
		Operation:    types.OperationRollback,
		DeploymentID: batchID,
		StartedAt:    started.UTC(),
	}

	results := o.runBatch(ctx, types.OperationRollback, devices, func(ctx context.Context, device *types.Device) types.DeviceResult {
		return o.rollbackDevice(ctx, batchID, device, snapshot)
	})

	o.finishBatch(batch, results, started)
	o.writeHistory(ctx, batch, "", nil)
	return batch, nil
}

// rollbackTargets resolves which devices receive the restored
// configuration. With no explicit names, the targets are derived from
// the snapshots of the deployment that produced the config; devices
// since removed from inventory are skipped with a warning.
func (o *Orchestrator) rollbackTargets(ctx context.Context, snapshot *types.ConfigSnapshot, names []string) ([]*types.Device, error) {
	if len(names) > 0 {
		return o.inventory.Resolve(ctx, names)
	}

	if snapshot.IsAdHoc() {
		// an ad-hoc backup belongs to exactly one device
		device, err := o.inventory.Get(ctx, snapshot.DeviceID)
		if err != nil {
			if errors.Is(err, neterrors.ErrDeviceNotFound) {
				return nil, neterrors.ErrNoTargets
			}
			return nil, neterrors.Wrap(neterrors.ErrorTypeResolution, "resolve", err)
		}
		return []*types.Device{device}, nil
	}

	siblings, err := o.store.ListSnapshotsByDeployment(ctx, snapshot.DeploymentID)
	if err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeResolution, "resolve", err)
	}

	seen := make(map[string]bool, len(siblings))
	var devices []*types.Device
	for _, sibling := range siblings {
		if seen[sibling.DeviceID] {
			continue
		}
		seen[sibling.DeviceID] = true

		device, err := o.inventory.Get(ctx, sibling.DeviceID)
		if err != nil {
			if errors.Is(err, neterrors.ErrDeviceNotFound) {
				o.logger.Warn("skipping device no longer in inventory: " + sibling.DeviceName)
				continue
			}
			return nil, neterrors.Wrap(neterrors.ErrorTypeResolution, "resolve", err)
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, neterrors.ErrNoTargets
	}
	return devices, nil
}

// rollbackDevice is the per-device rollback worker: best-effort
// backup of current state, then push the stored configuration
func (o *Orchestrator) rollbackDevice(ctx context.Context, batchID string, device *types.Device, snapshot *types.ConfigSnapshot) types.DeviceResult {
	unlock := o.locks.lock(device.Name)
	defer unlock()

	result := types.DeviceResult{Device: device.Name}

	if pre, err := o.backups.Capture(ctx, device, batchID); err != nil {
		o.logger.WithField("device", device.Name).Warn("pre-rollback backup failed: " + err.Error())
	} else {
		id := pre.ID
		result.BackupID = &id
	}

	params := transport.ParamsForDevice(device, o.cfg.Transport)
	pushed, err := o.gateway.PushConfig(ctx, params, snapshot.Content)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.SnapshotID = snapshot.ID
	result.Message = fmt.Sprintf("restored snapshot %s (%d lines)", snapshot.ID, pushed.LinesApplied)

	o.markSeen(ctx, device)
	return result
}
