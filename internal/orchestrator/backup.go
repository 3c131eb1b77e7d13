package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keepithuman/netconfig-automation/internal/backup"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// BackupRequest selects devices to back up
type BackupRequest struct {
	Devices []string
	// OutputDir overrides the configured backup directory when set.
	OutputDir string
}

// Backup captures the running configuration of every resolved target
// as an ad-hoc snapshot and mirrors each one to the backup directory
func (o *Orchestrator) Backup(ctx context.Context, req BackupRequest) (*types.BatchResult, error) {
	started := time.Now()

	devices, err := o.inventory.Resolve(ctx, req.Devices)
	if err != nil {
		return nil, err
	}

	dir := req.OutputDir
	if dir == "" {
		dir = o.cfg.Backup.OutputDir
	}

	batch := &types.BatchResult{
		Operation:    types.OperationBackup,
		DeploymentID: uuid.NewString(),
		BackupDir:    dir,
		StartedAt:    started.UTC(),
	}

	o.logger.WithFields(map[string]interface{}{
		"devices": len(devices),
		"dir":     dir,
	}).Info("starting backup")

	results := o.runBatch(ctx, types.OperationBackup, devices, func(ctx context.Context, device *types.Device) types.DeviceResult {
		return o.backupDevice(ctx, device, dir)
	})

	o.finishBatch(batch, results, started)
	o.writeHistory(ctx, batch, "", nil)
	return batch, nil
}

// backupDevice captures one device's configuration and writes the
// backup file. A failed file write leaves the snapshot intact and is
// reported as a persistence gap, not a device failure.
func (o *Orchestrator) backupDevice(ctx context.Context, device *types.Device, dir string) types.DeviceResult {
	snapshot, err := o.backups.Capture(ctx, device, "")
	if err != nil {
		return types.DeviceResult{Device: device.Name, Error: err.Error()}
	}

	result := types.DeviceResult{
		Device:     device.Name,
		Success:    true,
		SnapshotID: snapshot.ID,
	}

	path, err := backup.WriteFile(dir, snapshot)
	if err != nil {
		result.PersistenceError = err.Error()
		o.logger.WithField("device", device.Name).Warn("failed to write backup file: " + err.Error())
	} else {
		result.Message = fmt.Sprintf("saved %s (%d bytes)", path, len(snapshot.Content))
	}

	o.markSeen(ctx, device)
	return result
}
