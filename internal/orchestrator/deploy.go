package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/template"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// DeployRequest describes a fleet deployment
type DeployRequest struct {
	Template  string
	Devices   []string
	Variables map[string]string
	DryRun    bool
}

// Deploy renders the template per device and pushes the result to
// every resolved target. A missing template aborts before any device
// is contacted; per-device failures are isolated. Overall success
// means at least one device took the configuration.
func (o *Orchestrator) Deploy(ctx context.Context, req DeployRequest) (*types.BatchResult, error) {
	started := time.Now()

	tmplText, err := o.templates.Load(req.Template)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			return nil, neterrors.Wrap(neterrors.ErrorTypeNotFound, "deploy", err)
		}
		return nil, neterrors.Wrap(neterrors.ErrorTypeRender, "deploy", err)
	}

	if req.DryRun {
		return o.dryRun(started, req, tmplText), nil
	}

	devices, err := o.inventory.Resolve(ctx, req.Devices)
	if err != nil {
		return nil, err
	}

	deploymentID := uuid.NewString()
	o.logger.WithFields(map[string]interface{}{
		"deployment": deploymentID,
		"template":   req.Template,
		"devices":    len(devices),
	}).Info("starting deployment")

	batch := &types.BatchResult{
		Operation:    types.OperationDeploy,
		DeploymentID: deploymentID,
		StartedAt:    started.UTC(),
	}

	results := o.runBatch(ctx, types.OperationDeploy, devices, func(ctx context.Context, device *types.Device) types.DeviceResult {
		return o.deployDevice(ctx, deploymentID, device, req, tmplText)
	})

	o.finishBatch(batch, results, started)
	o.writeHistory(ctx, batch, req.Template, req.Variables)
	return batch, nil
}

// deployDevice is the per-device deploy worker: render, validate,
// best-effort backup, push, persist the applied snapshot
func (o *Orchestrator) deployDevice(ctx context.Context, deploymentID string, device *types.Device, req DeployRequest, tmplText string) types.DeviceResult {
	unlock := o.locks.lock(device.Name)
	defer unlock()

	result := types.DeviceResult{Device: device.Name}

	vars := template.MergeVariables(device, req.Variables)
	rendered, err := o.engine.Render(req.Template, tmplText, vars)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	validation := template.Validate(rendered, device.DeviceType)
	if !validation.Valid {
		result.Error = "validation failed: " + strings.Join(validation.Errors, "; ")
		return result
	}
	for _, warning := range validation.Warnings {
		o.logger.WithField("device", device.Name).Warn(warning)
	}

	// pre-change backup; failure is recorded, never blocking
	if snapshot, err := o.backups.Capture(ctx, device, deploymentID); err != nil {
		o.logger.WithField("device", device.Name).Warn("pre-change backup failed: " + err.Error())
	} else {
		id := snapshot.ID
		result.BackupID = &id
	}

	params := transport.ParamsForDevice(device, o.cfg.Transport)
	pushed, err := o.gateway.PushConfig(ctx, params, rendered)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Message = fmt.Sprintf("applied %d lines", pushed.LinesApplied)

	applied := &types.ConfigSnapshot{
		ID:           uuid.NewString(),
		DeviceID:     device.ID,
		DeviceName:   device.Name,
		DeploymentID: deploymentID,
		Content:      rendered,
		ContentHash:  types.HashContent(rendered),
		Applied:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.store.SaveSnapshot(context.WithoutCancel(ctx), applied); err != nil {
		// the device already took the config; record the gap instead
		// of failing the outcome
		result.PersistenceError = err.Error()
		o.logger.WithField("device", device.Name).Warn("failed to persist applied snapshot: " + err.Error())
	} else {
		result.SnapshotID = applied.ID
	}

	o.markSeen(ctx, device)
	return result
}

// dryRun renders once against synthetic sample variables and runs
// static validation. No device contact, no persistence.
func (o *Orchestrator) dryRun(started time.Time, req DeployRequest, tmplText string) *types.BatchResult {
	vars := make(map[string]string, len(req.Variables)+3)
	for k, v := range req.Variables {
		vars[k] = v
	}
	for k, v := range template.SampleVariables() {
		vars[k] = v
	}

	preview := &types.DryRunPreview{Template: req.Template}

	rendered, err := o.engine.Render(req.Template, tmplText, vars)
	if err != nil {
		preview.Errors = []string{err.Error()}
	} else {
		validation := template.Validate(rendered, vars["device_type"])
		preview.Preview = rendered
		preview.Valid = validation.Valid
		preview.Errors = validation.Errors
		preview.Warnings = validation.Warnings
	}

	return &types.BatchResult{
		Operation:  types.OperationDeploy,
		Success:    preview.Valid,
		DryRun:     preview,
		StartedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}
}
