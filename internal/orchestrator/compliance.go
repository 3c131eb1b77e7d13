package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// ComplianceRequest selects devices to audit
type ComplianceRequest struct {
	Devices []string
}

// CheckCompliance audits every resolved target against the active
// policy set. The policy set is loaded once and shared read-only
// across workers. A device that cannot be reached fails its outcome;
// a reachable device that violates policies still succeeds, with the
// violations carried in its report.
func (o *Orchestrator) CheckCompliance(ctx context.Context, req ComplianceRequest) (*types.BatchResult, error) {
	started := time.Now()

	devices, err := o.inventory.Resolve(ctx, req.Devices)
	if err != nil {
		return nil, err
	}

	batch := &types.BatchResult{
		Operation:    types.OperationCompliance,
		DeploymentID: uuid.NewString(),
		StartedAt:    started.UTC(),
	}

	o.logger.WithFields(map[string]interface{}{
		"devices":  len(devices),
		"policies": len(o.checker.Policies()),
	}).Info("starting compliance audit")

	results := o.runBatch(ctx, types.OperationCompliance, devices, o.auditDevice)

	o.finishBatch(batch, results, started)
	o.writeHistory(ctx, batch, "", nil)
	return batch, nil
}

// auditDevice fetches one device's running configuration and scores
// it against the policy set
func (o *Orchestrator) auditDevice(ctx context.Context, device *types.Device) types.DeviceResult {
	params := transport.ParamsForDevice(device, o.cfg.Transport)
	command := transport.ShowRunningCommand(device.DeviceType)

	content, err := o.gateway.Execute(ctx, params, command)
	if err != nil {
		return types.DeviceResult{Device: device.Name, Error: err.Error()}
	}

	report := o.checker.Check(content)
	o.metrics.ObserveComplianceScore(device.Name, report.Score)

	result := types.DeviceResult{
		Device:     device.Name,
		Success:    true,
		Compliance: report,
	}
	if report.Compliant {
		result.Message = "compliant"
	} else {
		result.Message = fmt.Sprintf("%d of %d checks failed", len(report.Issues), report.ChecksTotal)
	}

	o.markSeen(ctx, device)
	return result
}
