package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// deviceTask runs one device's share of a batch and reports its
// outcome. Implementations must never panic the batch; runDevice
// converts panics into failure outcomes.
type deviceTask func(ctx context.Context, device *types.Device) types.DeviceResult

// runBatch executes task against every device under the worker pool
// ceiling. Results are written into a pre-sized slice by target index,
// so the aggregate order always matches the target list regardless of
// completion order.
func (o *Orchestrator) runBatch(ctx context.Context, operation string, devices []*types.Device, task deviceTask) []types.DeviceResult {
	results := make([]types.DeviceResult, len(devices))
	var wg sync.WaitGroup

	for i, device := range devices {
		wg.Add(1)
		go func(idx int, device *types.Device) {
			defer wg.Done()

			// Acquire a worker from the pool
			select {
			case <-o.workerPool:
			case <-ctx.Done():
				results[idx] = types.DeviceResult{
					Device:    device.Name,
					Error:     ctx.Err().Error(),
					Timestamp: time.Now().UTC(),
				}
				return
			}
			defer func() { o.workerPool <- struct{}{} }()

			o.metrics.WorkerStarted()
			defer o.metrics.WorkerFinished()

			results[idx] = o.runDevice(ctx, operation, device, task)
		}(i, device)
	}

	wg.Wait()
	return results
}

// runDevice executes one worker with panic isolation. A fault in one
// device's worker becomes that device's failure outcome and nothing
// more.
func (o *Orchestrator) runDevice(ctx context.Context, operation string, device *types.Device, task deviceTask) (result types.DeviceResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("device worker fault", fmt.Errorf("%s: %v", device.Name, r))
			result = types.DeviceResult{
				Device: device.Name,
				Error:  fmt.Sprintf("worker fault: %v", r),
			}
		}
		result.DurationMs = time.Since(start).Milliseconds()
		result.Timestamp = time.Now().UTC()
		o.metrics.ObserveDeviceOperation(operation, result.Success)
	}()

	return task(ctx, device)
}

// lockRegistry serializes mutating operations per device within this
// process. Deploy and rollback take the lock; read-only operations
// (backup, compliance) do not.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the named device's mutex and returns its release func
func (r *lockRegistry) lock(device string) func() {
	r.mu.Lock()
	m, ok := r.locks[device]
	if !ok {
		m = &sync.Mutex{}
		r.locks[device] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
