package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// MemoryStore keeps everything in process memory. Used by tests and
// for throwaway runs; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	devices     map[string]types.Device
	snapshots   map[string]types.ConfigSnapshot
	deployments map[string]types.DeploymentRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:     make(map[string]types.Device),
		snapshots:   make(map[string]types.ConfigSnapshot),
		deployments: make(map[string]types.DeploymentRecord),
	}
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// CreateDevice inserts a new device
func (s *MemoryStore) CreateDevice(ctx context.Context, device *types.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[device.ID]; ok {
		return fmt.Errorf("device %s: %w", device.ID, ErrConflict)
	}
	for _, existing := range s.devices {
		if existing.Name == device.Name {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
	}

	s.devices[device.ID] = cloneDevice(device)
	return nil
}

// GetDevice fetches a device by id
func (s *MemoryStore) GetDevice(ctx context.Context, id string) (*types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("device: %w", ErrNotFound)
	}
	out := cloneDevice(&device)
	return &out, nil
}

// GetDeviceByName fetches a device by its unique name
func (s *MemoryStore) GetDeviceByName(ctx context.Context, name string) (*types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, device := range s.devices {
		if device.Name == name {
			out := cloneDevice(&device)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("device: %w", ErrNotFound)
}

// ListDevices returns all devices ordered by name
func (s *MemoryStore) ListDevices(ctx context.Context) ([]*types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*types.Device, 0, len(s.devices))
	for _, device := range s.devices {
		out := cloneDevice(&device)
		devices = append(devices, &out)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// UpdateDevice rewrites a stored device
func (s *MemoryStore) UpdateDevice(ctx context.Context, device *types.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[device.ID]; !ok {
		return fmt.Errorf("%s: %w", device.ID, ErrNotFound)
	}
	for id, existing := range s.devices {
		if id != device.ID && existing.Name == device.Name {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
	}

	s.devices[device.ID] = cloneDevice(device)
	return nil
}

// DeleteDevice removes a device by id
func (s *MemoryStore) DeleteDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.devices, id)
	return nil
}

// SaveSnapshot inserts a configuration snapshot
func (s *MemoryStore) SaveSnapshot(ctx context.Context, snapshot *types.ConfigSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[snapshot.ID]; ok {
		return fmt.Errorf("snapshot %s: %w", snapshot.ID, ErrConflict)
	}
	s.snapshots[snapshot.ID] = *snapshot
	return nil
}

// GetSnapshot fetches a snapshot by id
func (s *MemoryStore) GetSnapshot(ctx context.Context, id string) (*types.ConfigSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("snapshot: %w", ErrNotFound)
	}
	out := snapshot
	return &out, nil
}

// ListSnapshotsByDeployment returns the snapshots taken during one
// deployment, oldest first
func (s *MemoryStore) ListSnapshotsByDeployment(ctx context.Context, deploymentID string) ([]*types.ConfigSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshots []*types.ConfigSnapshot
	for _, snapshot := range s.snapshots {
		if snapshot.DeploymentID == deploymentID {
			out := snapshot
			snapshots = append(snapshots, &out)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// ListSnapshotsByDevice returns a device's snapshots, newest first
func (s *MemoryStore) ListSnapshotsByDevice(ctx context.Context, deviceID string, limit int) ([]*types.ConfigSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var snapshots []*types.ConfigSnapshot
	for _, snapshot := range s.snapshots {
		if snapshot.DeviceID == deviceID {
			out := snapshot
			snapshots = append(snapshots, &out)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	if len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}

// SaveDeploymentRecord inserts a deployment history entry
func (s *MemoryStore) SaveDeploymentRecord(ctx context.Context, record *types.DeploymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[record.DeploymentID]; ok {
		return fmt.Errorf("deployment %s: %w", record.DeploymentID, ErrConflict)
	}
	s.deployments[record.DeploymentID] = cloneRecord(record)
	return nil
}

// GetDeploymentRecord fetches one history entry
func (s *MemoryStore) GetDeploymentRecord(ctx context.Context, deploymentID string) (*types.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.deployments[deploymentID]
	if !ok {
		return nil, fmt.Errorf("deployment record: %w", ErrNotFound)
	}
	out := cloneRecord(&record)
	return &out, nil
}

// ListDeploymentRecords returns history entries, newest first
func (s *MemoryStore) ListDeploymentRecords(ctx context.Context, limit int) ([]*types.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	records := make([]*types.DeploymentRecord, 0, len(s.deployments))
	for _, record := range s.deployments {
		out := cloneRecord(&record)
		records = append(records, &out)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// cloneDevice copies a device so callers cannot mutate stored state
func cloneDevice(device *types.Device) types.Device {
	out := *device
	if device.LastSeen != nil {
		t := *device.LastSeen
		out.LastSeen = &t
	}
	return out
}

// cloneRecord copies a record including its slices and maps
func cloneRecord(record *types.DeploymentRecord) types.DeploymentRecord {
	out := *record
	out.Devices = append([]string(nil), record.Devices...)
	out.Results = append([]types.DeviceResult(nil), record.Results...)
	if record.Variables != nil {
		out.Variables = make(map[string]string, len(record.Variables))
		for k, v := range record.Variables {
			out.Variables[k] = v
		}
	}
	return out
}
