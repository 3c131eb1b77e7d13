package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Service manages the device inventory on top of a Store
type Service struct {
	store  storage.Store
	logger logger.Logger
}

// NewService creates an inventory service
func NewService(store storage.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{store: store, logger: log}
}

// Add registers a device, filling defaults and validating before the
// store sees it
func (s *Service) Add(ctx context.Context, device *types.Device) error {
	if device.Port == 0 {
		device.Port = types.DefaultSSHPort
	}
	if device.Status == "" {
		device.Status = types.StatusUnknown
	}
	if err := device.Validate(); err != nil {
		return neterrors.Wrap(neterrors.ErrorTypeValidation, "add device", err)
	}
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now

	if err := s.store.CreateDevice(ctx, device); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"device": device.Name,
		"host":   device.Host,
	}).Info("device registered")
	return nil
}

// Get fetches a device by id
func (s *Service) Get(ctx context.Context, id string) (*types.Device, error) {
	device, err := s.store.GetDevice(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", neterrors.ErrDeviceNotFound, id)
	}
	return device, err
}

// GetByName fetches a device by name
func (s *Service) GetByName(ctx context.Context, name string) (*types.Device, error) {
	device, err := s.store.GetDeviceByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", neterrors.ErrDeviceNotFound, name)
	}
	return device, err
}

// List returns all registered devices
func (s *Service) List(ctx context.Context) ([]*types.Device, error) {
	return s.store.ListDevices(ctx)
}

// Update validates and persists changes to a device
func (s *Service) Update(ctx context.Context, device *types.Device) error {
	if err := device.Validate(); err != nil {
		return neterrors.Wrap(neterrors.ErrorTypeValidation, "update device", err)
	}
	device.UpdatedAt = time.Now().UTC()
	return s.store.UpdateDevice(ctx, device)
}

// Remove deletes a device by id
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.store.DeleteDevice(ctx, id)
}

// RemoveByName deletes a device by name
func (s *Service) RemoveByName(ctx context.Context, name string) error {
	device, err := s.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.store.DeleteDevice(ctx, device.ID)
}

// MarkSeen records a successful contact with the device
func (s *Service) MarkSeen(ctx context.Context, device *types.Device, at time.Time) error {
	device.MarkSeen(at)
	return s.store.UpdateDevice(ctx, device)
}

// Resolve maps requested device names to inventory entries. An empty
// list or any "all" entry targets the whole inventory. Unknown names
// are dropped with a warning so one typo cannot sink a batch; an empty
// resolution returns ErrNoTargets before any device is contacted.
func (s *Service) Resolve(ctx context.Context, names []string) ([]*types.Device, error) {
	if wantsAll(names) {
		devices, err := s.store.ListDevices(ctx)
		if err != nil {
			return nil, neterrors.Wrap(neterrors.ErrorTypeResolution, "resolve", err)
		}
		if len(devices) == 0 {
			return nil, neterrors.ErrNoTargets
		}
		return devices, nil
	}

	seen := make(map[string]bool, len(names))
	var devices []*types.Device
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		device, err := s.store.GetDeviceByName(ctx, name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("skipping unknown device " + name)
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

func wantsAll(names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if name == "all" {
			return true
		}
	}
	return false
}
