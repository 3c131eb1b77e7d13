package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrConflict is returned when a write collides with an existing
// resource, such as a duplicate device name.
var ErrConflict = errors.New("resource already exists")

// Store defines the interface for persisting devices, configuration
// snapshots, and deployment history
type Store interface {
	// Device operations
	CreateDevice(ctx context.Context, device *types.Device) error
	GetDevice(ctx context.Context, id string) (*types.Device, error)
	GetDeviceByName(ctx context.Context, name string) (*types.Device, error)
	ListDevices(ctx context.Context) ([]*types.Device, error)
	UpdateDevice(ctx context.Context, device *types.Device) error
	DeleteDevice(ctx context.Context, id string) error

	// Snapshot operations
	SaveSnapshot(ctx context.Context, snapshot *types.ConfigSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*types.ConfigSnapshot, error)
	ListSnapshotsByDeployment(ctx context.Context, deploymentID string) ([]*types.ConfigSnapshot, error)
	ListSnapshotsByDevice(ctx context.Context, deviceID string, limit int) ([]*types.ConfigSnapshot, error)

	// Deployment history operations
	SaveDeploymentRecord(ctx context.Context, record *types.DeploymentRecord) error
	GetDeploymentRecord(ctx context.Context, deploymentID string) (*types.DeploymentRecord, error)
	ListDeploymentRecords(ctx context.Context, limit int) ([]*types.DeploymentRecord, error)

	Close() error
}

// New creates the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path, log)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
