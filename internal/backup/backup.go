package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Service captures device configurations into content-addressed
// snapshots, optionally mirrored to flat files.
type Service struct {
	gateway      transport.Gateway
	store        storage.Store
	transportCfg config.TransportConfig
	logger       logger.Logger
}

// NewService creates a backup service
func NewService(gateway transport.Gateway, store storage.Store, transportCfg config.TransportConfig, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		gateway:      gateway,
		store:        store,
		transportCfg: transportCfg,
		logger:       log,
	}
}

// Capture fetches the running configuration and persists it as a
// snapshot. deploymentID ties the snapshot to a deployment; leave it
// empty for ad-hoc backups.
func (s *Service) Capture(ctx context.Context, device *types.Device, deploymentID string) (*types.ConfigSnapshot, error) {
	params := transport.ParamsForDevice(device, s.transportCfg)
	command := transport.ShowRunningCommand(device.DeviceType)

	content, err := s.gateway.Execute(ctx, params, command)
	if err != nil {
		return nil, err
	}

	snapshot := &types.ConfigSnapshot{
		ID:           uuid.NewString(),
		DeviceID:     device.ID,
		DeviceName:   device.Name,
		DeploymentID: deploymentID,
		Content:      content,
		ContentHash:  types.HashContent(content),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypePersistence, "save snapshot", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"device":   device.Name,
		"snapshot": snapshot.ID,
		"bytes":    len(content),
	}).Info("configuration captured")

	return snapshot, nil
}

// WriteFile mirrors a snapshot to dir as <device>_<timestamp>.cfg and
// returns the file path. Config files carry credentials in cleartext,
// so they are written owner-readable only.
func WriteFile(dir string, snapshot *types.ConfigSnapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.cfg",
		sanitizeName(snapshot.DeviceName),
		snapshot.CreatedAt.Format("20060102-150405"),
	)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(snapshot.Content), 0o600); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	return path, nil
}

// sanitizeName makes a device name safe to use as a file name
func sanitizeName(name string) string {
	if name == "" {
		return "device"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
