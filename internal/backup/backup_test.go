package backup

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

func testDevice(name, host, deviceType string) *types.Device {
	return &types.Device{
		ID:         "dev-" + name,
		Name:       name,
		Host:       host,
		DeviceType: deviceType,
		Username:   "admin",
		Password:   "secret",
	}
}

func TestCaptureStoresSnapshot(t *testing.T) {
	mock := transport.NewMock()
	mock.RunningConfigs["192.0.2.1"] = "hostname core-sw-01\nip ssh version 2\nend\n"
	store := storage.NewMemoryStore()
	svc := NewService(mock, store, config.TransportConfig{}, nil)

	device := testDevice("core-sw-01", "192.0.2.1", types.PlatformCiscoIOS)
	snapshot, err := svc.Capture(context.Background(), device, "deploy-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if snapshot.ID == "" {
		t.Error("expected generated snapshot id")
	}
	if snapshot.DeviceID != "dev-core-sw-01" || snapshot.DeviceName != "core-sw-01" {
		t.Errorf("unexpected device fields: %+v", snapshot)
	}
	if snapshot.DeploymentID != "deploy-1" {
		t.Errorf("expected deployment id carried, got %q", snapshot.DeploymentID)
	}
	if snapshot.ContentHash != types.HashContent(snapshot.Content) {
		t.Error("hash does not match content")
	}

	stored, err := store.GetSnapshot(context.Background(), snapshot.ID)
	if err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	if !strings.Contains(stored.Content, "hostname core-sw-01") {
		t.Errorf("unexpected stored content: %q", stored.Content)
	}

	cmds := mock.Executes("192.0.2.1")
	if len(cmds) != 1 || cmds[0] != "show running-config" {
		t.Errorf("unexpected commands: %v", cmds)
	}
}

func TestCaptureUsesPlatformCommand(t *testing.T) {
	mock := transport.NewMock()
	store := storage.NewMemoryStore()
	svc := NewService(mock, store, config.TransportConfig{}, nil)

	device := testDevice("edge-fw-01", "192.0.2.5", types.PlatformJuniperJunos)
	if _, err := svc.Capture(context.Background(), device, ""); err != nil {
		t.Fatalf("capture: %v", err)
	}

	cmds := mock.Executes("192.0.2.5")
	if len(cmds) != 1 || cmds[0] != "show configuration" {
		t.Errorf("expected junos command, got %v", cmds)
	}
}

func TestCaptureTransportFailure(t *testing.T) {
	mock := transport.NewMock()
	mock.ExecuteErrs["192.0.2.1"] = errors.New("connection refused")
	store := storage.NewMemoryStore()
	svc := NewService(mock, store, config.TransportConfig{}, nil)

	device := testDevice("core-sw-01", "192.0.2.1", types.PlatformCiscoIOS)
	if _, err := svc.Capture(context.Background(), device, ""); err == nil {
		t.Fatal("expected transport error")
	}

	snapshots, err := store.ListSnapshotsByDevice(context.Background(), device.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("no snapshot should be saved on failure, got %d", len(snapshots))
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	snapshot := &types.ConfigSnapshot{
		DeviceName: "core sw/01",
		Content:    "hostname core-sw-01\nend\n",
		CreatedAt:  time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	path, err := WriteFile(dir, snapshot)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if !strings.HasSuffix(path, "core-sw-01_20250314-092653.cfg") {
		t.Errorf("unexpected file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != snapshot.Content {
		t.Errorf("content mismatch: %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}
