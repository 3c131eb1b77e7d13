package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(storage.NewMemoryStore(), nil)
}

func addDevice(t *testing.T, svc *Service, name, host string) *types.Device {
	t.Helper()
	device := &types.Device{
		Name:       name,
		Host:       host,
		DeviceType: types.PlatformCiscoIOS,
		Username:   "admin",
		Password:   "secret",
	}
	if err := svc.Add(context.Background(), device); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return device
}

func TestServiceAddFillsDefaults(t *testing.T) {
	svc := newService(t)
	device := addDevice(t, svc, "core-sw-01", "192.0.2.1")

	if device.ID == "" {
		t.Error("expected generated id")
	}
	if device.Port != types.DefaultSSHPort {
		t.Errorf("expected default port, got %d", device.Port)
	}
	if device.Status != types.StatusUnknown {
		t.Errorf("expected unknown status, got %s", device.Status)
	}
	if device.CreatedAt.IsZero() || device.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestServiceAddValidates(t *testing.T) {
	svc := newService(t)

	err := svc.Add(context.Background(), &types.Device{Name: "bad", Host: "", DeviceType: types.PlatformCiscoIOS})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if neterrors.TypeOf(err) != neterrors.ErrorTypeValidation {
		t.Errorf("expected validation error type, got %v", err)
	}
}

func TestServiceAddDuplicateName(t *testing.T) {
	svc := newService(t)
	addDevice(t, svc, "core-sw-01", "192.0.2.1")

	err := svc.Add(context.Background(), &types.Device{
		Name:       "core-sw-01",
		Host:       "192.0.2.2",
		DeviceType: types.PlatformCiscoIOS,
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestServiceRemoveByName(t *testing.T) {
	svc := newService(t)
	addDevice(t, svc, "core-sw-01", "192.0.2.1")

	if err := svc.RemoveByName(context.Background(), "core-sw-01"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.GetByName(context.Background(), "core-sw-01"); !errors.Is(err, neterrors.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound after remove, got %v", err)
	}

	if err := svc.RemoveByName(context.Background(), "ghost"); !errors.Is(err, neterrors.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for absent device, got %v", err)
	}
}

func TestServiceMarkSeen(t *testing.T) {
	svc := newService(t)
	device := addDevice(t, svc, "core-sw-01", "192.0.2.1")

	at := time.Now().UTC().Truncate(time.Second)
	if err := svc.MarkSeen(context.Background(), device, at); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	got, err := svc.Get(context.Background(), device.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.StatusOnline {
		t.Errorf("expected online status, got %s", got.Status)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(at) {
		t.Errorf("expected last seen %v, got %v", at, got.LastSeen)
	}
}

func TestServiceResolve(t *testing.T) {
	svc := newService(t)
	addDevice(t, svc, "core-sw-01", "192.0.2.1")
	addDevice(t, svc, "core-sw-02", "192.0.2.2")
	addDevice(t, svc, "edge-rt-01", "192.0.2.3")

	tests := []struct {
		name      string
		input     []string
		wantNames []string
		wantErr   error
	}{
		{
			name:      "empty targets everything",
			input:     nil,
			wantNames: []string{"core-sw-01", "core-sw-02", "edge-rt-01"},
		},
		{
			name:      "all keyword targets everything",
			input:     []string{"all"},
			wantNames: []string{"core-sw-01", "core-sw-02", "edge-rt-01"},
		},
		{
			name:      "named subset keeps order",
			input:     []string{"edge-rt-01", "core-sw-01"},
			wantNames: []string{"edge-rt-01", "core-sw-01"},
		},
		{
			name:      "unknown names dropped",
			input:     []string{"core-sw-01", "ghost", "core-sw-02"},
			wantNames: []string{"core-sw-01", "core-sw-02"},
		},
		{
			name:      "duplicates collapsed",
			input:     []string{"core-sw-01", "core-sw-01"},
			wantNames: []string{"core-sw-01"},
		},
		{
			name:    "all unknown is an error",
			input:   []string{"ghost-1", "ghost-2"},
			wantErr: neterrors.ErrNoTargets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := svc.Resolve(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(devices) != len(tt.wantNames) {
				t.Fatalf("expected %d devices, got %d", len(tt.wantNames), len(devices))
			}
			for i, want := range tt.wantNames {
				if devices[i].Name != want {
					t.Errorf("device %d: expected %s, got %s", i, want, devices[i].Name)
				}
			}
		})
	}
}

func TestServiceResolveEmptyInventory(t *testing.T) {
	svc := newService(t)

	_, err := svc.Resolve(context.Background(), nil)
	if !errors.Is(err, neterrors.ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}
}
