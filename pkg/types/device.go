package types

import (
	"errors"
	"strings"
	"time"
)

// DeviceStatus represents the last known reachability of a device
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusUnknown DeviceStatus = "unknown"
)

// Supported device platforms. The platform selects the transport dialect
// (show command, config push behavior) and the validation rules.
const (
	PlatformCiscoIOS     = "cisco_ios"
	PlatformCiscoNXOS    = "cisco_nxos"
	PlatformJuniperJunos = "juniper_junos"
	PlatformAristaEOS    = "arista_eos"
)

// DefaultSSHPort is used when a device is registered without an explicit port
const DefaultSSHPort = 22

// Device represents a managed network device in the inventory
type Device struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Host       string       `json:"host"`
	DeviceType string       `json:"device_type"`
	Port       int          `json:"port"`
	Username   string       `json:"username"`
	Password   string       `json:"-"`
	Status     DeviceStatus `json:"status"`
	LastSeen   *time.Time   `json:"last_seen,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// KnownPlatforms lists the device types the transport layer understands
func KnownPlatforms() []string {
	return []string{PlatformCiscoIOS, PlatformCiscoNXOS, PlatformJuniperJunos, PlatformAristaEOS}
}

// IsKnownPlatform reports whether deviceType maps to a supported dialect
func IsKnownPlatform(deviceType string) bool {
	for _, p := range KnownPlatforms() {
		if p == deviceType {
			return true
		}
	}
	return false
}

// Validate checks that the device has everything needed to open a session
func (d *Device) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("device name is required")
	}
	if strings.TrimSpace(d.Host) == "" {
		return errors.New("device host is required")
	}
	if strings.TrimSpace(d.DeviceType) == "" {
		return errors.New("device type is required")
	}
	if !IsKnownPlatform(d.DeviceType) {
		return errors.New("unsupported device type " + d.DeviceType)
	}
	if d.Port < 0 || d.Port > 65535 {
		return errors.New("device port out of range")
	}
	return nil
}

// MarkSeen records a successful contact with the device
func (d *Device) MarkSeen(at time.Time) {
	d.Status = StatusOnline
	d.LastSeen = &at
	d.UpdatedAt = at
}

// String returns a short human-readable identity for log lines
func (d *Device) String() string {
	return d.Name + " (" + d.Host + ", " + d.DeviceType + ")"
}
