package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ConfigSnapshot is a point-in-time capture of one device's configuration.
// Snapshots are immutable once written: deploys record what they pushed,
// backups record what was running before a change.
type ConfigSnapshot struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name,omitempty"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	Content      string    `json:"content"`
	ContentHash  string    `json:"content_hash"`
	Applied      bool      `json:"applied"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashContent returns the hex SHA-256 digest of a configuration text.
// The hash depends on the text alone, so identical configs always hash
// identically and any textual change produces a different digest.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Validate checks that the snapshot is complete enough to persist
func (s *ConfigSnapshot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("snapshot ID is required")
	}
	if strings.TrimSpace(s.DeviceID) == "" {
		return errors.New("snapshot device ID is required")
	}
	if s.Content == "" {
		return errors.New("snapshot content is empty")
	}
	if s.ContentHash != HashContent(s.Content) {
		return errors.New("snapshot content hash does not match content")
	}
	return nil
}

// IsAdHoc reports whether the snapshot was taken outside any deployment
func (s *ConfigSnapshot) IsAdHoc() bool {
	return s.DeploymentID == ""
}
