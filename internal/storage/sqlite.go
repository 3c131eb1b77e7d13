package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// SQLiteStore persists everything in a single SQLite file. It is the
// default backend; a fresh database is initialized on first open.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	host        TEXT NOT NULL,
	device_type TEXT NOT NULL,
	port        INTEGER NOT NULL DEFAULT 22,
	username    TEXT NOT NULL DEFAULT '',
	password    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'unknown',
	last_seen   TIMESTAMP,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	device_id     TEXT NOT NULL,
	device_name   TEXT NOT NULL DEFAULT '',
	deployment_id TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	applied       INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_deployment ON snapshots(deployment_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_device ON snapshots(device_id);

CREATE TABLE IF NOT EXISTS deployments (
	deployment_id TEXT PRIMARY KEY,
	operation     TEXT NOT NULL,
	template      TEXT NOT NULL DEFAULT '',
	devices       TEXT NOT NULL DEFAULT '[]',
	variables     TEXT NOT NULL DEFAULT '{}',
	results       TEXT NOT NULL DEFAULT '[]',
	success_rate  REAL NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
`

// NewSQLiteStore opens (and if needed creates) the database at path
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// single writer; also keeps :memory: databases from splitting
	// across pooled connections
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, logger: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateDevice inserts a new device
func (s *SQLiteStore) CreateDevice(ctx context.Context, device *types.Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, device.Host, device.DeviceType, device.Port,
		device.Username, device.Password, string(device.Status),
		nullTime(device.LastSeen), device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

// GetDevice fetches a device by id
func (s *SQLiteStore) GetDevice(ctx context.Context, id string) (*types.Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices WHERE id = ?`, id)
	return scanDevice(row)
}

// GetDeviceByName fetches a device by its unique name
func (s *SQLiteStore) GetDeviceByName(ctx context.Context, name string) (*types.Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices WHERE name = ?`, name)
	return scanDevice(row)
}

// ListDevices returns all devices ordered by name
func (s *SQLiteStore) ListDevices(ctx context.Context) ([]*types.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*types.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// UpdateDevice rewrites a device row
func (s *SQLiteStore) UpdateDevice(ctx context.Context, device *types.Device) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, host = ?, device_type = ?, port = ?, username = ?, password = ?, status = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`,
		device.Name, device.Host, device.DeviceType, device.Port,
		device.Username, device.Password, string(device.Status),
		nullTime(device.LastSeen), device.UpdatedAt, device.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
		return fmt.Errorf("update device: %w", err)
	}
	return requireRow(result, device.ID)
}

// DeleteDevice removes a device by id
func (s *SQLiteStore) DeleteDevice(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return requireRow(result, id)
}

// SaveSnapshot inserts a configuration snapshot
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *types.ConfigSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, device_id, device_name, deployment_id, content, content_hash, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.DeviceID, snapshot.DeviceName, snapshot.DeploymentID,
		snapshot.Content, snapshot.ContentHash, snapshot.Applied, snapshot.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %s: %w", snapshot.ID, ErrConflict)
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot fetches a snapshot by id
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*types.ConfigSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// ListSnapshotsByDeployment returns the snapshots taken during one
// deployment, oldest first
func (s *SQLiteStore) ListSnapshotsByDeployment(ctx context.Context, deploymentID string) ([]*types.ConfigSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE deployment_id = ? ORDER BY created_at`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// ListSnapshotsByDevice returns a device's snapshots, newest first
func (s *SQLiteStore) ListSnapshotsByDevice(ctx context.Context, deviceID string, limit int) ([]*types.ConfigSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE device_id = ? ORDER BY created_at DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// SaveDeploymentRecord inserts a deployment history entry
func (s *SQLiteStore) SaveDeploymentRecord(ctx context.Context, record *types.DeploymentRecord) error {
	devices, err := json.Marshal(record.Devices)
	if err != nil {
		return fmt.Errorf("encode devices: %w", err)
	}
	variables, err := json.Marshal(record.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deployments (deployment_id, operation, template, devices, variables, results, success_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.DeploymentID, record.Operation, record.Template,
		string(devices), string(variables), string(results),
		record.SuccessRate, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("deployment %s: %w", record.DeploymentID, ErrConflict)
		}
		return fmt.Errorf("save deployment record: %w", err)
	}
	return nil
}

// GetDeploymentRecord fetches one history entry
func (s *SQLiteStore) GetDeploymentRecord(ctx context.Context, deploymentID string) (*types.DeploymentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT deployment_id, operation, template, devices, variables, results, success_rate, created_at
		FROM deployments WHERE deployment_id = ?`, deploymentID)
	return scanDeploymentRecord(row)
}

// ListDeploymentRecords returns history entries, newest first
func (s *SQLiteStore) ListDeploymentRecords(ctx context.Context, limit int) ([]*types.DeploymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT deployment_id, operation, template, devices, variables, results, success_rate, created_at
		FROM deployments ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployment records: %w", err)
	}
	defer rows.Close()

	var records []*types.DeploymentRecord
	for rows.Next() {
		record, err := scanDeploymentRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*types.Device, error) {
	var device types.Device
	var status string
	var lastSeen sql.NullTime

	err := row.Scan(
		&device.ID, &device.Name, &device.Host, &device.DeviceType, &device.Port,
		&device.Username, &device.Password, &status, &lastSeen,
		&device.CreatedAt, &device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}

	device.Status = types.DeviceStatus(status)
	if lastSeen.Valid {
		t := lastSeen.Time
		device.LastSeen = &t
	}
	return &device, nil
}

func scanSnapshot(row rowScanner) (*types.ConfigSnapshot, error) {
	var snapshot types.ConfigSnapshot
	err := row.Scan(
		&snapshot.ID, &snapshot.DeviceID, &snapshot.DeviceName, &snapshot.DeploymentID,
		&snapshot.Content, &snapshot.ContentHash, &snapshot.Applied, &snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return &snapshot, nil
}

func collectSnapshots(rows *sql.Rows) ([]*types.ConfigSnapshot, error) {
	var snapshots []*types.ConfigSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func scanDeploymentRecord(row rowScanner) (*types.DeploymentRecord, error) {
	var record types.DeploymentRecord
	var devices, variables, results string

	err := row.Scan(
		&record.DeploymentID, &record.Operation, &record.Template,
		&devices, &variables, &results,
		&record.SuccessRate, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deployment record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan deployment record: %w", err)
	}

	if err := json.Unmarshal([]byte(devices), &record.Devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	if err := json.Unmarshal([]byte(variables), &record.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &record.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &record, nil
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
