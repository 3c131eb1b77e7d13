package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// PostgresStore persists to PostgreSQL through a pgx connection pool.
// Intended for shared deployments where several operators and the API
// server hit the same inventory.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	host        TEXT NOT NULL,
	device_type TEXT NOT NULL,
	port        INTEGER NOT NULL DEFAULT 22,
	username    TEXT NOT NULL DEFAULT '',
	password    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'unknown',
	last_seen   TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	device_id     TEXT NOT NULL,
	device_name   TEXT NOT NULL DEFAULT '',
	deployment_id TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	applied       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_deployment ON snapshots(deployment_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_device ON snapshots(device_id);

CREATE TABLE IF NOT EXISTS deployments (
	deployment_id TEXT PRIMARY KEY,
	operation     TEXT NOT NULL,
	template      TEXT NOT NULL DEFAULT '',
	devices       JSONB NOT NULL DEFAULT '[]',
	variables     JSONB NOT NULL DEFAULT '{}',
	results       JSONB NOT NULL DEFAULT '[]',
	success_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// NewPostgresStore connects to the database at dsn and ensures the
// schema exists
func NewPostgresStore(ctx context.Context, dsn string, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.NewNop()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, logger: log}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// Close shuts down the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateDevice inserts a new device
func (s *PostgresStore) CreateDevice(ctx context.Context, device *types.Device) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		device.ID, device.Name, device.Host, device.DeviceType, device.Port,
		device.Username, device.Password, string(device.Status),
		device.LastSeen, device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

// GetDevice fetches a device by id
func (s *PostgresStore) GetDevice(ctx context.Context, id string) (*types.Device, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices WHERE id = $1`, id)
	return scanPgDevice(row)
}

// GetDeviceByName fetches a device by its unique name
func (s *PostgresStore) GetDeviceByName(ctx context.Context, name string) (*types.Device, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices WHERE name = $1`, name)
	return scanPgDevice(row)
}

// ListDevices returns all devices ordered by name
func (s *PostgresStore) ListDevices(ctx context.Context) ([]*types.Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, host, device_type, port, username, password, status, last_seen, created_at, updated_at
		FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*types.Device
	for rows.Next() {
		device, err := scanPgDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// UpdateDevice rewrites a device row
func (s *PostgresStore) UpdateDevice(ctx context.Context, device *types.Device) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET name = $1, host = $2, device_type = $3, port = $4, username = $5, password = $6, status = $7, last_seen = $8, updated_at = $9
		WHERE id = $10`,
		device.Name, device.Host, device.DeviceType, device.Port,
		device.Username, device.Password, string(device.Status),
		device.LastSeen, device.UpdatedAt, device.ID,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrConflict)
		}
		return fmt.Errorf("update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", device.ID, ErrNotFound)
	}
	return nil
}

// DeleteDevice removes a device by id
func (s *PostgresStore) DeleteDevice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveSnapshot inserts a configuration snapshot
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot *types.ConfigSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (id, device_id, device_name, deployment_id, content, content_hash, applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snapshot.ID, snapshot.DeviceID, snapshot.DeviceName, snapshot.DeploymentID,
		snapshot.Content, snapshot.ContentHash, snapshot.Applied, snapshot.CreatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("snapshot %s: %w", snapshot.ID, ErrConflict)
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot fetches a snapshot by id
func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*types.ConfigSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE id = $1`, id)
	return scanPgSnapshot(row)
}

// ListSnapshotsByDeployment returns the snapshots taken during one
// deployment, oldest first
func (s *PostgresStore) ListSnapshotsByDeployment(ctx context.Context, deploymentID string) ([]*types.ConfigSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE deployment_id = $1 ORDER BY created_at`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return collectPgSnapshots(rows)
}

// ListSnapshotsByDevice returns a device's snapshots, newest first
func (s *PostgresStore) ListSnapshotsByDevice(ctx context.Context, deviceID string, limit int) ([]*types.ConfigSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, device_name, deployment_id, content, content_hash, applied, created_at
		FROM snapshots WHERE device_id = $1 ORDER BY created_at DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return collectPgSnapshots(rows)
}

// SaveDeploymentRecord inserts a deployment history entry
func (s *PostgresStore) SaveDeploymentRecord(ctx context.Context, record *types.DeploymentRecord) error {
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO deployments (deployment_id, operation, template, devices, variables, results, success_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.DeploymentID, record.Operation, record.Template,
		devices, variables, results,
		record.SuccessRate, record.CreatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("deployment %s: %w", record.DeploymentID, ErrConflict)
		}
		return fmt.Errorf("save deployment record: %w", err)
	}
	return nil
}

// GetDeploymentRecord fetches one history entry
func (s *PostgresStore) GetDeploymentRecord(ctx context.Context, deploymentID string) (*types.DeploymentRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT deployment_id, operation, template, devices, variables, results, success_rate, created_at
		FROM deployments WHERE deployment_id = $1`, deploymentID)
	return scanPgDeploymentRecord(row)
}

// ListDeploymentRecords returns history entries, newest first
func (s *PostgresStore) ListDeploymentRecords(ctx context.Context, limit int) ([]*types.DeploymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT deployment_id, operation, template, devices, variables, results, success_rate, created_at
		FROM deployments ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployment records: %w", err)
	}
	defer rows.Close()

	var records []*types.DeploymentRecord
	for rows.Next() {
		record, err := scanPgDeploymentRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanPgDevice(row pgx.Row) (*types.Device, error) {
	var device types.Device
	var status string
	var lastSeen *time.Time

	err := row.Scan(
		&device.ID, &device.Name, &device.Host, &device.DeviceType, &device.Port,
		&device.Username, &device.Password, &status, &lastSeen,
		&device.CreatedAt, &device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("device: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}

	device.Status = types.DeviceStatus(status)
	device.LastSeen = lastSeen
	return &device, nil
}

func scanPgSnapshot(row pgx.Row) (*types.ConfigSnapshot, error) {
	var snapshot types.ConfigSnapshot
	err := row.Scan(
		&snapshot.ID, &snapshot.DeviceID, &snapshot.DeviceName, &snapshot.DeploymentID,
		&snapshot.Content, &snapshot.ContentHash, &snapshot.Applied, &snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("snapshot: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return &snapshot, nil
}

func collectPgSnapshots(rows pgx.Rows) ([]*types.ConfigSnapshot, error) {
	var snapshots []*types.ConfigSnapshot
	for rows.Next() {
		snapshot, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func scanPgDeploymentRecord(row pgx.Row) (*types.DeploymentRecord, error) {
	var record types.DeploymentRecord
	var devices, variables, results []byte

	err := row.Scan(
		&record.DeploymentID, &record.Operation, &record.Template,
		&devices, &variables, &results,
		&record.SuccessRate, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("deployment record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan deployment record: %w", err)
	}

	if err := json.Unmarshal(devices, &record.Devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	if err := json.Unmarshal(variables, &record.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	if err := json.Unmarshal(results, &record.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &record, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
