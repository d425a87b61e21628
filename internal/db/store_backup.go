package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tessera-io/tessera/internal/models"
)

const backupColumns = `id, license_id, device_id, reason, snapshot, created_at`

// scanBackup scans one backup row.
func scanBackup(row pgx.Row) (*models.Backup, error) {
	var (
		b         models.Backup
		reasonStr string
		raw       []byte
	)
	err := row.Scan(&b.ID, &b.LicenseID, &b.DeviceID, &reasonStr, &raw, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Reason = models.BackupReason(reasonStr)
	b.Snapshot = raw
	return &b, nil
}

// CreateBackup inserts a backup record. Backups are append-only; there is no
// update or delete path.
func (db *DB) CreateBackup(ctx context.Context, backup *models.Backup) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO backups (id, license_id, device_id, reason, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, backup.ID, backup.LicenseID, backup.DeviceID, string(backup.Reason), []byte(backup.Snapshot), backup.CreatedAt)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	return nil
}

// GetBackupByID returns the backup with the given ID.
// Returns nil if no such backup exists.
func (db *DB) GetBackupByID(ctx context.Context, id uuid.UUID) (*models.Backup, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+backupColumns+`
		FROM backups
		WHERE id = $1
	`, id)

	b, err := scanBackup(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

// GetBackupsByDevice returns all backups for a device, newest first.
func (db *DB) GetBackupsByDevice(ctx context.Context, deviceID uuid.UUID) ([]*models.Backup, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+backupColumns+`
		FROM backups
		WHERE device_id = $1
		ORDER BY created_at DESC
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list backups by device: %w", err)
	}
	defer rows.Close()

	return collectBackups(rows)
}

// GetBackupsByLicense returns all backups for a license, newest first.
func (db *DB) GetBackupsByLicense(ctx context.Context, licenseID uuid.UUID) ([]*models.Backup, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+backupColumns+`
		FROM backups
		WHERE license_id = $1
		ORDER BY created_at DESC
	`, licenseID)
	if err != nil {
		return nil, fmt.Errorf("list backups by license: %w", err)
	}
	defer rows.Close()

	return collectBackups(rows)
}

func collectBackups(rows pgx.Rows) ([]*models.Backup, error) {
	var backups []*models.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return backups, nil
}
