package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tessera-io/tessera/internal/models"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

const deviceColumns = `id, device_id, license_id, device_info, fingerprint_history, status,
	first_seen_at, last_seen_at, last_validated_at, created_at, updated_at`

// scanDevice scans one device row.
func scanDevice(row pgx.Row) (*models.Device, error) {
	var (
		dev        models.Device
		statusStr  string
		historyRaw []byte
	)
	err := row.Scan(
		&dev.ID, &dev.DeviceID, &dev.LicenseID, &dev.DeviceInfo, &historyRaw, &statusStr,
		&dev.FirstSeenAt, &dev.LastSeenAt, &dev.LastValidatedAt, &dev.CreatedAt, &dev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	dev.Status = models.DeviceStatus(statusStr)
	if err := json.Unmarshal(historyRaw, &dev.FingerprintHistory); err != nil {
		return nil, fmt.Errorf("decode fingerprint history: %w", err)
	}
	return &dev, nil
}

// GetDeviceByDeviceID returns the device with the given external device ID.
// Returns nil if no such device exists.
func (db *DB) GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE device_id = $1
	`, deviceID)

	dev, err := scanDevice(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return dev, nil
}

// CreateDevice inserts a new device binding. A collision on the unique
// device_id index is returned as models.ErrDuplicateDevice so callers can
// resolve concurrent activations.
func (db *DB) CreateDevice(ctx context.Context, dev *models.Device) error {
	history, err := marshalHistory(dev.FingerprintHistory)
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO devices (id, device_id, license_id, device_info, fingerprint_history, status,
			first_seen_at, last_seen_at, last_validated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, dev.ID, dev.DeviceID, dev.LicenseID, dev.DeviceInfo, history, string(dev.Status),
		dev.FirstSeenAt, dev.LastSeenAt, dev.LastValidatedAt, dev.CreatedAt, dev.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateDevice
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

// marshalHistory encodes a fingerprint history for a jsonb column, storing
// an empty array rather than null for empty histories.
func marshalHistory(history []models.FingerprintRecord) ([]byte, error) {
	if history == nil {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode fingerprint history: %w", err)
	}
	return raw, nil
}

// UpdateDevice persists mutable device fields.
func (db *DB) UpdateDevice(ctx context.Context, dev *models.Device) error {
	history, err := marshalHistory(dev.FingerprintHistory)
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE devices
		SET device_info = $2, fingerprint_history = $3, status = $4,
			last_seen_at = $5, last_validated_at = $6, updated_at = $7
		WHERE id = $1
	`, dev.ID, dev.DeviceInfo, history, string(dev.Status),
		dev.LastSeenAt, dev.LastValidatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	return nil
}

// MutateDevice loads the device row under a row lock, applies fn, and
// persists the result in the same transaction. Concurrent mutations of the
// same device serialize on the lock, so capped fingerprint-history appends
// never interleave. Returns (nil, nil) when the device does not exist.
func (db *DB) MutateDevice(ctx context.Context, deviceID string, fn func(*models.Device) error) (*models.Device, error) {
	var dev *models.Device

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+deviceColumns+`
			FROM devices
			WHERE device_id = $1
			FOR UPDATE
		`, deviceID)

		loaded, err := scanDevice(row)
		if err == pgx.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock device: %w", err)
		}

		if err := fn(loaded); err != nil {
			return err
		}

		history, err := marshalHistory(loaded.FingerprintHistory)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE devices
			SET device_info = $2, fingerprint_history = $3, status = $4,
				last_seen_at = $5, last_validated_at = $6, updated_at = $7
			WHERE id = $1
		`, loaded.ID, loaded.DeviceInfo, history, string(loaded.Status),
			loaded.LastSeenAt, loaded.LastValidatedAt, time.Now())
		if err != nil {
			return fmt.Errorf("persist device mutation: %w", err)
		}

		dev = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// CountDevicesByStatus returns device counts grouped by status.
func (db *DB) CountDevicesByStatus(ctx context.Context) (map[models.DeviceStatus]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM devices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count devices by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DeviceStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan device count: %w", err)
		}
		counts[models.DeviceStatus(status)] = count
	}
	return counts, rows.Err()
}
