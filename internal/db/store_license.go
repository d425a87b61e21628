package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tessera-io/tessera/internal/models"
)

const licenseColumns = `id, license_key, type, status, expiry_date, max_users, features,
	issued_to, company_name, issued_at, last_check, created_at, updated_at`

// scanLicense scans one license row.
func scanLicense(row pgx.Row) (*models.License, error) {
	var (
		lic         models.License
		typeStr     string
		statusStr   string
		featuresRaw []byte
		companyName *string
	)
	err := row.Scan(
		&lic.ID, &lic.LicenseKey, &typeStr, &statusStr, &lic.ExpiryDate, &lic.MaxUsers, &featuresRaw,
		&lic.IssuedTo, &companyName, &lic.IssuedAt, &lic.LastCheck, &lic.CreatedAt, &lic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lic.Type = models.LicenseType(typeStr)
	lic.Status = models.LicenseStatus(statusStr)
	if companyName != nil {
		lic.CompanyName = *companyName
	}
	if err := json.Unmarshal(featuresRaw, &lic.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &lic, nil
}

// GetLicenseByKey returns the license with the given key.
// Returns nil if no such license exists.
func (db *DB) GetLicenseByKey(ctx context.Context, licenseKey string) (*models.License, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+licenseColumns+`
		FROM licenses
		WHERE license_key = $1
	`, licenseKey)

	lic, err := scanLicense(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license by key: %w", err)
	}
	return lic, nil
}

// GetLicenseByID returns the license with the given ID.
// Returns nil if no such license exists.
func (db *DB) GetLicenseByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+licenseColumns+`
		FROM licenses
		WHERE id = $1
	`, id)

	lic, err := scanLicense(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license by ID: %w", err)
	}
	return lic, nil
}

// CreateLicense inserts a new license.
func (db *DB) CreateLicense(ctx context.Context, lic *models.License) error {
	features, err := json.Marshal(lic.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO licenses (id, license_key, type, status, expiry_date, max_users, features,
			issued_to, company_name, issued_at, last_check, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, lic.ID, lic.LicenseKey, string(lic.Type), string(lic.Status), lic.ExpiryDate, lic.MaxUsers, features,
		lic.IssuedTo, nullIfEmpty(lic.CompanyName), lic.IssuedAt, lic.LastCheck, lic.CreatedAt, lic.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

// UpdateLicense persists mutable license fields.
func (db *DB) UpdateLicense(ctx context.Context, lic *models.License) error {
	features, err := json.Marshal(lic.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE licenses
		SET type = $2, status = $3, expiry_date = $4, max_users = $5, features = $6,
			issued_to = $7, company_name = $8, last_check = $9, updated_at = $10
		WHERE id = $1
	`, lic.ID, string(lic.Type), string(lic.Status), lic.ExpiryDate, lic.MaxUsers, features,
		lic.IssuedTo, nullIfEmpty(lic.CompanyName), lic.LastCheck, time.Now())
	if err != nil {
		return fmt.Errorf("update license: %w", err)
	}
	return nil
}

// nullIfEmpty maps an empty string to NULL for nullable text columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CountLicensesByStatus returns license counts grouped by status.
func (db *DB) CountLicensesByStatus(ctx context.Context) (map[models.LicenseStatus]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM licenses GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count licenses by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.LicenseStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan license count: %w", err)
		}
		counts[models.LicenseStatus(status)] = count
	}
	return counts, rows.Err()
}
