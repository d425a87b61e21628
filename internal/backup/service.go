// Package backup provides immutable snapshotting and audit-safe restore of
// license and device state.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/policy"
)

// Store defines the persistence operations the backup service needs.
// Lookup methods return (nil, nil) when the entity does not exist.
type Store interface {
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	GetLicenseByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	UpdateLicense(ctx context.Context, lic *models.License) error
	UpdateDevice(ctx context.Context, dev *models.Device) error
	CreateDevice(ctx context.Context, dev *models.Device) error
	CreateBackup(ctx context.Context, backup *models.Backup) error
	GetBackupByID(ctx context.Context, id uuid.UUID) (*models.Backup, error)
	GetBackupsByDevice(ctx context.Context, deviceID uuid.UUID) ([]*models.Backup, error)
	GetBackupsByLicense(ctx context.Context, licenseID uuid.UUID) ([]*models.Backup, error)
}

// Service captures reason-tagged snapshots of license plus device state and
// restores them. Every restore first snapshots the current state with reason
// before_restore, so restores form a reversible chain.
type Service struct {
	store    Store
	policies policy.Provider
	logger   zerolog.Logger
}

// NewService creates a new backup Service.
func NewService(store Store, policies policy.Provider, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		policies: policies,
		logger:   logger.With().Str("component", "backup_service").Logger(),
	}
}

// Create captures a snapshot of the device and its license and persists it
// under the given reason. Returns the new backup's ID.
func (s *Service) Create(ctx context.Context, deviceID string, reason models.BackupReason) (uuid.UUID, error) {
	if deviceID == "" {
		return uuid.Nil, licensing.ErrInvalidInput.WithDetail("field", "deviceId")
	}
	if !reason.IsRequestable() {
		return uuid.Nil, licensing.ErrInvalidReason.WithDetail("reason", string(reason))
	}

	dev, lic, err := s.loadPair(ctx, deviceID)
	if err != nil {
		return uuid.Nil, err
	}

	backup, err := s.capture(ctx, lic, dev, reason)
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info().
		Str("backup_id", backup.ID.String()).
		Str("device_id", deviceID).
		Str("reason", string(reason)).
		Msg("backup created")

	return backup.ID, nil
}

// List returns backup metadata for a device or a license. Previews are best
// effort: a backup whose payload no longer decodes still lists, without one.
func (s *Service) List(ctx context.Context, deviceID string, licenseID uuid.UUID) ([]models.BackupInfo, error) {
	var (
		backups []*models.Backup
		err     error
	)

	switch {
	case deviceID != "":
		dev, devErr := s.store.GetDeviceByDeviceID(ctx, deviceID)
		if devErr != nil {
			return nil, fmt.Errorf("get device: %w", devErr)
		}
		if dev == nil {
			return nil, licensing.ErrDeviceNotFound.WithDetail("deviceId", deviceID)
		}
		backups, err = s.store.GetBackupsByDevice(ctx, dev.ID)
	case licenseID != uuid.Nil:
		backups, err = s.store.GetBackupsByLicense(ctx, licenseID)
	default:
		return nil, licensing.ErrInvalidInput.WithDetail("field", "deviceId|licenseId")
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	infos := make([]models.BackupInfo, 0, len(backups))
	for _, b := range backups {
		infos = append(infos, b.Info())
	}
	return infos, nil
}

// Restore rolls license and device state back to the given backup. The
// current state is always captured as a before_restore snapshot prior to any
// mutation, making the restore itself reversible.
func (s *Service) Restore(ctx context.Context, backupID uuid.UUID) (*licensing.LicenseView, error) {
	if backupID == uuid.Nil {
		return nil, licensing.ErrInvalidInput.WithDetail("field", "backupId")
	}

	backup, err := s.store.GetBackupByID(ctx, backupID)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	if backup == nil {
		return nil, licensing.ErrBackupNotFound.WithDetail("backupId", backupID.String())
	}

	payload, err := decodePayload(backup.Snapshot)
	if err != nil {
		return nil, err
	}

	lic, err := s.store.GetLicenseByID(ctx, backup.LicenseID)
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	if lic == nil {
		return nil, fmt.Errorf("backup %s references missing license %s", backupID, backup.LicenseID)
	}

	now := time.Now()

	dev, err := s.store.GetDeviceByDeviceID(ctx, payload.Device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if dev != nil {
		// Preserve the pre-restore state before any mutation.
		if _, err := s.capture(ctx, lic, dev, models.BackupReasonBeforeRestore); err != nil {
			return nil, err
		}
	}

	lic.Type = payload.License.Type
	lic.Status = payload.License.Status
	lic.ExpiryDate = payload.License.ExpiryDate
	lic.MaxUsers = payload.License.MaxUsers
	lic.Features = payload.License.Features
	lic.IssuedTo = payload.License.IssuedTo
	lic.CompanyName = payload.License.CompanyName
	lic.LastCheck = now
	lic.UpdatedAt = now
	if err := s.store.UpdateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("restore license: %w", err)
	}

	if dev == nil {
		// The binding row is gone; recreate it from the snapshot. There is no
		// prior state to preserve in that case.
		dev = models.NewDevice(lic.ID, payload.Device.DeviceID, payload.Device.DeviceInfo)
		dev.FirstSeenAt = payload.Device.FirstSeenAt
		dev.FingerprintHistory = payload.Device.FingerprintHistory
		dev.Status = payload.Device.Status
		if err := s.store.CreateDevice(ctx, dev); err != nil {
			return nil, fmt.Errorf("recreate device: %w", err)
		}
	} else {
		dev.DeviceInfo = payload.Device.DeviceInfo
		dev.FingerprintHistory = payload.Device.FingerprintHistory
		dev.Status = payload.Device.Status
		dev.LastSeenAt = now
		dev.LastValidatedAt = now
		dev.UpdatedAt = now
		if err := s.store.UpdateDevice(ctx, dev); err != nil {
			return nil, fmt.Errorf("restore device: %w", err)
		}
	}

	s.logger.Info().
		Str("backup_id", backupID.String()).
		Str("device_id", dev.DeviceID).
		Str("reason", string(backup.Reason)).
		Msg("backup restored")

	view := licensing.BuildLicenseView(lic, dev, s.policies.Current(), now)
	return &view, nil
}

// capture snapshots the pair and persists the backup record.
func (s *Service) capture(ctx context.Context, lic *models.License, dev *models.Device, reason models.BackupReason) (*models.Backup, error) {
	payload := models.CaptureSnapshot(lic, dev, time.Now())
	backup, err := models.NewBackup(lic.ID, dev.ID, reason, payload)
	if err != nil {
		return nil, fmt.Errorf("serialize snapshot: %w", err)
	}
	if err := s.store.CreateBackup(ctx, backup); err != nil {
		return nil, fmt.Errorf("persist backup: %w", err)
	}
	return backup, nil
}

// loadPair resolves a device and its owning license.
func (s *Service) loadPair(ctx context.Context, deviceID string) (*models.Device, *models.License, error) {
	dev, err := s.store.GetDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get device: %w", err)
	}
	if dev == nil {
		return nil, nil, licensing.ErrDeviceNotFound.WithDetail("deviceId", deviceID)
	}

	lic, err := s.store.GetLicenseByID(ctx, dev.LicenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get license: %w", err)
	}
	if lic == nil {
		return nil, nil, fmt.Errorf("device %s references missing license %s", deviceID, dev.LicenseID)
	}

	return dev, lic, nil
}

// decodePayload decodes and structurally validates a snapshot payload.
func decodePayload(raw json.RawMessage) (*models.SnapshotPayload, error) {
	var payload models.SnapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, licensing.ErrInvalidSnapshot.WithDetail("cause", err.Error())
	}
	if payload.License == nil {
		return nil, licensing.ErrIncompleteSnapshot.WithDetail("missing", "license")
	}
	if payload.Device == nil {
		return nil, licensing.ErrIncompleteSnapshot.WithDetail("missing", "device")
	}
	return &payload, nil
}
