package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/policy"
)

// ActivationStore defines the persistence operations activation needs.
// Lookup methods return (nil, nil) when the entity does not exist.
type ActivationStore interface {
	GetLicenseByKey(ctx context.Context, licenseKey string) (*models.License, error)
	GetLicenseByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	CreateLicense(ctx context.Context, lic *models.License) error
	UpdateLicense(ctx context.Context, lic *models.License) error
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	CreateDevice(ctx context.Context, dev *models.Device) error
	UpdateDevice(ctx context.Context, dev *models.Device) error
}

// ActivationService binds a device identity to a license, enforcing the
// one-device-one-license invariant, and auto-provisions trials when policy
// allows.
type ActivationService struct {
	store    ActivationStore
	policies policy.Provider
	logger   zerolog.Logger
}

// NewActivationService creates a new ActivationService.
func NewActivationService(store ActivationStore, policies policy.Provider, logger zerolog.Logger) *ActivationService {
	return &ActivationService{
		store:    store,
		policies: policies,
		logger:   logger.With().Str("component", "activation_service").Logger(),
	}
}

// ActivationResult is the outcome of an activation call. Created is true when
// a new device binding (and possibly a trial license) was provisioned.
type ActivationResult struct {
	View    LicenseView
	Created bool
}

// Activate binds deviceID to the license identified by licenseKey. The
// device-uniqueness check always precedes any write: a device bound to a
// different license is rejected, a device bound to this license is refreshed.
func (s *ActivationService) Activate(ctx context.Context, licenseKey, deviceID, deviceInfo string) (*ActivationResult, error) {
	if licenseKey == "" {
		return nil, ErrInvalidInput.WithDetail("field", "licenseKey")
	}
	if deviceID == "" {
		return nil, ErrInvalidInput.WithDetail("field", "deviceId")
	}
	if deviceInfo == "" {
		return nil, ErrInvalidInput.WithDetail("field", "deviceInfo")
	}

	pol := s.policies.Current()
	now := time.Now()

	lic, err := s.store.GetLicenseByKey(ctx, licenseKey)
	if err != nil {
		return nil, fmt.Errorf("get license by key: %w", err)
	}

	if lic == nil {
		if !pol.AllowTrial {
			return nil, ErrLicenseNotFound
		}
		return s.provisionTrial(ctx, licenseKey, deviceID, deviceInfo, pol)
	}

	lic.ReconcileExpiry(now)
	if !lic.CanActivate() {
		return nil, ErrLicenseInvalidStatus.WithDetail("status", string(lic.Status))
	}

	dev, err := s.store.GetDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	switch {
	case dev == nil:
		return s.bindNewDevice(ctx, lic, deviceID, deviceInfo, pol)
	case dev.LicenseID != lic.ID:
		return nil, s.conflictError(ctx, dev)
	default:
		return s.reactivate(ctx, lic, dev, deviceInfo, pol, now)
	}
}

// provisionTrial creates a trial license and its first device binding for an
// unknown key. The device-uniqueness check still runs first.
func (s *ActivationService) provisionTrial(ctx context.Context, licenseKey, deviceID, deviceInfo string, pol policy.Policy) (*ActivationResult, error) {
	existing, err := s.store.GetDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if existing != nil {
		return nil, s.conflictError(ctx, existing)
	}

	lic := models.NewTrialLicense(licenseKey, deviceID, pol.TrialDays)
	if err := s.store.CreateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("create trial license: %w", err)
	}

	result, err := s.bindNewDevice(ctx, lic, deviceID, deviceInfo, pol)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("license_key", licenseKey).
		Str("device_id", deviceID).
		Int("trial_days", pol.TrialDays).
		Msg("trial license provisioned")

	return result, nil
}

// bindNewDevice creates the device row. A unique violation means a concurrent
// activation won the insert; reload and re-branch on the winner's binding.
func (s *ActivationService) bindNewDevice(ctx context.Context, lic *models.License, deviceID, deviceInfo string, pol policy.Policy) (*ActivationResult, error) {
	dev := models.NewDevice(lic.ID, deviceID, deviceInfo)
	err := s.store.CreateDevice(ctx, dev)
	if errors.Is(err, models.ErrDuplicateDevice) {
		winner, lookupErr := s.store.GetDeviceByDeviceID(ctx, deviceID)
		if lookupErr != nil {
			return nil, fmt.Errorf("reload device after conflict: %w", lookupErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("device %s vanished after unique violation", deviceID)
		}
		if winner.LicenseID != lic.ID {
			return nil, s.conflictError(ctx, winner)
		}
		return s.reactivate(ctx, lic, winner, deviceInfo, pol, time.Now())
	}
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}

	lic.LastCheck = time.Now()
	if err := s.store.UpdateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("touch license: %w", err)
	}

	s.logger.Info().
		Str("license_key", lic.LicenseKey).
		Str("device_id", deviceID).
		Msg("device activated")

	return &ActivationResult{
		View:    BuildLicenseView(lic, dev, pol, time.Now()),
		Created: true,
	}, nil
}

// reactivate refreshes an existing binding between this device and license.
func (s *ActivationService) reactivate(ctx context.Context, lic *models.License, dev *models.Device, deviceInfo string, pol policy.Policy, now time.Time) (*ActivationResult, error) {
	dev.DeviceInfo = deviceInfo
	dev.LastSeenAt = now
	dev.LastValidatedAt = now
	dev.UpdatedAt = now
	if err := s.store.UpdateDevice(ctx, dev); err != nil {
		return nil, fmt.Errorf("refresh device: %w", err)
	}

	lic.LastCheck = now
	if err := s.store.UpdateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("touch license: %w", err)
	}

	s.logger.Debug().
		Str("license_key", lic.LicenseKey).
		Str("device_id", dev.DeviceID).
		Msg("device re-activated")

	return &ActivationResult{
		View: BuildLicenseView(lic, dev, pol, now),
	}, nil
}

// conflictError builds the DEVICE_ALREADY_REGISTERED error, attaching the
// other license's key for diagnostics when it can be resolved.
func (s *ActivationService) conflictError(ctx context.Context, dev *models.Device) error {
	conflict := ErrDeviceAlreadyRegistered.WithDetail("deviceId", dev.DeviceID)

	other, err := s.store.GetLicenseByID(ctx, dev.LicenseID)
	if err != nil || other == nil {
		s.logger.Warn().
			Str("device_id", dev.DeviceID).
			Str("license_id", dev.LicenseID.String()).
			Msg("could not resolve conflicting license for diagnostics")
		return conflict
	}

	return conflict.WithDetail("existingLicenseKey", other.LicenseKey)
}
