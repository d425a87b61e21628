package licensing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/policy"
)

// DeviceStore defines the persistence operations the device service needs.
// Lookup methods return (nil, nil) when the entity does not exist.
type DeviceStore interface {
	GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	UpdateDevice(ctx context.Context, dev *models.Device) error
	GetLicenseByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	UpdateLicense(ctx context.Context, lic *models.License) error
}

// DeviceService covers operator actions on device bindings: blocking a
// device and inspecting its current license view.
type DeviceService struct {
	store    DeviceStore
	policies policy.Provider
	logger   zerolog.Logger
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(store DeviceStore, policies policy.Provider, logger zerolog.Logger) *DeviceService {
	return &DeviceService{
		store:    store,
		policies: policies,
		logger:   logger.With().Str("component", "device_service").Logger(),
	}
}

// Block flips the device to blocked. Blocking is one-way: the only recovery
// path is restoring a backup that captured the device in its active state.
func (s *DeviceService) Block(ctx context.Context, deviceID string) (*models.Device, error) {
	if deviceID == "" {
		return nil, ErrInvalidInput.WithDetail("field", "deviceId")
	}

	dev, err := s.store.GetDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound.WithDetail("deviceId", deviceID)
	}

	if dev.Status != models.DeviceStatusBlocked {
		dev.Status = models.DeviceStatusBlocked
		dev.UpdatedAt = time.Now()
		if err := s.store.UpdateDevice(ctx, dev); err != nil {
			return nil, fmt.Errorf("block device: %w", err)
		}
		s.logger.Warn().Str("device_id", deviceID).Msg("device blocked by operator")
	}

	return dev, nil
}

// View returns the current license view for a device. Like every read path
// it reconciles a lagging expiry status before projecting.
func (s *DeviceService) View(ctx context.Context, deviceID string) (*LicenseView, error) {
	if deviceID == "" {
		return nil, ErrInvalidInput.WithDetail("field", "deviceId")
	}

	dev, err := s.store.GetDeviceByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound.WithDetail("deviceId", deviceID)
	}

	lic, err := s.store.GetLicenseByID(ctx, dev.LicenseID)
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	if lic == nil {
		return nil, fmt.Errorf("device %s references missing license %s", deviceID, dev.LicenseID)
	}

	now := time.Now()
	if lic.ReconcileExpiry(now) {
		lic.LastCheck = now
		if err := s.store.UpdateLicense(ctx, lic); err != nil {
			return nil, fmt.Errorf("persist expiry flip: %w", err)
		}
	}

	view := BuildLicenseView(lic, dev, s.policies.Current(), now)
	return &view, nil
}
