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

// HeartbeatStore defines the persistence operations heartbeat needs.
// MutateDevice must load the device row under a per-device lock, apply fn,
// and persist the result atomically, so concurrent heartbeats cannot
// interleave fingerprint-history appends. It returns (nil, nil) when the
// device does not exist.
type HeartbeatStore interface {
	MutateDevice(ctx context.Context, deviceID string, fn func(*models.Device) error) (*models.Device, error)
	GetLicenseByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	UpdateLicense(ctx context.Context, lic *models.License) error
}

// HeartbeatInput carries one periodic re-validation request.
// UsageTick is optional telemetry; it is logged and never persisted.
type HeartbeatInput struct {
	DeviceID    string
	Fingerprint string
	Similarity  float64
	UsageTick   *int64
}

// HeartbeatService re-validates a bound device: it checks fingerprint drift
// against the policy tolerance, counts down the grace period, and lazily
// flips expired licenses.
type HeartbeatService struct {
	store    HeartbeatStore
	policies policy.Provider
	logger   zerolog.Logger
}

// NewHeartbeatService creates a new HeartbeatService.
func NewHeartbeatService(store HeartbeatStore, policies policy.Provider, logger zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		store:    store,
		policies: policies,
		logger:   logger.With().Str("component", "heartbeat_service").Logger(),
	}
}

// Heartbeat processes one re-validation call and returns the refreshed view.
// A blocked or expired device still receives a view reflecting its degraded
// state; only structurally invalid input or an unknown device is an error.
func (s *HeartbeatService) Heartbeat(ctx context.Context, in HeartbeatInput) (*LicenseView, error) {
	if in.DeviceID == "" {
		return nil, ErrInvalidInput.WithDetail("field", "deviceId")
	}
	if in.Fingerprint == "" {
		return nil, ErrInvalidInput.WithDetail("field", "fingerprint")
	}
	if in.Similarity < 0 || in.Similarity > 1 {
		return nil, ErrInvalidInput.WithDetail("field", "similarity")
	}

	pol := s.policies.Current()
	now := time.Now()
	withinTolerance := in.Similarity >= pol.FingerprintTolerance

	dev, err := s.store.MutateDevice(ctx, in.DeviceID, func(dev *models.Device) error {
		dev.LastSeenAt = now
		dev.UpdatedAt = now

		// Blocked is terminal. The device still gets its degraded view, but
		// no amount of matching fingerprints re-validates it.
		if dev.Status == models.DeviceStatusBlocked {
			return nil
		}

		if in.Similarity < 1.0 {
			dev.AppendFingerprint(models.FingerprintRecord{
				Fingerprint: in.Fingerprint,
				Similarity:  in.Similarity,
				SeenAt:      now,
			})
		}

		if withinTolerance {
			dev.LastValidatedAt = now
			return nil
		}

		days := dev.DaysSinceFirstSeen(now)
		if days > pol.GraceDays {
			dev.Status = models.DeviceStatusBlocked
			s.logger.Warn().
				Str("device_id", dev.DeviceID).
				Float64("similarity", in.Similarity).
				Int("days_since_first_seen", days).
				Int("grace_days", pol.GraceDays).
				Msg("fingerprint drift beyond grace period, device blocked")
		} else {
			s.logger.Info().
				Str("device_id", dev.DeviceID).
				Float64("similarity", in.Similarity).
				Int("days_since_first_seen", days).
				Int("grace_days", pol.GraceDays).
				Msg("fingerprint drift in grace period")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound.WithDetail("deviceId", in.DeviceID)
	}

	lic, err := s.store.GetLicenseByID(ctx, dev.LicenseID)
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	if lic == nil {
		return nil, fmt.Errorf("device %s references missing license %s", dev.DeviceID, dev.LicenseID)
	}

	if lic.ReconcileExpiry(now) {
		s.logger.Info().
			Str("license_key", lic.LicenseKey).
			Msg("license expired, status persisted")
	}
	lic.LastCheck = now
	if err := s.store.UpdateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("touch license: %w", err)
	}

	if in.UsageTick != nil {
		s.logger.Debug().
			Str("device_id", dev.DeviceID).
			Int64("usage_tick", *in.UsageTick).
			Msg("usage telemetry")
	}

	view := BuildLicenseView(lic, dev, pol, now)
	return &view, nil
}
