package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FingerprintHistoryCap is the maximum number of fingerprint records retained per device.
const FingerprintHistoryCap = 10

// ErrDuplicateDevice is returned by stores when an insert collides with the
// unique device_id constraint. It is the authoritative signal that two
// activations raced; callers reload and re-branch.
var ErrDuplicateDevice = errors.New("device id already registered")

// DeviceStatus represents the lifecycle state of a device binding.
type DeviceStatus string

const (
	// DeviceStatusActive indicates the device is bound and validating normally.
	DeviceStatusActive DeviceStatus = "active"
	// DeviceStatusBlocked indicates the device exceeded the drift grace period
	// or was blocked by an operator. There is no automatic path back.
	DeviceStatusBlocked DeviceStatus = "blocked"
)

// IsValid checks if the status is a recognized value.
func (s DeviceStatus) IsValid() bool {
	return s == DeviceStatusActive || s == DeviceStatusBlocked
}

// FingerprintRecord is one observed fingerprint with its similarity to the
// history at the time it was seen. Retained for forensic comparison.
type FingerprintRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Similarity  float64   `json:"similarity"`
	SeenAt      time.Time `json:"seen_at"`
}

// Device represents one device identity bound to exactly one license for its lifetime.
type Device struct {
	ID                 uuid.UUID           `json:"id"`
	DeviceID           string              `json:"device_id"`
	LicenseID          uuid.UUID           `json:"license_id"`
	DeviceInfo         string              `json:"device_info,omitempty"`
	FingerprintHistory []FingerprintRecord `json:"fingerprint_history,omitempty"`
	Status             DeviceStatus        `json:"status"`
	FirstSeenAt        time.Time           `json:"first_seen_at"`
	LastSeenAt         time.Time           `json:"last_seen_at"`
	LastValidatedAt    time.Time           `json:"last_validated_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewDevice creates an active device bound to the given license.
func NewDevice(licenseID uuid.UUID, deviceID, deviceInfo string) *Device {
	now := time.Now()
	return &Device{
		ID:              uuid.New(),
		DeviceID:        deviceID,
		LicenseID:       licenseID,
		DeviceInfo:      deviceInfo,
		Status:          DeviceStatusActive,
		FirstSeenAt:     now,
		LastSeenAt:      now,
		LastValidatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AppendFingerprint appends a record to the history, evicting the oldest
// entries so the history never exceeds FingerprintHistoryCap.
func (d *Device) AppendFingerprint(rec FingerprintRecord) {
	d.FingerprintHistory = append(d.FingerprintHistory, rec)
	if excess := len(d.FingerprintHistory) - FingerprintHistoryCap; excess > 0 {
		d.FingerprintHistory = d.FingerprintHistory[excess:]
	}
}

// DaysSinceFirstSeen returns the age of the binding in whole days, rounded up.
// A device seen for the first time less than a day ago counts as 1 day old.
func (d *Device) DaysSinceFirstSeen(now time.Time) int {
	elapsed := now.Sub(d.FirstSeenAt)
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) != 0 {
		days++
	}
	return days
}
