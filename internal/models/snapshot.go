package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BackupReason tags why a snapshot was captured.
type BackupReason string

const (
	// BackupReasonManual is an operator-requested snapshot.
	BackupReasonManual BackupReason = "manual"
	// BackupReasonAuto is a snapshot taken automatically around a risky operation.
	BackupReasonAuto BackupReason = "auto"
	// BackupReasonBeforeUpdate is a snapshot taken before a client update.
	BackupReasonBeforeUpdate BackupReason = "before_update"
	// BackupReasonRecovery is a snapshot taken during a support recovery flow.
	BackupReasonRecovery BackupReason = "recovery"
	// BackupReasonBeforeRestore is captured by the restore path itself so that
	// every restore is reversible. It cannot be requested directly.
	BackupReasonBeforeRestore BackupReason = "before_restore"
)

// ValidRequestReasons returns the reasons a caller may request on create.
// before_restore is reserved for the restore path.
func ValidRequestReasons() []BackupReason {
	return []BackupReason{BackupReasonManual, BackupReasonAuto, BackupReasonBeforeUpdate, BackupReasonRecovery}
}

// IsRequestable checks if the reason may be supplied on a create call.
func (r BackupReason) IsRequestable() bool {
	for _, valid := range ValidRequestReasons() {
		if r == valid {
			return true
		}
	}
	return false
}

// LicenseSnapshot is the typed copy of license fields captured in a backup.
type LicenseSnapshot struct {
	LicenseKey  string        `json:"license_key"`
	Type        LicenseType   `json:"type"`
	Status      LicenseStatus `json:"status"`
	ExpiryDate  *time.Time    `json:"expiry_date,omitempty"`
	MaxUsers    int           `json:"max_users"`
	Features    []string      `json:"features"`
	IssuedTo    string        `json:"issued_to"`
	CompanyName string        `json:"company_name,omitempty"`
	IssuedAt    time.Time     `json:"issued_at"`
}

// DeviceSnapshot is the typed copy of device fields captured in a backup.
type DeviceSnapshot struct {
	DeviceID           string              `json:"device_id"`
	DeviceInfo         string              `json:"device_info,omitempty"`
	FingerprintHistory []FingerprintRecord `json:"fingerprint_history,omitempty"`
	Status             DeviceStatus        `json:"status"`
	FirstSeenAt        time.Time           `json:"first_seen_at"`
}

// SnapshotPayload is the full point-in-time copy of license plus device state.
// Both sub-objects must be present for the payload to be restorable.
type SnapshotPayload struct {
	License    *LicenseSnapshot `json:"license"`
	Device     *DeviceSnapshot  `json:"device"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Backup is one immutable, reason-tagged snapshot record.
// The payload is stored serialized and decoded on demand; a record whose
// payload no longer decodes still lists, it just cannot be restored.
type Backup struct {
	ID        uuid.UUID       `json:"id"`
	LicenseID uuid.UUID       `json:"license_id"`
	DeviceID  uuid.UUID       `json:"device_id"`
	Reason    BackupReason    `json:"reason"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
}

// BackupInfo is the listing metadata for a backup record.
// Preview is best effort and omitted when the payload does not decode.
type BackupInfo struct {
	ID        uuid.UUID      `json:"id"`
	Reason    BackupReason   `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
	Preview   *BackupPreview `json:"preview,omitempty"`
}

// BackupPreview summarizes a snapshot payload for listings.
type BackupPreview struct {
	LicenseKey string      `json:"license_key"`
	Type       LicenseType `json:"type"`
	DeviceID   string      `json:"device_id"`
}

// CaptureSnapshot builds the payload for a backup of the given license and device.
func CaptureSnapshot(lic *License, dev *Device, now time.Time) SnapshotPayload {
	features := make([]string, len(lic.Features))
	copy(features, lic.Features)
	history := make([]FingerprintRecord, len(dev.FingerprintHistory))
	copy(history, dev.FingerprintHistory)

	var expiry *time.Time
	if lic.ExpiryDate != nil {
		e := *lic.ExpiryDate
		expiry = &e
	}

	return SnapshotPayload{
		License: &LicenseSnapshot{
			LicenseKey:  lic.LicenseKey,
			Type:        lic.Type,
			Status:      lic.Status,
			ExpiryDate:  expiry,
			MaxUsers:    lic.MaxUsers,
			Features:    features,
			IssuedTo:    lic.IssuedTo,
			CompanyName: lic.CompanyName,
			IssuedAt:    lic.IssuedAt,
		},
		Device: &DeviceSnapshot{
			DeviceID:           dev.DeviceID,
			DeviceInfo:         dev.DeviceInfo,
			FingerprintHistory: history,
			Status:             dev.Status,
			FirstSeenAt:        dev.FirstSeenAt,
		},
		CapturedAt: now,
	}
}

// NewBackup creates a backup record with the payload serialized.
func NewBackup(licenseID, deviceID uuid.UUID, reason BackupReason, payload SnapshotPayload) (*Backup, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Backup{
		ID:        uuid.New(),
		LicenseID: licenseID,
		DeviceID:  deviceID,
		Reason:    reason,
		Snapshot:  raw,
		CreatedAt: time.Now(),
	}, nil
}

// Info builds the listing metadata for the backup, decoding the payload for
// the preview when possible.
func (b *Backup) Info() BackupInfo {
	info := BackupInfo{
		ID:        b.ID,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}

	var payload SnapshotPayload
	if err := json.Unmarshal(b.Snapshot, &payload); err != nil {
		return info
	}
	if payload.License == nil || payload.Device == nil {
		return info
	}

	info.Preview = &BackupPreview{
		LicenseKey: payload.License.LicenseKey,
		Type:       payload.License.Type,
		DeviceID:   payload.Device.DeviceID,
	}
	return info
}
