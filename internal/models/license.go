package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseType represents the commercial tier of a license.
type LicenseType string

const (
	// LicenseTypeTrial is an auto-provisioned, time-limited evaluation license.
	LicenseTypeTrial LicenseType = "trial"
	// LicenseTypeStandard is the base paid tier.
	LicenseTypeStandard LicenseType = "standard"
	// LicenseTypePremium unlocks advanced features.
	LicenseTypePremium LicenseType = "premium"
	// LicenseTypeEnterprise unlocks all features.
	LicenseTypeEnterprise LicenseType = "enterprise"
)

// ValidLicenseTypes returns all recognized license types.
func ValidLicenseTypes() []LicenseType {
	return []LicenseType{LicenseTypeTrial, LicenseTypeStandard, LicenseTypePremium, LicenseTypeEnterprise}
}

// IsValid checks if the type is a recognized value.
func (t LicenseType) IsValid() bool {
	for _, valid := range ValidLicenseTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// LicenseStatus represents the lifecycle state of a license.
type LicenseStatus string

const (
	// LicenseStatusActive indicates the license is usable.
	LicenseStatusActive LicenseStatus = "active"
	// LicenseStatusExpired indicates the license passed its expiry date.
	LicenseStatusExpired LicenseStatus = "expired"
	// LicenseStatusRevoked indicates the license was revoked and cannot activate devices.
	LicenseStatusRevoked LicenseStatus = "revoked"
	// LicenseStatusSuspended indicates the license is temporarily disabled.
	LicenseStatusSuspended LicenseStatus = "suspended"
)

// IsValid checks if the status is a recognized value.
func (s LicenseStatus) IsValid() bool {
	switch s {
	case LicenseStatusActive, LicenseStatusExpired, LicenseStatusRevoked, LicenseStatusSuspended:
		return true
	}
	return false
}

// License represents a grant of usage rights bound to one or more devices.
// A nil ExpiryDate means the license never expires.
type License struct {
	ID          uuid.UUID     `json:"id"`
	LicenseKey  string        `json:"license_key"`
	Type        LicenseType   `json:"type"`
	Status      LicenseStatus `json:"status"`
	ExpiryDate  *time.Time    `json:"expiry_date,omitempty"`
	MaxUsers    int           `json:"max_users"`
	Features    []string      `json:"features"`
	IssuedTo    string        `json:"issued_to"`
	CompanyName string        `json:"company_name,omitempty"`
	IssuedAt    time.Time     `json:"issued_at"`
	LastCheck   time.Time     `json:"last_check"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DefaultTrialFeatures returns the feature set granted to auto-provisioned trials.
func DefaultTrialFeatures() []string {
	return []string{"core", "reports", "export"}
}

// NewTrialLicense creates an active trial license for the given key,
// expiring trialDays from now.
func NewTrialLicense(licenseKey, issuedTo string, trialDays int) *License {
	now := time.Now()
	expiry := now.AddDate(0, 0, trialDays)
	return &License{
		ID:         uuid.New(),
		LicenseKey: licenseKey,
		Type:       LicenseTypeTrial,
		Status:     LicenseStatusActive,
		ExpiryDate: &expiry,
		MaxUsers:   1,
		Features:   DefaultTrialFeatures(),
		IssuedTo:   issuedTo,
		IssuedAt:   now,
		LastCheck:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsLifetime returns true if the license never expires.
func (l *License) IsLifetime() bool {
	return l.ExpiryDate == nil
}

// IsPastExpiry returns true if the license has an expiry date in the past.
// It does not consult the persisted status; callers reconcile the two.
func (l *License) IsPastExpiry(now time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(now)
}

// ReconcileExpiry flips an active license past its expiry date to expired.
// Returns true if the status changed. Run at the top of every read and write
// path so the persisted status and the wall clock cannot disagree for long.
func (l *License) ReconcileExpiry(now time.Time) bool {
	if l.Status == LicenseStatusActive && l.IsPastExpiry(now) {
		l.Status = LicenseStatusExpired
		return true
	}
	return false
}

// CanActivate returns true if the license status permits binding new devices.
func (l *License) CanActivate() bool {
	return l.Status != LicenseStatusRevoked && l.Status != LicenseStatusSuspended
}
