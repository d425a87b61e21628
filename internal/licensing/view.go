package licensing

import (
	"time"

	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/policy"
)

// LifetimeDaysRemaining is the DaysRemaining sentinel for lifetime licenses.
const LifetimeDaysRemaining = -1

// LicenseView is the read-only, time-correct projection of a license and its
// device returned by every activation, heartbeat, and restore call.
type LicenseView struct {
	HasLicense      bool                 `json:"has_license"`
	LicenseKey      string               `json:"license_key,omitempty"`
	Type            models.LicenseType   `json:"type,omitempty"`
	Status          models.LicenseStatus `json:"status,omitempty"`
	DeviceID        string               `json:"device_id,omitempty"`
	DeviceStatus    models.DeviceStatus  `json:"device_status,omitempty"`
	IssuedTo        string               `json:"issued_to,omitempty"`
	CompanyName     string               `json:"company_name,omitempty"`
	ExpiryDate      *time.Time           `json:"expiry_date,omitempty"`
	IsLifetime      bool                 `json:"is_lifetime"`
	DaysRemaining   int                  `json:"days_remaining"`
	MaxUsers        int                  `json:"max_users,omitempty"`
	Features        []string             `json:"features,omitempty"`
	Policy          policy.Policy        `json:"policy"`
	LastValidatedAt time.Time            `json:"last_validated_at,omitempty"`
}

// BuildLicenseView projects a license and device into a view. IsLifetime and
// DaysRemaining are recomputed from now on every call: expiry is a function
// of wall-clock time, not of the last persisted status. A license whose
// persisted status lags behind its expiry date is shown as expired.
func BuildLicenseView(lic *models.License, dev *models.Device, pol policy.Policy, now time.Time) LicenseView {
	view := LicenseView{
		HasLicense:    lic != nil,
		Policy:        pol,
		DaysRemaining: LifetimeDaysRemaining,
		IsLifetime:    true,
	}
	if lic == nil {
		return view
	}

	view.LicenseKey = lic.LicenseKey
	view.Type = lic.Type
	view.Status = lic.Status
	view.IssuedTo = lic.IssuedTo
	view.CompanyName = lic.CompanyName
	view.ExpiryDate = lic.ExpiryDate
	view.MaxUsers = lic.MaxUsers
	view.Features = lic.Features
	view.IsLifetime = lic.IsLifetime()

	if !lic.IsLifetime() {
		view.DaysRemaining = daysUntil(*lic.ExpiryDate, now)
		if lic.Status == models.LicenseStatusActive && lic.IsPastExpiry(now) {
			view.Status = models.LicenseStatusExpired
		}
	}

	if dev != nil {
		view.DeviceID = dev.DeviceID
		view.DeviceStatus = dev.Status
		view.LastValidatedAt = dev.LastValidatedAt
	}

	return view
}

// daysUntil returns the whole days from now until expiry, rounded up and
// clamped to zero.
func daysUntil(expiry, now time.Time) int {
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
