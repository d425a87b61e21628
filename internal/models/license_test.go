package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTrialLicense(t *testing.T) {
	lic := NewTrialLicense("TRIAL-ABC", "dev-1", 30)

	if lic.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if lic.LicenseKey != "TRIAL-ABC" {
		t.Errorf("expected LicenseKey 'TRIAL-ABC', got %s", lic.LicenseKey)
	}
	if lic.Type != LicenseTypeTrial {
		t.Errorf("expected Type trial, got %s", lic.Type)
	}
	if lic.Status != LicenseStatusActive {
		t.Errorf("expected Status active, got %s", lic.Status)
	}
	if lic.MaxUsers != 1 {
		t.Errorf("expected MaxUsers 1, got %d", lic.MaxUsers)
	}
	if lic.ExpiryDate == nil {
		t.Fatal("expected ExpiryDate to be set")
	}

	wantExpiry := time.Now().AddDate(0, 0, 30)
	diff := lic.ExpiryDate.Sub(wantExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expected expiry ~30 days out, got %v", lic.ExpiryDate)
	}
	if len(lic.Features) == 0 {
		t.Error("expected default trial features")
	}
}

func TestLicenseTypeIsValid(t *testing.T) {
	for _, typ := range ValidLicenseTypes() {
		if !typ.IsValid() {
			t.Errorf("expected %s to be valid", typ)
		}
	}
	if LicenseType("gold").IsValid() {
		t.Error("expected 'gold' to be invalid")
	}
}

func TestLicenseStatusIsValid(t *testing.T) {
	valid := []LicenseStatus{LicenseStatusActive, LicenseStatusExpired, LicenseStatusRevoked, LicenseStatusSuspended}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if LicenseStatus("frozen").IsValid() {
		t.Error("expected 'frozen' to be invalid")
	}
}

func TestLicenseIsLifetime(t *testing.T) {
	lic := &License{}
	if !lic.IsLifetime() {
		t.Error("expected nil expiry to mean lifetime")
	}

	expiry := time.Now().AddDate(1, 0, 0)
	lic.ExpiryDate = &expiry
	if lic.IsLifetime() {
		t.Error("expected set expiry to not be lifetime")
	}
}

func TestLicenseIsPastExpiry(t *testing.T) {
	now := time.Now()

	t.Run("lifetime never expires", func(t *testing.T) {
		lic := &License{}
		if lic.IsPastExpiry(now) {
			t.Error("lifetime license reported past expiry")
		}
	})

	t.Run("future expiry", func(t *testing.T) {
		expiry := now.Add(24 * time.Hour)
		lic := &License{ExpiryDate: &expiry}
		if lic.IsPastExpiry(now) {
			t.Error("future expiry reported past")
		}
	})

	t.Run("past expiry", func(t *testing.T) {
		expiry := now.Add(-time.Hour)
		lic := &License{ExpiryDate: &expiry}
		if !lic.IsPastExpiry(now) {
			t.Error("past expiry not reported")
		}
	})
}

func TestLicenseCanActivate(t *testing.T) {
	cases := []struct {
		status LicenseStatus
		want   bool
	}{
		{LicenseStatusActive, true},
		{LicenseStatusExpired, true},
		{LicenseStatusRevoked, false},
		{LicenseStatusSuspended, false},
	}
	for _, tc := range cases {
		lic := &License{Status: tc.status}
		if got := lic.CanActivate(); got != tc.want {
			t.Errorf("CanActivate with status %s: expected %v, got %v", tc.status, tc.want, got)
		}
	}
}
