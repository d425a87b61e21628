package licensing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tessera-io/tessera/internal/models"
	"github.com/tessera-io/tessera/internal/policy"
)

func testPolicy() policy.Policy {
	return policy.Policy{
		FingerprintTolerance: 0.90,
		GraceDays:            3,
		AllowTrial:           false,
		TrialDays:            30,
	}
}

func newActivationService(store *mockStore, pol policy.Policy) *ActivationService {
	return NewActivationService(store, policy.Static{Policy: pol}, zerolog.Nop())
}

func standardLicense(key string) *models.License {
	now := time.Now()
	expiry := now.AddDate(1, 0, 0)
	return &models.License{
		ID:         uuid.New(),
		LicenseKey: key,
		Type:       models.LicenseTypeStandard,
		Status:     models.LicenseStatusActive,
		ExpiryDate: &expiry,
		MaxUsers:   5,
		Features:   []string{"core"},
		IssuedTo:   "acme",
		IssuedAt:   now,
		LastCheck:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestActivateValidation(t *testing.T) {
	svc := newActivationService(newMockStore(), testPolicy())

	cases := []struct {
		name                          string
		licenseKey, deviceID, devInfo string
	}{
		{"missing license key", "", "dev-1", "info"},
		{"missing device id", "KEY-A", "", "info"},
		{"missing device info", "KEY-A", "dev-1", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Activate(context.Background(), tc.licenseKey, tc.deviceID, tc.devInfo)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestActivateUnknownKeyTrialsDisabled(t *testing.T) {
	svc := newActivationService(newMockStore(), testPolicy())

	_, err := svc.Activate(context.Background(), "UNKNOWN-KEY", "dev-1", "info")
	if !errors.Is(err, ErrLicenseNotFound) {
		t.Fatalf("expected LICENSE_NOT_FOUND, got %v", err)
	}
}

func TestActivateUnknownKeyProvisionsTrial(t *testing.T) {
	store := newMockStore()
	pol := testPolicy()
	pol.AllowTrial = true
	svc := newActivationService(store, pol)

	result, err := svc.Activate(context.Background(), "UNKNOWN-KEY", "dev-1", "info")
	if err != nil {
		t.Fatalf("expected trial activation to succeed, got %v", err)
	}
	if !result.Created {
		t.Error("expected created result")
	}

	view := result.View
	if view.Type != models.LicenseTypeTrial {
		t.Errorf("expected trial license, got %s", view.Type)
	}
	if view.Status != models.LicenseStatusActive {
		t.Errorf("expected active status, got %s", view.Status)
	}
	if view.IsLifetime {
		t.Error("trial must not be lifetime")
	}
	if view.DaysRemaining != 30 {
		t.Errorf("expected 30 days remaining, got %d", view.DaysRemaining)
	}

	dev, _ := store.GetDeviceByDeviceID(context.Background(), "dev-1")
	if dev == nil {
		t.Fatal("expected device to be created")
	}
	if dev.Status != models.DeviceStatusActive {
		t.Errorf("expected device active, got %s", dev.Status)
	}
}

func TestActivateRevokedOrSuspended(t *testing.T) {
	for _, status := range []models.LicenseStatus{models.LicenseStatusRevoked, models.LicenseStatusSuspended} {
		t.Run(string(status), func(t *testing.T) {
			store := newMockStore()
			lic := standardLicense("KEY-A")
			lic.Status = status
			store.addLicense(lic)

			svc := newActivationService(store, testPolicy())
			_, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
			if !errors.Is(err, ErrLicenseInvalidStatus) {
				t.Fatalf("expected LICENSE_INVALID_STATUS, got %v", err)
			}
		})
	}
}

func TestActivateBindsNewDevice(t *testing.T) {
	store := newMockStore()
	lic := standardLicense("KEY-A")
	store.addLicense(lic)

	svc := newActivationService(store, testPolicy())
	result, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
	if err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	if !result.Created {
		t.Error("expected created result for first activation")
	}
	if result.View.DeviceID != "dev-1" {
		t.Errorf("expected device dev-1 in view, got %s", result.View.DeviceID)
	}

	updated, _ := store.GetLicenseByID(context.Background(), lic.ID)
	if time.Since(updated.LastCheck) > time.Minute {
		t.Error("expected license last check to be touched")
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	store := newMockStore()
	lic := standardLicense("KEY-A")
	store.addLicense(lic)
	svc := newActivationService(store, testPolicy())

	first, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
	if err != nil {
		t.Fatalf("first activation failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
		if err != nil {
			t.Fatalf("repeat activation failed: %v", err)
		}
		if again.Created {
			t.Error("repeat activation must not report created")
		}
		if again.View.LicenseKey != first.View.LicenseKey || again.View.DeviceID != first.View.DeviceID {
			t.Error("repeat activation returned a different identity")
		}
	}

	if store.deviceCount() != 1 {
		t.Errorf("expected exactly one device row, got %d", store.deviceCount())
	}
}

func TestActivateConflictAttachesExistingKey(t *testing.T) {
	store := newMockStore()
	licA := standardLicense("KEY-A")
	licB := standardLicense("KEY-B")
	store.addLicense(licA)
	store.addLicense(licB)

	svc := newActivationService(store, testPolicy())
	if _, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info"); err != nil {
		t.Fatalf("setup activation failed: %v", err)
	}

	_, err := svc.Activate(context.Background(), "KEY-B", "dev-1", "info")
	if !errors.Is(err, ErrDeviceAlreadyRegistered) {
		t.Fatalf("expected DEVICE_ALREADY_REGISTERED, got %v", err)
	}

	details := ErrorDetails(err)
	if details == nil {
		t.Fatal("expected error details")
	}
	if details["existingLicenseKey"] != "KEY-A" {
		t.Errorf("expected existingLicenseKey KEY-A, got %v", details["existingLicenseKey"])
	}
}

func TestActivateResolvesInsertRace(t *testing.T) {
	store := newMockStore()
	lic := standardLicense("KEY-A")
	store.addLicense(lic)

	// Simulate losing the insert race: the row appears between the lookup
	// and the insert.
	winner := models.NewDevice(lic.ID, "dev-1", "winner-info")
	store.createDeviceErr = models.ErrDuplicateDevice
	store.addDevice(winner)

	svc := newActivationService(store, testPolicy())
	result, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
	if err != nil {
		t.Fatalf("expected race to resolve to re-activation, got %v", err)
	}
	if result.Created {
		t.Error("race loser must not report created")
	}
	if store.deviceCount() != 1 {
		t.Errorf("expected one device row after race, got %d", store.deviceCount())
	}
}

func TestActivateRaceAgainstOtherLicense(t *testing.T) {
	store := newMockStore()
	licA := standardLicense("KEY-A")
	licB := standardLicense("KEY-B")
	store.addLicense(licA)
	store.addLicense(licB)

	winner := models.NewDevice(licA.ID, "dev-1", "winner-info")
	store.createDeviceErr = models.ErrDuplicateDevice
	store.addDevice(winner)

	svc := newActivationService(store, testPolicy())
	_, err := svc.Activate(context.Background(), "KEY-B", "dev-1", "info")
	if !errors.Is(err, ErrDeviceAlreadyRegistered) {
		t.Fatalf("expected DEVICE_ALREADY_REGISTERED after race, got %v", err)
	}
}

func TestActivateExpiredLicenseStillReturnsView(t *testing.T) {
	store := newMockStore()
	lic := standardLicense("KEY-A")
	expiry := time.Now().Add(-48 * time.Hour)
	lic.ExpiryDate = &expiry
	store.addLicense(lic)

	svc := newActivationService(store, testPolicy())
	result, err := svc.Activate(context.Background(), "KEY-A", "dev-1", "info")
	if err != nil {
		t.Fatalf("expected degraded view, got error %v", err)
	}
	if result.View.Status != models.LicenseStatusExpired {
		t.Errorf("expected expired status in view, got %s", result.View.Status)
	}
	if result.View.DaysRemaining != 0 {
		t.Errorf("expected 0 days remaining, got %d", result.View.DaysRemaining)
	}
}
