package licensing

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tessera-io/tessera/internal/models"
)

// mockStore implements the licensing store interfaces in memory for testing.
type mockStore struct {
	mu       sync.Mutex
	licenses map[uuid.UUID]*models.License
	devices  map[string]*models.Device

	// Injected failures.
	createDeviceErr  error
	createLicenseErr error
	updateLicenseErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		licenses: make(map[uuid.UUID]*models.License),
		devices:  make(map[string]*models.Device),
	}
}

func (m *mockStore) addLicense(lic *models.License) {
	m.licenses[lic.ID] = lic
}

func (m *mockStore) addDevice(dev *models.Device) {
	m.devices[dev.DeviceID] = dev
}

func (m *mockStore) GetLicenseByKey(_ context.Context, key string) (*models.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lic := range m.licenses {
		if lic.LicenseKey == key {
			return lic, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetLicenseByID(_ context.Context, id uuid.UUID) (*models.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.licenses[id], nil
}

func (m *mockStore) CreateLicense(_ context.Context, lic *models.License) error {
	if m.createLicenseErr != nil {
		return m.createLicenseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.licenses[lic.ID] = lic
	return nil
}

func (m *mockStore) UpdateLicense(_ context.Context, lic *models.License) error {
	if m.updateLicenseErr != nil {
		return m.updateLicenseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.licenses[lic.ID]; !ok {
		return errors.New("license not found")
	}
	m.licenses[lic.ID] = lic
	return nil
}

func (m *mockStore) GetDeviceByDeviceID(_ context.Context, deviceID string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[deviceID], nil
}

func (m *mockStore) CreateDevice(_ context.Context, dev *models.Device) error {
	if m.createDeviceErr != nil {
		return m.createDeviceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[dev.DeviceID]; ok {
		return models.ErrDuplicateDevice
	}
	m.devices[dev.DeviceID] = dev
	return nil
}

func (m *mockStore) UpdateDevice(_ context.Context, dev *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[dev.DeviceID]; !ok {
		return errors.New("device not found")
	}
	m.devices[dev.DeviceID] = dev
	return nil
}

func (m *mockStore) MutateDevice(_ context.Context, deviceID string, fn func(*models.Device) error) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.devices[deviceID]
	if !ok {
		return nil, nil
	}
	if err := fn(dev); err != nil {
		return nil, err
	}
	return dev, nil
}

func (m *mockStore) deviceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}
