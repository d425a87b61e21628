package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/models"
)

// mockDeviceService implements DeviceService for testing.
type mockDeviceService struct {
	device   *models.Device
	view     *licensing.LicenseView
	blockErr error
	viewErr  error

	blockedID string
}

func (m *mockDeviceService) Block(_ context.Context, deviceID string) (*models.Device, error) {
	m.blockedID = deviceID
	if m.blockErr != nil {
		return nil, m.blockErr
	}
	return m.device, nil
}

func (m *mockDeviceService) View(_ context.Context, deviceID string) (*licensing.LicenseView, error) {
	if m.viewErr != nil {
		return nil, m.viewErr
	}
	return m.view, nil
}

func setupDevicesRouter(svc DeviceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	NewDevicesHandler(svc, zerolog.Nop()).RegisterRoutes(api)
	return r
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetDevice(t *testing.T) {
	t.Run("returns view", func(t *testing.T) {
		svc := &mockDeviceService{view: &licensing.LicenseView{
			HasLicense:   true,
			DeviceID:     "dev-1",
			DeviceStatus: models.DeviceStatusActive,
		}}
		r := setupDevicesRouter(svc)

		w := getPath(r, "/api/v1/devices/dev-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var view licensing.LicenseView
		if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
			t.Fatalf("failed to decode view: %v", err)
		}
		if view.DeviceID != "dev-1" {
			t.Errorf("expected dev-1, got %q", view.DeviceID)
		}
	})

	t.Run("unknown device returns 404", func(t *testing.T) {
		svc := &mockDeviceService{viewErr: licensing.ErrDeviceNotFound}
		r := setupDevicesRouter(svc)

		w := getPath(r, "/api/v1/devices/dev-x")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestBlockDevice(t *testing.T) {
	t.Run("blocks device", func(t *testing.T) {
		svc := &mockDeviceService{device: &models.Device{
			DeviceID: "dev-1",
			Status:   models.DeviceStatusBlocked,
		}}
		r := setupDevicesRouter(svc)

		w := postJSON(r, "/api/v1/devices/dev-1/block", "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if svc.blockedID != "dev-1" {
			t.Errorf("service got device %q", svc.blockedID)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["status"] != "blocked" {
			t.Errorf("expected blocked, got %q", resp["status"])
		}
	})

	t.Run("unknown device returns 404", func(t *testing.T) {
		svc := &mockDeviceService{blockErr: licensing.ErrDeviceNotFound.WithDetail("deviceId", "dev-x")}
		r := setupDevicesRouter(svc)

		w := postJSON(r, "/api/v1/devices/dev-x/block", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if body := decodeErrorBody(t, w); body.Details["deviceId"] != "dev-x" {
			t.Errorf("expected deviceId detail, got %v", body.Details)
		}
	})
}
