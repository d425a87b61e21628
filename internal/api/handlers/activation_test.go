package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/models"
)

// mockActivationService implements ActivationService for testing.
type mockActivationService struct {
	result *licensing.ActivationResult
	err    error

	gotKey      string
	gotDeviceID string
}

func (m *mockActivationService) Activate(_ context.Context, licenseKey, deviceID, deviceInfo string) (*licensing.ActivationResult, error) {
	m.gotKey = licenseKey
	m.gotDeviceID = deviceID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func setupActivationRouter(svc ActivationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	NewActivationHandler(svc, nil, zerolog.Nop()).RegisterRoutes(api)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestActivate(t *testing.T) {
	t.Run("existing binding returns 200", func(t *testing.T) {
		svc := &mockActivationService{result: &licensing.ActivationResult{
			View: licensing.LicenseView{
				HasLicense:   true,
				LicenseKey:   "KEY-A",
				Status:       models.LicenseStatusActive,
				DeviceID:     "dev-1",
				DeviceStatus: models.DeviceStatusActive,
			},
		}}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-A","device_id":"dev-1","device_info":"linux"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if svc.gotKey != "KEY-A" || svc.gotDeviceID != "dev-1" {
			t.Errorf("service got key=%q device=%q", svc.gotKey, svc.gotDeviceID)
		}

		var resp activateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Created {
			t.Error("expected created=false for an existing binding")
		}
		if resp.License.LicenseKey != "KEY-A" {
			t.Errorf("expected license key KEY-A, got %q", resp.License.LicenseKey)
		}
	})

	t.Run("new binding returns 201", func(t *testing.T) {
		svc := &mockActivationService{result: &licensing.ActivationResult{
			View:    licensing.LicenseView{HasLicense: true, LicenseKey: "KEY-B"},
			Created: true,
		}}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-B","device_id":"dev-2","device_info":"linux"}`)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		r := setupActivationRouter(&mockActivationService{})

		w := postJSON(r, "/api/v1/activate", `{not json`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if body := decodeErrorBody(t, w); body.Code != "INVALID_INPUT" {
			t.Errorf("expected INVALID_INPUT, got %q", body.Code)
		}
	})

	t.Run("unknown license returns 404", func(t *testing.T) {
		svc := &mockActivationService{err: licensing.ErrLicenseNotFound}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-X","device_id":"dev-1","device_info":"linux"}`)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if body := decodeErrorBody(t, w); body.Code != "LICENSE_NOT_FOUND" {
			t.Errorf("expected LICENSE_NOT_FOUND, got %q", body.Code)
		}
	})

	t.Run("device conflict returns 409 with existing key", func(t *testing.T) {
		svc := &mockActivationService{
			err: licensing.ErrDeviceAlreadyRegistered.WithDetail("existingLicenseKey", "KEY-A"),
		}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-B","device_id":"dev-1","device_info":"linux"}`)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		body := decodeErrorBody(t, w)
		if body.Code != "DEVICE_ALREADY_REGISTERED" {
			t.Errorf("expected DEVICE_ALREADY_REGISTERED, got %q", body.Code)
		}
		if body.Details["existingLicenseKey"] != "KEY-A" {
			t.Errorf("expected existingLicenseKey detail, got %v", body.Details)
		}
	})

	t.Run("revoked license returns 403", func(t *testing.T) {
		svc := &mockActivationService{err: licensing.ErrLicenseInvalidStatus}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-R","device_id":"dev-1","device_info":"linux"}`)

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("unexpected error masked as 500", func(t *testing.T) {
		svc := &mockActivationService{err: context.DeadlineExceeded}
		r := setupActivationRouter(svc)

		w := postJSON(r, "/api/v1/activate", `{"license_key":"KEY-A","device_id":"dev-1","device_info":"linux"}`)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		body := decodeErrorBody(t, w)
		if body.Code != "INTERNAL" {
			t.Errorf("expected INTERNAL, got %q", body.Code)
		}
		if strings.Contains(body.Message, "deadline") {
			t.Errorf("internal error detail leaked: %q", body.Message)
		}
	})
}
