package httptransport

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolab/internal/assets/models"
	"metrolab/internal/assets/service"
	calibrationstore "metrolab/internal/assets/store/calibration"
	certificatestore "metrolab/internal/assets/store/certificate"
	instrumentstore "metrolab/internal/assets/store/instrument"
	maintenancestore "metrolab/internal/assets/store/maintenance"
	reviewstore "metrolab/internal/assets/store/review"
	id "metrolab/pkg/domain"
	"metrolab/pkg/testutil"
)

type testEnv struct {
	router      http.Handler
	instruments *instrumentstore.InMemory
}

func newTestEnv() *testEnv {
	instruments := instrumentstore.NewInMemory()
	h := &Handler{
		Instruments:  service.NewInstrumentService(instruments, service.NopTxRunner{}),
		Certificates: service.NewCertificateService(certificatestore.NewInMemory(), service.NopTxRunner{}),
		Calibrations: service.NewCalibrationService(calibrationstore.NewInMemory(), instruments, service.NopTxRunner{}),
		Reviews:      service.NewReviewService(reviewstore.NewInMemory(), instruments, service.NopTxRunner{}),
		Maintenance:  service.NewMaintenanceService(maintenancestore.NewInMemory(), instruments, service.NopTxRunner{}),
	}
	return &testEnv{router: NewRouter(h, nil), instruments: instruments}
}

func testActor(role models.Role) models.Actor {
	return models.Actor{
		ID:           id.UserID(uuid.New()),
		Email:        "user@example.com",
		Role:         role,
		DepartmentID: id.DepartmentID(uuid.New()),
	}
}

func (e *testEnv) registerInstrument(t *testing.T, actor models.Actor) map[string]any {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/instruments", map[string]any{
		"name":          "Spectrometer",
		"serial_number": "SN-" + uuid.NewString()[:8],
		"model":         "X200",
		"manufacturer":  "Acme Labs",
		"category":      "analysis",
		"location_id":   uuid.NewString(),
		"department_id": actor.DepartmentID.String(),
	})
	rr := testutil.DoRequest(e.router, testutil.WithActor(req, actor))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[map[string]any](t, rr)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	req := testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	body := testutil.UnmarshalResponse[map[string]string](t, rr)
	assert.Equal(t, "ok", (*body)["status"])
}

func TestIdentityHeaders(t *testing.T) {
	env := newTestEnv()

	t.Run("missing identity is unauthorized", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/instruments", map[string]any{})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, "unauthorized")
	})

	t.Run("unknown role is unauthorized", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/instruments", map[string]any{})
		req.Header.Set("X-User-ID", uuid.NewString())
		req.Header.Set("X-User-Role", "superuser")
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestInstrumentEndpoints(t *testing.T) {
	env := newTestEnv()
	manager := testActor(models.RoleManager)

	created := env.registerInstrument(t, manager)
	instrumentID := created["id"].(string)

	t.Run("get by id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/instruments/"+instrumentID, nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, instrumentID, (*body)["id"])
		assert.Equal(t, "active", (*body)["status"])
	})

	t.Run("patch status", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/instruments/"+instrumentID, map[string]any{
			"status": "maintenance",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "maintenance", (*body)["status"])
	})

	t.Run("malformed id is bad request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/instruments/not-a-uuid", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/instruments/"+uuid.NewString(), nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		testutil.AssertErrorCode(t, rr, "not_found")
	})
}

func TestCertificateEndpoints(t *testing.T) {
	env := newTestEnv()
	technician := testActor(models.RoleTechnician)
	qa := testActor(models.RoleQA)

	submission := map[string]any{
		"certificate_number": "CERT-001",
		"certificate_type":   "ROUTINE",
		"issue_date":         "2026-03-10T12:00:00Z",
		"expiry_date":        "2027-03-10T12:00:00Z",
		"calibration_data": map[string]any{
			"standard_used": "NIST-123",
			"uncertainty":   0.05,
			"temperature": map[string]any{
				"measured_values":         []any{20.1, 25.0},
				"reference_values":        []any{20.0, 25.0},
				"correlation_coefficient": 0.999,
				"uncertainty":             0.01,
			},
		},
	}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates", submission)
	rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[map[string]any](t, rr)
	certID := (*created)["id"].(string)
	assert.Equal(t, "DRAFT", (*created)["status"])

	t.Run("mismatched correlation lengths are rejected", func(t *testing.T) {
		bad := map[string]any{
			"certificate_number": "CERT-002",
			"certificate_type":   "ROUTINE",
			"issue_date":         "2026-03-10T12:00:00Z",
			"expiry_date":        "2027-03-10T12:00:00Z",
			"calibration_data": map[string]any{
				"standard_used": "NIST-123",
				"uncertainty":   0.05,
				"temperature": map[string]any{
					"measured_values":  []any{20.1, 25.0},
					"reference_values": []any{20.0},
				},
			},
		}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates", bad)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "validation")
	})

	t.Run("submit queues the draft for review", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/submit", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusOK)
		submitted := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "PENDING_REVIEW", (*submitted)["status"])
	})

	t.Run("technician may not review", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/review", map[string]any{
			"decision": "approved",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		testutil.AssertErrorCode(t, rr, "forbidden")
	})

	t.Run("QA approves", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/review", map[string]any{
			"decision": "approved",
			"notes":    "within tolerance",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, qa))
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "APPROVED", (*body)["status"])
	})

	t.Run("version requires admin", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/versions", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("admin creates a version and history lists both", func(t *testing.T) {
		admin := testActor(models.RoleAdmin)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/versions", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, admin))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		next := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, float64(2), (*next)["version"])
		assert.Equal(t, "DRAFT", (*next)["status"])

		req = testutil.NewJSONRequest(t, http.MethodGet, "/certificates/"+certID+"?versions=all", nil)
		rr = testutil.DoRequest(env.router, testutil.WithActor(req, admin))
		testutil.AssertStatus(t, rr, http.StatusOK)
		versions := testutil.UnmarshalResponse[[]map[string]any](t, rr)
		require.Len(t, *versions, 2)
	})

	t.Run("evaluate acceptance criteria", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/"+certID+"/evaluate", map[string]any{
			"temperature": map[string]any{"tolerance": 0.5},
		})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, true, (*body)["valid"])
		assert.Equal(t, "All acceptance criteria met", (*body)["message"])
	})
}

func TestCalibrationEndpoints(t *testing.T) {
	env := newTestEnv()
	technician := testActor(models.RoleTechnician)

	instrument := env.registerInstrument(t, technician)
	instrumentID := instrument["id"].(string)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calibrations", map[string]any{
		"instrument_id":    instrumentID,
		"calibration_type": "routine",
		"description":      "annual check",
		"status":           "scheduled",
	})
	rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	record := testutil.UnmarshalResponse[map[string]any](t, rr)
	recordID := (*record)["id"].(string)

	t.Run("invalid transition reports the states", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/calibrations/"+recordID, map[string]any{
			"status": "completed",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Contains(t, (*body)["message"], "Invalid status transition from scheduled to completed")
	})

	t.Run("history endpoint lists records", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/instruments/"+instrumentID+"/calibrations", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusOK)

		records := testutil.UnmarshalResponse[[]map[string]any](t, rr)
		require.Len(t, *records, 1)
	})
}

func TestReviewEndpoints(t *testing.T) {
	env := newTestEnv()
	manager := testActor(models.RoleManager)

	instrument := env.registerInstrument(t, manager)
	instrumentID := instrument["id"].(string)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/reviews", map[string]any{
		"instrument_id": instrumentID,
		"priority":      "high",
		"reason":        "drift observed",
	})
	rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	review := testutil.UnmarshalResponse[map[string]any](t, rr)
	reviewID := (*review)["id"].(string)
	assert.Equal(t, "pending", (*review)["status"])

	t.Run("instrument review status follows", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/instruments/"+instrumentID, nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "pending", (*body)["review_status"])
	})

	t.Run("manual ticket without a bridge is unavailable", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/reviews/"+reviewID+"/ticket", nil)
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		testutil.AssertErrorCode(t, rr, "unavailable")
	})

	t.Run("complete the review", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/reviews/"+reviewID, map[string]any{
			"status": "completed",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, manager))
		testutil.AssertStatus(t, rr, http.StatusOK)

		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "completed", (*body)["status"])
	})
}

func TestMaintenanceEndpoints(t *testing.T) {
	env := newTestEnv()
	technician := testActor(models.RoleTechnician)

	instrument := env.registerInstrument(t, technician)
	instrumentID := instrument["id"].(string)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/maintenance", map[string]any{
		"instrument_id":    instrumentID,
		"maintenance_type": "preventive",
		"description":      "filter replacement",
		"start_date":       "2026-03-10T09:00:00Z",
	})
	rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	record := testutil.UnmarshalResponse[map[string]any](t, rr)
	recordID := (*record)["id"].(string)
	assert.Equal(t, "scheduled", (*record)["status"])

	t.Run("end date before start date is rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/maintenance/"+recordID, map[string]any{
			"end_date": "2026-03-10T08:00:00Z",
		})
		rr := testutil.DoRequest(env.router, testutil.WithActor(req, technician))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
