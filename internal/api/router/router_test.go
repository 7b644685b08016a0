package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/http/handlers"
	httpmiddleware "github.com/dohanimedicare/medicare-platform/internal/http/middleware"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/internal/observability/metrics"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

const testSecret = "router-test-secret"

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func newTestRouter(t *testing.T, limiter httpmiddleware.Limiter) http.Handler {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.NewWorkflowMetrics(reg)
	dispatcher := notify.NewDispatcher(notify.NewStubEmailSender(logger), time.Second, logger, m)
	runner := intake.NewRunner(dispatcher, events.NewLogPublisher(logger), m, logger)

	apptSvc := appointments.NewService(appointments.NewMemoryStore(), runner, appointments.MailSettings{}, logger)
	msgSvc := messages.NewService(messages.NewMemoryStore(), runner, messages.MailSettings{}, logger)

	return New(&Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
		MessagesHandler:     messages.NewHandler(msgSvc, logger),
		HealthHandler:       handlers.NewHealthHandler(),
		StatsHandler:        handlers.NewStatsHandler(apptSvc, msgSvc, reg, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimiter:         limiter,
		AdminAuthSecret:     testSecret,
	})
}

func send(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := httpmiddleware.IssueAdminToken(testSecret, "ops@dohani.test", time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func bookingPayload() map[string]any {
	return map[string]any{
		"firstName":       "Amina",
		"lastName":        "Otieno",
		"email":           "amina@example.com",
		"phone":           "0712345678",
		"appointmentType": "general",
		"preferredDate":   "2099-01-15",
		"preferredTime":   "10:00",
		"reason":          "Annual checkup",
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := send(t, router, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestRouterRejectsWrongMethodOnSubmissionPaths(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/api/book-appointment", "/api/submit-message", "/api/appointment-status-update"} {
		rr := send(t, router, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, path)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rr.Body.String(), path)
	}
}

func TestRouterPreflightShortCircuits(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/book-appointment", nil)
	req.Header.Set("Origin", "https://dohanimedicare.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterBookingThenAdminConfirm(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := send(t, router, http.MethodPost, "/api/book-appointment", bookingPayload(), "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var booked appointments.BookingResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&booked))
	require.NotEmpty(t, booked.AppointmentID)
	assert.Equal(t, appointments.StatusPending, booked.AppointmentDetails.Status)

	token := adminToken(t)
	rr = send(t, router, http.MethodPost, "/admin/appointments/"+booked.AppointmentID+"/status",
		map[string]string{"status": "CONFIRMED"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = send(t, router, http.MethodGet, "/admin/appointments/"+booked.AppointmentID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var got appointments.Appointment
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, appointments.StatusConfirmed, got.Status)

	rr = send(t, router, http.MethodGet, "/admin/stats", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats handlers.StatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Appointments.ByStatus["CONFIRMED"])
	assert.Equal(t, int64(1), stats.Workflow.Intake["appointment"]["success"])
}

func TestRouterPublicStatusUpdateRejectsBackwardsTransition(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := send(t, router, http.MethodPost, "/api/book-appointment", bookingPayload(), "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var booked appointments.BookingResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&booked))

	rr = send(t, router, http.MethodPost, "/api/appointment-status-update",
		map[string]string{"appointmentId": booked.AppointmentID, "newStatus": "COMPLETED"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid status transition")
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/admin/appointments", "/admin/messages", "/admin/stats"} {
		rr := send(t, router, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestRouterMessageLifecycle(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := send(t, router, http.MethodPost, "/api/submit-message", map[string]string{
		"name":    "Joseph Kamau",
		"email":   "joseph@example.com",
		"message": "Do you accept NHIF?",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	token := adminToken(t)
	rr = send(t, router, http.MethodPatch, "/admin/messages/"+created.ID+"/status", map[string]string{"status": "READ"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = send(t, router, http.MethodDelete, "/admin/messages/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = send(t, router, http.MethodGet, "/admin/messages/"+created.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterRateLimitsPublicSubmissions(t *testing.T) {
	router := newTestRouter(t, denyAll{})

	rr := send(t, router, http.MethodPost, "/api/book-appointment", bookingPayload(), "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = send(t, router, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterServesMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	send(t, router, http.MethodPost, "/api/book-appointment", bookingPayload(), "")
	rr := send(t, router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "intake_requests_total")
}
