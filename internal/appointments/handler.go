package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Handler serves the public booking endpoints and the admin dashboard API.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// BookingDetails echoes the scheduling fields back to the booking form.
type BookingDetails struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Type   Type   `json:"type"`
	Status Status `json:"status"`
}

// BookingResponse is the 201 body for POST /api/book-appointment.
type BookingResponse struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	AppointmentID      string         `json:"appointmentId"`
	AppointmentDetails BookingDetails `json:"appointmentDetails"`
}

// Book handles POST /api/book-appointment.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if !decode(w, r, &sub) {
		return
	}
	appt, err := h.svc.Book(r.Context(), sub)
	if err != nil {
		h.writeError(w, err, "Failed to save appointment")
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{
		Success:       true,
		Message:       "Appointment booked successfully",
		AppointmentID: appt.ID,
		AppointmentDetails: BookingDetails{
			Date:   appt.PreferredDate,
			Time:   appt.PreferredTime,
			Type:   appt.AppointmentType,
			Status: appt.Status,
		},
	})
}

type statusUpdateRequest struct {
	AppointmentID string `json:"appointmentId"`
	NewStatus     string `json:"newStatus"`
}

// UpdateStatus handles POST /api/appointment-status-update.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.svc.UpdateStatus(r.Context(), req.AppointmentID, req.NewStatus); err != nil {
		h.writeError(w, err, "Failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// List handles GET /admin/appointments?status=&date=&search=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	appts, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"count":        len(appts),
	})
}

// Get handles GET /admin/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// AdminUpdateStatus handles PATCH /admin/appointments/{id}/status.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	appt, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, err, "Failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles POST /admin/appointments/{id}/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, err, "Failed to reschedule appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ExportCSV handles GET /admin/appointments/export.csv with the same filters
// as List.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	appts, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="appointments-%s.csv"`, h.svc.today().Format(dateLayout)))
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, appts); err != nil {
		h.logger.Error("write appointments csv failed", "error", err)
	}
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Date:   strings.TrimSpace(q.Get("date")),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		st, err := ParseStatus(raw)
		if err != nil {
			return Filter{}, &intake.ValidationError{Kind: intake.KindInvalidStatus, Fields: []string{"status"}}
		}
		f.Status = st
	}
	return f, nil
}

// writeError maps workflow errors onto the booking API's response contract.
// saveMessage is the error text used when the content store rejects a write.
func (h *Handler) writeError(w http.ResponseWriter, err error, saveMessage string) {
	var (
		ve *intake.ValidationError
		te *TransitionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ve.Response())
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Appointment not found"})
	case errors.As(err, &te):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid status transition",
			"message": fmt.Sprintf("Cannot change status from %s to %s", te.From, te.To),
		})
	case errors.Is(err, ErrNotReschedulable):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Only pending or confirmed appointments can be rescheduled",
		})
	default:
		if details, ok := CMSRejection(err); ok && saveMessage != "" {
			h.logger.Warn("content store rejected write", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": saveMessage, "details": details})
			return
		}
		h.logger.Error("appointment request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": "Please try again later or call us directly",
		})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
