package messages

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dohanimedicare/medicare-platform/internal/cms"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler serves the contact form, chatbot escalation and admin inbox.
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

// Submit handles POST /api/submit-message.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if !decode(w, r, &sub) {
		return
	}
	m, err := h.svc.Submit(r.Context(), sub)
	if err != nil {
		h.writeError(w, err, "Failed to save message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Message submitted successfully",
		"id":      m.ID,
	})
}

// Chatbot handles POST /api/chatbot/notify.
func (h *Handler) Chatbot(w http.ResponseWriter, r *http.Request) {
	var req ChatbotRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.NotifyChatbot(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to save message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"status":  "notification sent",
		"id":      m.ID,
	})
}

// List handles GET /admin/messages?status=UNREAD,READ&source=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var f Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		for _, part := range strings.Split(raw, ",") {
			st, err := ParseStatus(part)
			if err != nil {
				h.writeError(w, &intake.ValidationError{Kind: intake.KindInvalidStatus, Fields: []string{"status"}}, "")
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if src := strings.TrimSpace(r.URL.Query().Get("source")); src != "" {
		f.Source = Source(strings.ToUpper(src))
	}
	msgs, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs, "count": len(msgs)})
}

// Get handles GET /admin/messages/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// MarkStatus handles PATCH /admin/messages/{id}/status.
func (h *Handler) MarkStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.MarkStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /admin/messages/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, saveMessage string) {
	var (
		ve      *intake.ValidationError
		respErr *cms.ResponseError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ve.Response())
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Message not found"})
	case saveMessage != "" && errors.As(err, &respErr) && len(respErr.Errors) > 0:
		h.logger.Warn("content store rejected message", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": saveMessage, "details": respErr.Errors})
	default:
		h.logger.Error("message request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": "Please try again later",
		})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
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
