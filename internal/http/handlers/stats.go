package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/internal/observability/metrics"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// AppointmentLister is the read side of the appointment service.
type AppointmentLister interface {
	List(ctx context.Context, f appointments.Filter) ([]appointments.Appointment, error)
}

// MessageLister is the read side of the message service.
type MessageLister interface {
	List(ctx context.Context, f messages.Filter) ([]messages.Message, error)
}

// StatsHandler serves the admin dashboard overview.
type StatsHandler struct {
	appointments AppointmentLister
	messages     MessageLister
	gatherer     prometheus.Gatherer
	logger       *logging.Logger
	now          func() time.Time
}

func NewStatsHandler(appts AppointmentLister, msgs MessageLister, gatherer prometheus.Gatherer, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		appointments: appts,
		messages:     msgs,
		gatherer:     gatherer,
		logger:       logger,
		now:          time.Now,
	}
}

// AppointmentStats counts appointments per lifecycle status.
type AppointmentStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	Today    int            `json:"today"`
}

// MessageStats counts inbox messages.
type MessageStats struct {
	Total    int            `json:"total"`
	Unread   int            `json:"unread"`
	BySource map[string]int `json:"bySource"`
}

// StatsResponse is the body for GET /admin/stats.
type StatsResponse struct {
	GeneratedAt  time.Time        `json:"generatedAt"`
	Appointments AppointmentStats `json:"appointments"`
	Messages     MessageStats     `json:"messages"`
	Workflow     metrics.Summary  `json:"workflow"`
}

// Stats handles GET /admin/stats.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()
	resp := StatsResponse{
		GeneratedAt: now,
		Appointments: AppointmentStats{
			ByStatus: map[string]int{},
		},
		Messages: MessageStats{
			BySource: map[string]int{},
		},
		Workflow: metrics.Summarize(h.gatherer),
	}
	for _, s := range appointments.AllStatuses {
		resp.Appointments.ByStatus[string(s)] = 0
	}

	if h.appointments != nil {
		appts, err := h.appointments.List(ctx, appointments.Filter{})
		if err != nil {
			h.logger.Error("stats: failed to list appointments", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load stats"})
			return
		}
		today := now.Format("2006-01-02")
		resp.Appointments.Total = len(appts)
		for _, a := range appts {
			resp.Appointments.ByStatus[string(a.Status)]++
			if a.PreferredDate == today {
				resp.Appointments.Today++
			}
		}
	}

	if h.messages != nil {
		msgs, err := h.messages.List(ctx, messages.Filter{})
		if err != nil {
			h.logger.Error("stats: failed to list messages", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load stats"})
			return
		}
		resp.Messages.Total = len(msgs)
		for _, m := range msgs {
			if m.Status == messages.StatusUnread {
				resp.Messages.Unread++
			}
			resp.Messages.BySource[string(m.Source)]++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
