package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Service owns the booking workflow and the status lifecycle.
type Service struct {
	store  Store
	runner *intake.Runner
	mail   MailSettings
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires a store to the shared intake runner.
func NewService(store Store, runner *intake.Runner, mail MailSettings, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if runner == nil {
		runner = intake.NewRunner(nil, nil, nil, logger)
	}
	return &Service{
		store:  store,
		runner: runner,
		mail:   mail.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// today is the current calendar date in the clinic's timezone.
func (s *Service) today() time.Time {
	return s.now().In(s.mail.Location)
}

// Book validates, stores and acknowledges a new appointment. Only validation
// and persistence errors are returned; mail and event failures are logged.
func (s *Service) Book(ctx context.Context, sub Submission) (*Appointment, error) {
	plan := intake.Plan[Submission, *Appointment]{
		Kind: intake.KindAppointment,
		Validate: func(in Submission) error {
			return Validate(in, s.today())
		},
		Persist: s.store.Create,
		Notifications: func(a *Appointment) []notify.EmailMessage {
			return s.bookingMail(a)
		},
		Event: func(a *Appointment) (events.Event, error) {
			return events.New(events.TypeAppointmentCreated, a.ID, a)
		},
	}
	appt, err := intake.Run(ctx, s.runner, plan, sub)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "type", appt.AppointmentType, "date", appt.PreferredDate)
	return appt, nil
}

func (s *Service) bookingMail(a *Appointment) []notify.EmailMessage {
	var msgs []notify.EmailMessage
	if patient, err := PatientConfirmation(*a, s.mail); err != nil {
		s.logger.Error("render patient confirmation failed", "appointment_id", a.ID, "error", err)
	} else {
		msgs = append(msgs, patient)
	}
	if s.mail.StaffEmail == "" {
		s.logger.Warn("staff email not configured, skipping booking summary", "appointment_id", a.ID)
		return msgs
	}
	if staff, err := StaffSummary(*a, s.mail, s.now()); err != nil {
		s.logger.Error("render staff summary failed", "appointment_id", a.ID, "error", err)
	} else {
		msgs = append(msgs, staff)
	}
	return msgs
}

// StatusChange is the payload of appointment.status_changed.
type StatusChange struct {
	AppointmentID string `json:"appointmentId"`
	From          Status `json:"from"`
	To            Status `json:"to"`
}

// UpdateStatus moves an appointment along the lifecycle graph and mails the
// patient when the new status has a template. newStatus is parsed
// case-insensitively; unknown values are a validation error.
func (s *Service) UpdateStatus(ctx context.Context, id, newStatus string) (*Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(newStatus) == "" {
		var missing []string
		if id == "" {
			missing = append(missing, "appointmentId")
		}
		if strings.TrimSpace(newStatus) == "" {
			missing = append(missing, "newStatus")
		}
		return nil, &intake.ValidationError{Kind: intake.KindMissingFields, Fields: missing}
	}
	to, err := ParseStatus(newStatus)
	if err != nil {
		return nil, &intake.ValidationError{Kind: intake.KindInvalidStatus, Fields: []string{"newStatus"}}
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	if !from.CanTransition(to) {
		s.runner.Metrics().ObserveTransition(string(from), string(to), "rejected")
		return nil, &TransitionError{From: from, To: to}
	}

	updated, err := s.store.UpdateStatus(ctx, id, to)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrInvalidTransition) {
			outcome = "rejected"
		}
		s.runner.Metrics().ObserveTransition(string(from), string(to), outcome)
		return nil, err
	}
	s.runner.Metrics().ObserveTransition(string(from), string(to), "applied")
	s.logger.Info("appointment status changed", "appointment_id", id, "from", from, "to", to)

	if kind, ok := notificationFor(to); ok {
		s.notifyPatient(ctx, updated, kind)
	}
	s.runner.PublishFrom(ctx, func() (events.Event, error) {
		return events.New(events.TypeAppointmentStatusChanged, id, StatusChange{AppointmentID: id, From: from, To: to})
	})
	return updated, nil
}

// RescheduleRequest is the admin payload for moving an appointment.
type RescheduleRequest struct {
	PreferredDate string `json:"preferredDate"`
	PreferredTime string `json:"preferredTime"`
}

// Reschedule moves a PENDING or CONFIRMED appointment to a new date and time
// and sends the rescheduled notice. The status is left unchanged.
func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error) {
	if missing := intake.MissingFields(
		intake.Field{Name: "preferredDate", Value: req.PreferredDate},
		intake.Field{Name: "preferredTime", Value: req.PreferredTime},
	); len(missing) > 0 {
		return nil, &intake.ValidationError{Kind: intake.KindMissingFields, Fields: missing}
	}
	if err := ValidateDate(req.PreferredDate, s.today()); err != nil {
		return nil, err
	}
	date, _ := parseDate(req.PreferredDate)

	previous, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !previous.Status.Reschedulable() {
		return nil, ErrNotReschedulable
	}
	updated, err := s.store.Reschedule(ctx, id, date.Format(dateLayout), strings.TrimSpace(req.PreferredTime))
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", id,
		"from_date", previous.PreferredDate, "to_date", updated.PreferredDate)

	s.notifyPatient(ctx, updated, NotifyRescheduled)
	s.runner.PublishFrom(ctx, func() (events.Event, error) {
		return events.New(events.TypeAppointmentRescheduled, id, map[string]string{
			"appointmentId": id,
			"previousDate":  previous.PreferredDate,
			"previousTime":  previous.PreferredTime,
			"preferredDate": updated.PreferredDate,
			"preferredTime": updated.PreferredTime,
		})
	})
	return updated, nil
}

func (s *Service) notifyPatient(ctx context.Context, a *Appointment, kind NotificationKind) {
	msg, err := StatusNotification(*a, kind, s.mail)
	if err != nil {
		s.logger.Error("render status notification failed", "appointment_id", a.ID, "kind", kind, "error", err)
		return
	}
	s.runner.Notify(ctx, msg)
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// List returns every appointment matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Appointment, error) {
	return s.store.FindByFilter(ctx, f)
}
