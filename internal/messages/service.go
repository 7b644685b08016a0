package messages

import (
	"context"
	"strings"

	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Service runs the contact and chatbot intake plans and the admin inbox.
type Service struct {
	store  Store
	runner *intake.Runner
	mail   MailSettings
	logger *logging.Logger
}

func NewService(store Store, runner *intake.Runner, mail MailSettings, logger *logging.Logger) *Service {
	if store == nil {
		panic("messages: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if runner == nil {
		runner = intake.NewRunner(nil, nil, nil, logger)
	}
	return &Service{store: store, runner: runner, mail: mail.withDefaults(), logger: logger}
}

// Submit stores a contact-form message, alerts staff and confirms receipt.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Message, error) {
	plan := intake.Plan[Submission, *Message]{
		Kind: intake.KindContact,
		Validate: func(in Submission) error {
			return intake.CheckContact(in.Email,
				intake.Field{Name: "name", Value: in.Name},
				intake.Field{Name: "email", Value: in.Email},
				intake.Field{Name: "message", Value: in.Message},
			)
		},
		Persist: func(ctx context.Context, in Submission) (*Message, error) {
			return s.store.Create(ctx, newWebsiteMessage(in))
		},
		Notifications: func(m *Message) []notify.EmailMessage {
			var msgs []notify.EmailMessage
			if s.mail.StaffEmail != "" {
				staff, err := StaffNotice(*m, s.mail)
				msgs = s.keep(msgs, m.ID, staff, err)
			}
			confirmation, err := SenderConfirmation(*m, s.mail)
			return s.keep(msgs, m.ID, confirmation, err)
		},
		Event: messageEvent,
	}
	return intake.Run(ctx, s.runner, plan, sub)
}

// NotifyChatbot stores a chatbot escalation and forwards it to staff.
// Name and email are optional; type and content are required.
func (s *Service) NotifyChatbot(ctx context.Context, req ChatbotRequest) (*Message, error) {
	plan := intake.Plan[ChatbotRequest, *Message]{
		Kind: intake.KindChatbot,
		Validate: func(in ChatbotRequest) error {
			if missing := intake.MissingFields(
				intake.Field{Name: "type", Value: in.Type},
				intake.Field{Name: "content", Value: in.Content},
			); len(missing) > 0 {
				return &intake.ValidationError{Kind: intake.KindMissingFields, Fields: missing}
			}
			if email := strings.TrimSpace(in.Email); email != "" && !intake.ValidEmail(email) {
				return &intake.ValidationError{Kind: intake.KindInvalidEmail}
			}
			return nil
		},
		Persist: func(ctx context.Context, in ChatbotRequest) (*Message, error) {
			return s.store.Create(ctx, newChatbotMessage(in))
		},
		Notifications: func(m *Message) []notify.EmailMessage {
			if s.mail.StaffEmail == "" {
				s.logger.Warn("staff email not configured, chatbot request not forwarded", "message_id", m.ID)
				return nil
			}
			notice, err := ChatbotNotice(*m, req, s.mail)
			return s.keep(nil, m.ID, notice, err)
		},
		Event: messageEvent,
	}
	return intake.Run(ctx, s.runner, plan, req)
}

// keep appends msg unless rendering it failed.
func (s *Service) keep(msgs []notify.EmailMessage, id string, msg notify.EmailMessage, err error) []notify.EmailMessage {
	if err != nil {
		s.logger.Error("render message email failed", "message_id", id, "error", err)
		return msgs
	}
	return append(msgs, msg)
}

func messageEvent(m *Message) (events.Event, error) {
	return events.New(events.TypeMessageReceived, m.ID, map[string]string{
		"messageId": m.ID,
		"source":    string(m.Source),
	})
}

func (s *Service) List(ctx context.Context, f Filter) ([]Message, error) {
	return s.store.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*Message, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// MarkStatus sets the handling status. Any status may follow any other.
func (s *Service) MarkStatus(ctx context.Context, id, status string) (*Message, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, &intake.ValidationError{Kind: intake.KindInvalidStatus, Fields: []string{"status"}}
	}
	m, err := s.store.UpdateStatus(ctx, strings.TrimSpace(id), st)
	if err != nil {
		return nil, err
	}
	s.logger.Info("message status changed", "message_id", m.ID, "status", st)
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.logger.Info("message deleted", "message_id", id)
	return nil
}
