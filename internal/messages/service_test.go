package messages

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/intake"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notify.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Subject)
	}
	sort.Strings(out)
	return out
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

var testMail = MailSettings{
	ClinicPhone: "0798057622",
	ClinicEmail: "dohanimedicare@gmail.com",
	StaffEmail:  "staff@dohani.test",
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingSender, *capturePublisher) {
	t.Helper()
	logger := logging.New("error")
	store := NewMemoryStore()
	sender := &recordingSender{}
	pub := &capturePublisher{}
	runner := intake.NewRunner(notify.NewDispatcher(sender, time.Second, logger, nil), pub, nil, logger)
	return NewService(store, runner, testMail, logger), store, sender, pub
}

func TestService_Submit(t *testing.T) {
	svc, store, sender, pub := newTestService(t)

	m, err := svc.Submit(context.Background(), Submission{Name: "Amina", Email: "amina@example.com", Message: "Hello\nWorld"})
	require.NoError(t, err)
	assert.Equal(t, StatusUnread, m.Status)
	assert.Equal(t, SourceWebsite, m.Source)

	stored, err := store.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p><p>World</p>", stored.HTML)

	assert.Equal(t, []string{"New Website Message from Amina", "Thank you for contacting Dohani Medicare"}, sender.subjects())
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeMessageReceived, pub.events[0].Type)
}

func TestService_SubmitValidation(t *testing.T) {
	svc, store, sender, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), Submission{Email: "bad"})
	var ve *intake.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, intake.KindMissingFields, ve.Kind)
	assert.Equal(t, []string{"name", "message"}, ve.Fields)

	_, err = svc.Submit(context.Background(), Submission{Name: "A", Email: "bad", Message: "x"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, intake.KindInvalidEmail, ve.Kind)

	all, _ := store.List(context.Background(), Filter{})
	assert.Empty(t, all)
	assert.Empty(t, sender.subjects())
}

func TestService_SubmitSucceedsWhenMailFails(t *testing.T) {
	svc, _, sender, _ := newTestService(t)
	sender.err = errors.New("provider down")

	m, err := svc.Submit(context.Background(), Submission{Name: "A", Email: "a@b.co", Message: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
}

func TestService_NotifyChatbot(t *testing.T) {
	svc, _, sender, _ := newTestService(t)

	m, err := svc.NotifyChatbot(context.Background(), ChatbotRequest{Type: "appointment", Content: "Book me in"})
	require.NoError(t, err)
	assert.Equal(t, SourceChatbot, m.Source)
	assert.Equal(t, "[Chatbot Request - appointment] Book me in", m.Body)
	assert.Equal(t, []string{"Chatbot Request: appointment"}, sender.subjects())

	_, err = svc.NotifyChatbot(context.Background(), ChatbotRequest{Type: "appointment"})
	var ve *intake.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"content"}, ve.Fields)

	_, err = svc.NotifyChatbot(context.Background(), ChatbotRequest{Type: "t", Content: "c", Email: "nope"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, intake.KindInvalidEmail, ve.Kind)
}

func TestService_MarkAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)
	m, err := svc.Submit(ctx, Submission{Name: "A", Email: "a@b.co", Message: "x"})
	require.NoError(t, err)

	replied, err := svc.MarkStatus(ctx, m.ID, "replied")
	require.NoError(t, err)
	assert.Equal(t, StatusReplied, replied.Status)

	// Handling status is not a one-way graph.
	unread, err := svc.MarkStatus(ctx, m.ID, "NEW")
	require.NoError(t, err)
	assert.Equal(t, StatusUnread, unread.Status)

	_, err = svc.MarkStatus(ctx, m.ID, "bogus")
	var ve *intake.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, intake.KindInvalidStatus, ve.Kind)

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, err = svc.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
