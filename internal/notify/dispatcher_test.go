package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	failOn map[string]error
	delay  time.Duration
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failOn[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type observation struct {
	template string
	status   string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveNotification(template, status string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{template, status})
}

func TestDispatcher_SendsAllMessages(t *testing.T) {
	sender := &recordingSender{}
	observer := &recordingObserver{}
	d := NewDispatcher(sender, time.Second, logging.New("error"), observer)

	results := d.Dispatch(context.Background(),
		EmailMessage{To: "patient@x.com", Subject: "a", Template: "booking_patient"},
		EmailMessage{To: "staff@x.com", Subject: "b", Template: "booking_staff"},
	)

	require.Len(t, results, 2)
	assert.Equal(t, 0, Failed(results))
	assert.Len(t, sender.sent, 2)
	assert.ElementsMatch(t, []observation{{"booking_patient", "sent"}, {"booking_staff", "sent"}}, observer.obs)
}

func TestDispatcher_FailuresAreReportedNotFatal(t *testing.T) {
	sender := &recordingSender{failOn: map[string]error{"patient@x.com": errors.New("smtp down")}}
	d := NewDispatcher(sender, time.Second, logging.New("error"), nil)

	results := d.Dispatch(context.Background(),
		EmailMessage{To: "patient@x.com", Subject: "a"},
		EmailMessage{To: "staff@x.com", Subject: "b"},
	)

	require.Len(t, results, 2)
	assert.EqualError(t, results[0].Err, "smtp down")
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, Failed(results))
}

func TestDispatcher_TimesOutSlowSender(t *testing.T) {
	sender := &recordingSender{delay: 200 * time.Millisecond}
	observer := &recordingObserver{}
	d := NewDispatcher(sender, 20*time.Millisecond, logging.New("error"), observer)

	start := time.Now()
	results := d.Dispatch(context.Background(), EmailMessage{To: "patient@x.com", Template: "status_confirmed"})
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, []observation{{"status_confirmed", "timeout"}}, observer.obs)
}

func TestDispatcher_IgnoresRequestCancellation(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.Second, logging.New("error"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := d.Dispatch(ctx, EmailMessage{To: "patient@x.com"})
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestDispatcher_MissingRecipient(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, time.Second, logging.New("error"), nil)
	results := d.Dispatch(context.Background(), EmailMessage{Subject: "no one"})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNoRecipient)
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(nil, 0, nil, nil)
	assert.Equal(t, DefaultTimeout, d.timeout)
	assert.IsType(t, &StubEmailSender{}, d.sender)
}
