package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

var outboxColumns = []string{"id", "type", "aggregate_id", "payload", "created_at"}

type recordingPublisher struct {
	got []Event
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, evt)
	return nil
}

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)

	evt, err := New(TypeAppointmentCreated, "apt-1", map[string]string{"status": "PENDING"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO event_outbox").
		WithArgs(evt.ID, TypeAppointmentCreated, "apt-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, NewOutboxPublisher(store).Publish(context.Background(), evt))

	body, err := json.Marshal(evt)
	require.NoError(t, err)
	rows := pgxmock.NewRows(outboxColumns).AddRow(evt.ID, evt.Type, evt.AggregateID, body, time.Now().UTC())
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	decoded, err := entries[0].Event()
	require.NoError(t, err)
	assert.Equal(t, evt.ID, decoded.ID)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(decoded.Payload))

	mock.ExpectExec("UPDATE event_outbox").WithArgs(evt.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), evt.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelivererRelaysAndMarksDelivered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ok, _ := New(TypeMessageReceived, "msg-1", nil)
	okBody, _ := json.Marshal(ok)
	rows := pgxmock.NewRows(outboxColumns).
		AddRow(ok.ID, ok.Type, ok.AggregateID, okBody, time.Now().UTC()).
		AddRow("bad-1", "broken", "x", []byte("not json"), time.Now().UTC())
	mock.ExpectQuery("SELECT id").WithArgs(int32(25)).WillReturnRows(rows)
	mock.ExpectExec("UPDATE event_outbox").WithArgs(ok.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	pub := &recordingPublisher{}
	d := NewDeliverer(newOutboxStoreWithExec(mock), RelayTo(pub), logging.New("error"))

	assert.Equal(t, 1, d.drain(context.Background()))
	require.Len(t, pub.got, 1)
	assert.Equal(t, ok.ID, pub.got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelivererLeavesFailedEntriesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	evt, _ := New(TypeAppointmentRescheduled, "apt-2", nil)
	body, _ := json.Marshal(evt)
	mock.ExpectQuery("SELECT id").WithArgs(int32(5)).
		WillReturnRows(pgxmock.NewRows(outboxColumns).AddRow(evt.ID, evt.Type, evt.AggregateID, body, time.Now().UTC()))

	d := NewDeliverer(newOutboxStoreWithExec(mock), RelayTo(&recordingPublisher{err: errors.New("sqs down")}), logging.New("error")).
		WithBatchSize(5)

	assert.Equal(t, 0, d.drain(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelivererFlushRelaysOneBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	evt, _ := New(TypeAppointmentStatusChanged, "apt-3", nil)
	body, _ := json.Marshal(evt)
	mock.ExpectQuery("SELECT id").WithArgs(int32(25)).
		WillReturnRows(pgxmock.NewRows(outboxColumns).AddRow(evt.ID, evt.Type, evt.AggregateID, body, time.Now().UTC()))
	mock.ExpectExec("UPDATE event_outbox").WithArgs(evt.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	pub := &recordingPublisher{}
	d := NewDeliverer(newOutboxStoreWithExec(mock), RelayTo(pub), logging.New("error"))

	assert.Equal(t, 1, d.Flush(context.Background()))
	require.Len(t, pub.got, 1)
	require.NoError(t, mock.ExpectationsWereMet())

	var none *Deliverer
	assert.Equal(t, 0, none.Flush(context.Background()))
}
