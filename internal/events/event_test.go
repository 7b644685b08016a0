package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestNewEvent(t *testing.T) {
	evt, err := New(TypeAppointmentCreated, "apt-1", map[string]string{"status": "PENDING"})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "apt-1", evt.AggregateID)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(evt.Payload))
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestSQSPublisher_Publish(t *testing.T) {
	client := &fakeSQS{}
	p := NewSQSPublisher(client, "https://sqs.local/queue")

	evt, err := New(TypeAppointmentStatusChanged, "apt-1", map[string]string{"from": "PENDING", "to": "CONFIRMED"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "https://sqs.local/queue", aws.ToString(in.QueueUrl))
	assert.Equal(t, TypeAppointmentStatusChanged, aws.ToString(in.MessageAttributes["type"].StringValue))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
}

func TestSQSPublisher_Error(t *testing.T) {
	p := NewSQSPublisher(&fakeSQS{err: errors.New("queue missing")}, "q")
	evt, _ := New(TypeMessageReceived, "msg-1", nil)
	err := p.Publish(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue missing")
}

func TestNewSQSPublisher_PanicsWithoutQueue(t *testing.T) {
	assert.Panics(t, func() { NewSQSPublisher(&fakeSQS{}, "") })
}

func TestLogPublisher(t *testing.T) {
	evt, _ := New(TypeMessageReceived, "msg-1", nil)
	assert.NoError(t, NewLogPublisher(logging.New("error")).Publish(context.Background(), evt))
}
