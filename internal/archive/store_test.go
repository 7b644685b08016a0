package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	getErr   error
	putErr   error
}

type putCall struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket:      *input.Bucket,
		key:         *input.Key,
		contentType: *input.ContentType,
		body:        body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

var exportTime = time.Date(2026, 10, 16, 7, 30, 5, 0, time.UTC)

func TestKey(t *testing.T) {
	assert.Equal(t, "exports/appointments/2026/10/16/20261016T073005Z.csv", Key("appointments", exportTime))
}

func TestStore_PutWritesExportAndManifest(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "dohani-exports", nil)

	key, err := store.Put(context.Background(), Export{
		Dataset: "appointments",
		Body:    []byte("Date,Time\n"),
		Rows:    0,
		Filter:  "status=CONFIRMED",
		At:      exportTime,
	})
	require.NoError(t, err)
	assert.Equal(t, "exports/appointments/2026/10/16/20261016T073005Z.csv", key)

	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "dohani-exports", mock.putCalls[0].bucket)
	assert.Equal(t, "text/csv", mock.putCalls[0].contentType)
	assert.Equal(t, "Date,Time\n", string(mock.putCalls[0].body))

	manifest := mock.putCalls[1]
	assert.Equal(t, "exports/appointments/manifests/2026-10.jsonl", manifest.key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(manifest.body), &entry))
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, "status=CONFIRMED", entry.Filter)
}

func TestStore_ManifestAppends(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "b", nil)

	_, err := store.Put(context.Background(), Export{Dataset: "appointments", At: exportTime})
	require.NoError(t, err)
	_, err = store.Put(context.Background(), Export{Dataset: "appointments", At: exportTime.Add(time.Hour)})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(mock.objects["exports/appointments/manifests/2026-10.jsonl"])), "\n")
	assert.Len(t, lines, 2)
}

func TestStore_ManifestFailureIsNotFatal(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("access denied")
	store := NewStore(mock, "b", nil)

	key, err := store.Put(context.Background(), Export{Dataset: "appointments", At: exportTime})
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Len(t, mock.putCalls, 1)
}

func TestStore_PutError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("throttled")
	store := NewStore(mock, "b", nil)

	_, err := store.Put(context.Background(), Export{Dataset: "appointments", At: exportTime})
	assert.Error(t, err)
}

func TestStore_DisabledIsNoop(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "", nil)
	assert.False(t, store.Enabled())

	key, err := store.Put(context.Background(), Export{Dataset: "appointments"})
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, mock.putCalls)

	var nilStore *Store
	assert.False(t, nilStore.Enabled())
}
