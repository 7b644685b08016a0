// Package archive uploads admin exports to S3 and keeps a monthly manifest
// of what was exported.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the monthly export manifest.
type ManifestEntry struct {
	Key        string `json:"key"`
	Dataset    string `json:"dataset"`
	Rows       int    `json:"rows"`
	Filter     string `json:"filter,omitempty"`
	ExportedAt string `json:"exportedAt"`
}

// Export describes one file to upload.
type Export struct {
	Dataset     string
	Body        []byte
	ContentType string
	Rows        int
	Filter      string
	At          time.Time
}

// Store writes exports under exports/<dataset>/YYYY/MM/DD/.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates a Store. With an empty bucket every operation is a no-op.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled reports whether a bucket and client are configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Key returns the object key for an export taken at t.
func Key(dataset string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("exports/%s/%d/%02d/%02d/%s.csv",
		dataset, t.Year(), t.Month(), t.Day(), t.Format("20060102T150405Z"))
}

// Put uploads an export and records it in the manifest. The manifest write
// is best-effort once the export itself is stored.
func (s *Store) Put(ctx context.Context, exp Export) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	at := exp.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	contentType := exp.ContentType
	if contentType == "" {
		contentType = "text/csv"
	}
	key := Key(exp.Dataset, at)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(exp.Body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("export uploaded", "bucket", s.bucket, "key", key, "rows", exp.Rows)

	entry := ManifestEntry{
		Key:        key,
		Dataset:    exp.Dataset,
		Rows:       exp.Rows,
		Filter:     exp.Filter,
		ExportedAt: at.UTC().Format(time.RFC3339),
	}
	if err := s.appendManifest(ctx, exp.Dataset, at, entry); err != nil {
		s.logger.Warn("failed to append export manifest", "error", err, "key", key)
	}
	return key, nil
}

// appendManifest rewrites the month's JSONL manifest with entry appended.
// S3 has no append, so this is read-modify-write.
func (s *Store) appendManifest(ctx context.Context, dataset string, at time.Time, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	at = at.UTC()
	manifestKey := fmt.Sprintf("exports/%s/manifests/%d-%02d.jsonl", dataset, at.Year(), at.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}
