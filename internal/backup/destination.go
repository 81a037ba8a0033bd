package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Destination is a place a backup snapshot is written to.
type Destination interface {
	// Write stores the JSONL payload.
	Write(ctx context.Context, data []byte) error
	// Location names where the last Write put the data, e.g. s3://bucket/key,
	// or the configured target before the first write.
	Location() string
}

// Keys and paths may contain {date} (UTC, 2006-01-02) and {time}
// (UTC, 150405) so each run keeps its own snapshot instead of replacing the
// previous one.
func expandTarget(tmpl string, now time.Time) string {
	now = now.UTC()
	return strings.NewReplacer(
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("150405"),
	).Replace(tmpl)
}

// target tracks the template and the most recently written name.
type target struct {
	tmpl string
	now  func() time.Time

	mu   sync.Mutex
	last string
}

func (t *target) next() string { return expandTarget(t.tmpl, t.now()) }

func (t *target) written(name string) {
	t.mu.Lock()
	t.last = name
	t.mu.Unlock()
}

func (t *target) current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last != "" {
		return t.last
	}
	return t.tmpl
}

// S3Destination uploads snapshots to an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    *target
}

// NewS3Destination creates an S3 destination. A non-empty endpoint switches
// to path-style addressing, as MinIO and most S3-compatible stores expect.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if key == "" {
		return nil, fmt.Errorf("s3 key is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{
		client: client,
		bucket: bucket,
		key:    &target{tmpl: key, now: time.Now},
	}, nil
}

func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	key := d.key.next()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata:    map[string]string{"kadr-format": FormatVersion},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", d.bucket, key, err)
	}
	d.key.written(key)
	return nil
}

func (d *S3Destination) Location() string {
	return "s3://" + d.bucket + "/" + d.key.current()
}

// FileDestination writes snapshots to a local file. The file holds PINFLs,
// so it is created 0600.
type FileDestination struct {
	path *target
}

func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: &target{tmpl: path, now: time.Now}}
}

// Write replaces the file atomically: a reader sees the previous snapshot or
// the new one, never a partial write.
func (d *FileDestination) Write(_ context.Context, data []byte) error {
	path := d.path.next()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	d.path.written(path)
	return nil
}

func (d *FileDestination) Location() string {
	return d.path.current()
}
