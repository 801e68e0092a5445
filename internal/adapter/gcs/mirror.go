// Package gcs mirrors run artifacts to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// UploadTimeout bounds a single object upload.
const UploadTimeout = 2 * time.Minute

type newWriterFunc func(ctx context.Context, object string) io.WriteCloser

// Mirror implements output.Mirror. Objects are named
// <prefix>/<run id>/<file name>.
type Mirror struct {
	client    *storage.Client
	bucket    string
	prefix    string
	newWriter newWriterFunc
	logger    zerolog.Logger
}

// NewMirror creates a storage client using Application Default Credentials.
func NewMirror(ctx context.Context, bucket, prefix string, logger zerolog.Logger) (*Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	bkt := client.Bucket(bucket)
	m := newMirror(bucket, prefix, func(ctx context.Context, object string) io.WriteCloser {
		return bkt.Object(object).NewWriter(ctx)
	}, logger)
	m.client = client
	return m, nil
}

func newMirror(bucket, prefix string, fn newWriterFunc, logger zerolog.Logger) *Mirror {
	return &Mirror{
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		newWriter: fn,
		logger:    logger,
	}
}

// Close releases the storage client.
func (m *Mirror) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// ObjectName returns the object name for a local file of a run.
func (m *Mirror) ObjectName(runID, filePath string) string {
	return path.Join(m.prefix, runID, filepath.Base(filePath))
}

// Upload copies every file in paths to the bucket.
func (m *Mirror) Upload(ctx context.Context, runID string, paths []string) error {
	for _, p := range paths {
		object := m.ObjectName(runID, p)
		if err := m.upload(ctx, object, p); err != nil {
			return err
		}
		m.logger.Info().Str("object", fmt.Sprintf("gs://%s/%s", m.bucket, object)).Msg("artifact uploaded")
	}
	return nil
}

func (m *Mirror) upload(ctx context.Context, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	w := m.newWriter(ctx, object)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", object, err)
	}

	return nil
}
