package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type memObject struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (o *memObject) Close() error {
	o.closed = true
	return o.closeErr
}

func TestMirrorUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "clean_transactions.csv")
	b := filepath.Join(dir, "errors.csv")
	if err := os.WriteFile(a, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("c\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	objects := map[string]*memObject{}
	m := newMirror("bucket", "/exports/", func(_ context.Context, object string) io.WriteCloser {
		o := &memObject{}
		objects[object] = o
		return o
	}, zerolog.Nop())

	if err := m.Upload(context.Background(), "run-1", []string{a, b}); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	got, ok := objects["exports/run-1/clean_transactions.csv"]
	if !ok {
		t.Fatalf("missing object, have %v", objects)
	}
	if got.String() != "a,b\n" || !got.closed {
		t.Fatalf("unexpected object content %q closed=%v", got.String(), got.closed)
	}
	if _, ok := objects["exports/run-1/errors.csv"]; !ok {
		t.Fatalf("missing errors object")
	}
}

func TestMirrorObjectNameWithoutPrefix(t *testing.T) {
	m := newMirror("bucket", "", nil, zerolog.Nop())
	if got := m.ObjectName("run-1", "/tmp/out/suspicious.csv"); got != "run-1/suspicious.csv" {
		t.Fatalf("unexpected object name %q", got)
	}
}

func TestMirrorUploadFinalizeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.csv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	finalizeErr := errors.New("permission denied")
	m := newMirror("bucket", "p", func(context.Context, string) io.WriteCloser {
		return &memObject{closeErr: finalizeErr}
	}, zerolog.Nop())

	err := m.Upload(context.Background(), "run-1", []string{path})
	if !errors.Is(err, finalizeErr) {
		t.Fatalf("expected finalize error, got %v", err)
	}
}

func TestMirrorUploadMissingFile(t *testing.T) {
	m := newMirror("bucket", "p", func(context.Context, string) io.WriteCloser {
		t.Fatalf("writer must not be created")
		return nil
	}, zerolog.Nop())

	if err := m.Upload(context.Background(), "run-1", []string{filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNewMirrorRequiresBucket(t *testing.T) {
	if _, err := NewMirror(context.Background(), "", "", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}
