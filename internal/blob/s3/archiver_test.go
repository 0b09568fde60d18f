package s3blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// recordingWriter captures the upload method and payload.
type recordingWriter struct {
	method      string
	key         string
	contentType string
	size        int
}

func (w *recordingWriter) Put(_ context.Context, key string, data io.Reader, contentType string) error {
	return w.record("put", key, data, contentType)
}

func (w *recordingWriter) PutMultipart(_ context.Context, key string, data io.Reader, contentType string, _ int64) error {
	return w.record("multipart", key, data, contentType)
}

func (w *recordingWriter) record(method, key string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.method = method
	w.key = key
	w.contentType = contentType
	w.size = len(b)
	return nil
}

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestArchiveRun_SmallSnapshotSinglePut(t *testing.T) {
	w := &recordingWriter{}
	a := NewArchiver(w)
	a.clock = func() time.Time {
		return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	}

	path := writeSnapshot(t, "Keyword,Identity\nfilm camera,cam-1\n")
	key, err := a.ArchiveRun(context.Background(), "run-1", path)
	if err != nil {
		t.Fatalf("archive run: %v", err)
	}

	if key != "runs/2026-08-31/run-1.csv" {
		t.Fatalf("key = %q", key)
	}
	if w.method != "put" {
		t.Fatalf("method = %q, want single put", w.method)
	}
	if w.contentType != "text/csv" {
		t.Fatalf("content type = %q", w.contentType)
	}
	if w.size == 0 {
		t.Fatalf("uploaded payload is empty")
	}
}

func TestArchiveRun_LargeSnapshotGoesMultipart(t *testing.T) {
	w := &recordingWriter{}
	a := NewArchiver(w)
	a.threshold = 8

	path := writeSnapshot(t, "Keyword,Identity\nfilm camera,cam-1\n")
	if _, err := a.ArchiveRun(context.Background(), "run-2", path); err != nil {
		t.Fatalf("archive run: %v", err)
	}
	if w.method != "multipart" {
		t.Fatalf("method = %q, want multipart", w.method)
	}
	if w.contentType != "text/csv" {
		t.Fatalf("content type = %q", w.contentType)
	}
}

func TestArchiveRun_MissingSnapshot(t *testing.T) {
	a := NewArchiver(&recordingWriter{})
	if _, err := a.ArchiveRun(context.Background(), "run-3", filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("expected error for missing snapshot")
	}
}
