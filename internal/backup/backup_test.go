package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"starchart/internal/database"
)

type fakeS3 struct {
	keys    []string
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.keys = append(f.keys, *input.Key)
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestRunOnceUploadsDecryptableSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "starchart.db")

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "k", SecretKey: "s", Region: "auto"},
		DBPath:     dbPath,
		Passphrase: "correct horse",
	}, db, logger)

	fake := &fakeS3{}
	m.client = fake

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(fake.keys) != 1 {
		t.Fatalf("uploaded %d objects, want 1", len(fake.keys))
	}

	enc := filepath.Join(dir, "uploaded.enc")
	if err := os.WriteFile(enc, fake.objects[fake.keys[0]], 0600); err != nil {
		t.Fatalf("write uploaded object: %v", err)
	}
	restored := filepath.Join(dir, "restored.db")
	if err := DecryptFile(enc, restored, "correct horse"); err != nil {
		t.Fatalf("decrypt uploaded snapshot: %v", err)
	}

	header, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("read restored snapshot: %v", err)
	}
	if !bytes.HasPrefix(header, []byte("SQLite format 3")) {
		t.Error("restored snapshot is not a SQLite database")
	}
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(Config{}, nil, logger)

	if m.Enabled() {
		t.Error("manager with empty config reports enabled")
	}
	if err := m.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce on a disabled manager succeeded")
	}
	// Start/Stop on a disabled manager are no-ops.
	m.Start(context.Background())
	m.Stop()
}
