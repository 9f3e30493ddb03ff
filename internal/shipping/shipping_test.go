package shipping_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/shipping"
	"aircheck/internal/testsupport"
)

type fakeUploader struct {
	uploads   []string
	verifies  []string
	uploadErr error
	verifyErr error
	ready     error
}

func (f *fakeUploader) Upload(ctx context.Context, localPath, remotePath string) error {
	f.uploads = append(f.uploads, remotePath)
	return f.uploadErr
}

func (f *fakeUploader) Verify(ctx context.Context, remotePath string, size int64) error {
	f.verifies = append(f.verifies, remotePath)
	return f.verifyErr
}

func (f *fakeUploader) Name() string { return "fake" }

func (f *fakeUploader) Ready(ctx context.Context) error { return f.ready }

func newJob(t *testing.T) *registry.Job {
	t.Helper()
	started := time.Date(2026, 3, 5, 6, 0, 0, 0, time.Local)
	work := t.TempDir()
	job := &registry.Job{
		ID:            "job-1",
		ShowKey:       "morning-show",
		ShowName:      "Morning Show",
		Status:        registry.StatusTransferring,
		WorkDir:       work,
		ConvertedPath: filepath.Join(work, "2026-03-05 Morning Show.mp3"),
		StartedAt:     &started,
	}
	testsupport.WriteFile(t, job.ConvertedPath, 2048)
	return job
}

func TestPrepareComputesRemotePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := shipping.NewHandler(cfg, &fakeUploader{}, logging.NewNop())
	job := newJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := "/archive/recordings/Morning Show/Morning Show 2026/2026-03-05 Morning Show.mp3"
	if job.RemotePath != want {
		t.Fatalf("RemotePath = %q, want %q", job.RemotePath, want)
	}
}

func TestPrepareRemotePathUsesLocalDate(t *testing.T) {
	prev := time.Local
	time.Local = time.FixedZone("UTC-8", -8*60*60)
	t.Cleanup(func() { time.Local = prev })

	cfg := testsupport.NewConfig(t)
	handler := shipping.NewHandler(cfg, &fakeUploader{}, logging.NewNop())
	job := newJob(t)
	// Late-evening local recordings must not pick up the next UTC day.
	started := time.Date(2026, 3, 6, 7, 30, 0, 0, time.UTC)
	job.StartedAt = &started

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := "/archive/recordings/Morning Show/Morning Show 2026/2026-03-05 Morning Show.mp3"
	if job.RemotePath != want {
		t.Fatalf("RemotePath = %q, want %q", job.RemotePath, want)
	}
}

func TestPrepareRejectsEmptyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := shipping.NewHandler(cfg, &fakeUploader{}, logging.NewNop())
	job := newJob(t)
	if err := os.WriteFile(job.ConvertedPath, nil, 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Prepare = %v, want external tool error", err)
	}
}

func TestExecuteUploadsVerifiesAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{}
	handler := shipping.NewHandler(cfg, uploader, logging.NewNop())
	job := newJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(uploader.uploads) != 1 || uploader.uploads[0] != job.RemotePath {
		t.Fatalf("uploads = %v", uploader.uploads)
	}
	if len(uploader.verifies) != 1 {
		t.Fatalf("verifies = %v", uploader.verifies)
	}
	if _, err := os.Stat(job.WorkDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("work dir should be removed after delivery, stat err = %v", err)
	}
	if job.ProgressPercent != 100 {
		t.Fatalf("ProgressPercent = %v, want 100", job.ProgressPercent)
	}
}

func TestExecuteUploadFailureRetainsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{uploadErr: services.Wrap(services.ErrExternalTool, "transferring", "upload", "scp exited 1", nil)}
	handler := shipping.NewHandler(cfg, uploader, logging.NewNop())
	job := newJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err == nil {
		t.Fatal("expected upload failure")
	}

	if len(uploader.uploads) != 1 {
		t.Fatalf("uploads = %v, transfer must not be retried", uploader.uploads)
	}
	if _, err := os.Stat(job.ConvertedPath); err != nil {
		t.Fatalf("converted file should be retained: %v", err)
	}
}

func TestExecuteVerifyFailureRetainsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{verifyErr: services.Wrap(services.ErrExternalTool, "transferring", "verify", "size mismatch", nil)}
	handler := shipping.NewHandler(cfg, uploader, logging.NewNop())
	job := newJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err == nil {
		t.Fatal("expected verify failure")
	}
	if _, err := os.Stat(job.WorkDir); err != nil {
		t.Fatalf("work dir should survive failed verification: %v", err)
	}
}

func TestHealthCheckUsesBackendReadiness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader := &fakeUploader{ready: errors.New("connection refused")}
	handler := shipping.NewHandler(cfg, uploader, logging.NewNop())

	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy backend")
	}
}
