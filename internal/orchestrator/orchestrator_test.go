package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/orchestrator"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/stage"
	"aircheck/internal/testsupport"
)

type stubHandler struct {
	name    string
	prepare func(ctx context.Context, job *registry.Job) error
	execute func(ctx context.Context, job *registry.Job) error
}

func (s *stubHandler) Prepare(ctx context.Context, job *registry.Job) error {
	if s.prepare != nil {
		return s.prepare(ctx, job)
	}
	return nil
}

func (s *stubHandler) Execute(ctx context.Context, job *registry.Job) error {
	if s.execute != nil {
		return s.execute(ctx, job)
	}
	return nil
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(s.name)
}

type testEnv struct {
	orc   *orchestrator.Orchestrator
	store *registry.Store
}

func newEnv(t *testing.T, opts []testsupport.ConfigOption, handlers ...orchestrator.Option) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := testsupport.MustLoadCatalog(t, cfg, "http://stream.test/live")

	orc := orchestrator.New(cfg, store, catalog, logging.NewNop(), handlers...)
	if err := orc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(orc.Stop)
	return &testEnv{orc: orc, store: store}
}

func passthroughHandlers(order *[]string, mu *sync.Mutex) []orchestrator.Option {
	opts := make([]orchestrator.Option, 0, 4)
	for _, status := range []registry.Status{
		registry.StatusRecording,
		registry.StatusConverting,
		registry.StatusTagging,
		registry.StatusTransferring,
	} {
		status := status
		opts = append(opts, orchestrator.WithHandler(status, &stubHandler{
			name: string(status),
			execute: func(ctx context.Context, job *registry.Job) error {
				mu.Lock()
				*order = append(*order, string(status))
				mu.Unlock()
				return nil
			},
		}))
	}
	return opts
}

func waitForStatus(t *testing.T, store *registry.Store, id string, want registry.Status) *registry.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), id)
	t.Fatalf("job never reached %s, currently %s (%s)", want, job.Status, job.ErrorMessage)
	return nil
}

func TestPipelineRunsToCompletion(t *testing.T) {
	var mu sync.Mutex
	var order []string
	env := newEnv(t, nil, passthroughHandlers(&order, &mu)...)

	job, err := env.orc.Submit(context.Background(), "morning-show", 60)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := waitForStatus(t, env.store, job.ID, registry.StatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Fatalf("expected lifecycle timestamps, got %+v", done)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"recording", "converting", "tagging", "transferring"}
	if len(order) != len(want) {
		t.Fatalf("stage order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", order, want)
		}
	}
}

func TestSubmitValidatesDuration(t *testing.T) {
	var mu sync.Mutex
	var order []string
	env := newEnv(t, nil, passthroughHandlers(&order, &mu)...)

	for _, minutes := range []int{0, -5, 481} {
		if _, err := env.orc.Submit(context.Background(), "morning-show", minutes); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Submit(%d) = %v, want validation error", minutes, err)
		}
	}
}

func TestSubmitRejectsUnknownShow(t *testing.T) {
	var mu sync.Mutex
	var order []string
	env := newEnv(t, nil, passthroughHandlers(&order, &mu)...)

	if _, err := env.orc.Submit(context.Background(), "ghost-show", 30); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Submit = %v, want not found", err)
	}
}

func TestSubmitRejectsOverCeiling(t *testing.T) {
	release := make(chan struct{})
	blocking := orchestrator.WithHandler(registry.StatusRecording, &stubHandler{
		name: "recording",
		execute: func(ctx context.Context, job *registry.Job) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	passthrough := func(status registry.Status) orchestrator.Option {
		return orchestrator.WithHandler(status, &stubHandler{name: string(status)})
	}

	env := newEnv(t, []testsupport.ConfigOption{testsupport.WithMaxConcurrent(1)},
		blocking,
		passthrough(registry.StatusConverting),
		passthrough(registry.StatusTagging),
		passthrough(registry.StatusTransferring),
	)

	first, err := env.orc.Submit(context.Background(), "morning-show", 30)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, env.store, first.ID, registry.StatusRecording)

	if _, err := env.orc.Submit(context.Background(), "jazz-hour", 30); !errors.Is(err, registry.ErrCapacityExceeded) {
		t.Fatalf("second Submit = %v, want capacity exceeded", err)
	}

	close(release)
	waitForStatus(t, env.store, first.ID, registry.StatusCompleted)

	if _, err := env.orc.Submit(context.Background(), "jazz-hour", 30); err != nil {
		t.Fatalf("Submit after completion freed the slot: %v", err)
	}
}

func TestStageFailureRecordsStageAndRetainsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := testsupport.MustLoadCatalog(t, cfg, "http://stream.test/live")

	recording := &stubHandler{
		name: "recording",
		prepare: func(ctx context.Context, job *registry.Job) error {
			job.WorkDir = filepath.Join(cfg.Paths.WorkDir, job.ID)
			job.CapturePath = filepath.Join(job.WorkDir, "capture.mp3")
			testsupport.WriteFile(t, job.CapturePath, 64)
			return nil
		},
	}
	converting := &stubHandler{
		name: "converting",
		execute: func(ctx context.Context, job *registry.Job) error {
			return services.Wrap(services.ErrExternalTool, "converting", "probe", "ffprobe exited 1", nil)
		},
	}
	passthrough := func(status registry.Status) orchestrator.Option {
		return orchestrator.WithHandler(status, &stubHandler{name: string(status)})
	}

	orc := orchestrator.New(cfg, store, catalog, logging.NewNop(),
		orchestrator.WithHandler(registry.StatusRecording, recording),
		orchestrator.WithHandler(registry.StatusConverting, converting),
		passthrough(registry.StatusTagging),
		passthrough(registry.StatusTransferring),
	)
	if err := orc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(orc.Stop)

	job, err := orc.Submit(context.Background(), "morning-show", 30)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	failed := waitForStatus(t, store, job.ID, registry.StatusFailed)
	if failed.FailureStage != "converting" {
		t.Fatalf("FailureStage = %q, want converting", failed.FailureStage)
	}
	if !strings.Contains(failed.ErrorMessage, "ffprobe exited 1") {
		t.Fatalf("ErrorMessage = %q", failed.ErrorMessage)
	}
	if _, err := os.Stat(failed.CapturePath); err != nil {
		t.Fatalf("capture artifact should be retained: %v", err)
	}

	recovery, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "recovery.log"))
	if err != nil {
		t.Fatalf("read recovery log: %v", err)
	}
	if !strings.Contains(string(recovery), job.ID) || !strings.Contains(string(recovery), "stage=converting") {
		t.Fatalf("recovery log missing detail: %s", recovery)
	}
}

func TestStopFailsInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := testsupport.MustLoadCatalog(t, cfg, "http://stream.test/live")

	started := make(chan struct{})
	blocking := &stubHandler{
		name: "recording",
		execute: func(ctx context.Context, job *registry.Job) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	passthrough := func(status registry.Status) orchestrator.Option {
		return orchestrator.WithHandler(status, &stubHandler{name: string(status)})
	}

	orc := orchestrator.New(cfg, store, catalog, logging.NewNop(),
		orchestrator.WithHandler(registry.StatusRecording, blocking),
		passthrough(registry.StatusConverting),
		passthrough(registry.StatusTagging),
		passthrough(registry.StatusTransferring),
	)
	if err := orc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job, err := orc.Submit(context.Background(), "morning-show", 30)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	orc.Stop()

	stopped, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stopped.Status != registry.StatusFailed {
		t.Fatalf("Status = %s, want failed after shutdown", stopped.Status)
	}
	if stopped.ErrorMessage != registry.DaemonStopReason {
		t.Fatalf("ErrorMessage = %q", stopped.ErrorMessage)
	}
}

func TestStopDuringSubmissionStrandsNoJobs(t *testing.T) {
	var mu sync.Mutex
	var order []string
	env := newEnv(t,
		[]testsupport.ConfigOption{testsupport.WithMaxConcurrent(8)},
		passthroughHandlers(&order, &mu)...)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_, _ = env.orc.Submit(context.Background(), "morning-show", 30)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	env.orc.Stop()
	close(done)
	wg.Wait()

	jobs, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			t.Fatalf("job %s left in %s after stop", job.ID, job.Status)
		}
	}
}

func TestStartReclaimsLeftoverJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := testsupport.MustLoadCatalog(t, cfg, "http://stream.test/live")

	leftover := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	if err := store.Transition(context.Background(), leftover, registry.StatusRecording); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	passthrough := func(status registry.Status) orchestrator.Option {
		return orchestrator.WithHandler(status, &stubHandler{name: string(status)})
	}
	orc := orchestrator.New(cfg, store, catalog, logging.NewNop(),
		passthrough(registry.StatusRecording),
		passthrough(registry.StatusConverting),
		passthrough(registry.StatusTagging),
		passthrough(registry.StatusTransferring),
	)
	if err := orc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(orc.Stop)

	reclaimed, err := store.GetByID(context.Background(), leftover.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reclaimed.Status != registry.StatusFailed {
		t.Fatalf("Status = %s, want failed after restart reclaim", reclaimed.Status)
	}
}
