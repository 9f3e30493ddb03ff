package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aircheck/internal/registry"
	"aircheck/internal/testsupport"
)

func TestAdmitEnforcesCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "a", ShowName: "A"}, 2)
	testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "b", ShowName: "B"}, 2)

	_, err := store.Admit(context.Background(), registry.NewJob{
		ShowKey: "c", ShowName: "C", Frequency: registry.FrequencyDaily, DurationMinutes: 30,
	}, 2)
	if !errors.Is(err, registry.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	count, err := store.ActiveCount(context.Background())
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("ActiveCount = %d, want 2", count)
	}
}

func TestAdmitConcurrentSubmissionsNeverOvershoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	const limit = 3
	const submitters = 10

	var wg sync.WaitGroup
	errs := make([]error, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Admit(context.Background(), registry.NewJob{
				ShowKey: "show", ShowName: "Show", Frequency: registry.FrequencyDaily, DurationMinutes: 30,
			}, limit)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, registry.ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected admit error: %v", err)
		}
	}
	if admitted != limit {
		t.Fatalf("admitted = %d, want %d", admitted, limit)
	}
}

func TestAdmitTerminalJobsFreeSlots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 1)
	if _, err := store.Admit(ctx, registry.NewJob{
		ShowKey: "b", ShowName: "B", Frequency: registry.FrequencyDaily, DurationMinutes: 30,
	}, 1); !errors.Is(err, registry.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	job.SetFailed("recording", "stream down")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := store.Admit(ctx, registry.NewJob{
		ShowKey: "b", ShowName: "B", Frequency: registry.FrequencyDaily, DurationMinutes: 30,
	}, 1); err != nil {
		t.Fatalf("expected admission after failure freed the slot, got %v", err)
	}
}

func TestTransitionStampsLifecycleTimes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	if job.StartedAt != nil {
		t.Fatal("pending job should have no start time")
	}

	for _, next := range []registry.Status{
		registry.StatusRecording,
		registry.StatusConverting,
		registry.StatusTagging,
		registry.StatusTransferring,
		registry.StatusCompleted,
	} {
		if err := store.Transition(ctx, job, next); err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != registry.StatusCompleted {
		t.Fatalf("Status = %s, want completed", stored.Status)
	}
	if stored.StartedAt == nil || stored.CompletedAt == nil {
		t.Fatalf("expected lifecycle timestamps, got start=%v complete=%v", stored.StartedAt, stored.CompletedAt)
	}
}

func TestTransitionRejectsSkippedStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	err := store.Transition(ctx, job, registry.StatusTagging)
	if !errors.Is(err, registry.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Status != registry.StatusPending {
		t.Fatalf("Status = %s, want pending after rejected transition", job.Status)
	}
}

func TestTransitionRejectsTerminalMutation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	if err := store.Transition(ctx, job, registry.StatusFailed); err != nil {
		t.Fatalf("Transition to failed: %v", err)
	}
	if err := store.Transition(ctx, job, registry.StatusRecording); !errors.Is(err, registry.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of failed, got %v", err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.GetByID(context.Background(), "no-such-job"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoundTripsJobFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	job.WorkDir = "/tmp/work/" + job.ID
	job.CapturePath = job.WorkDir + "/capture.mp3"
	job.ConvertedPath = job.WorkDir + "/2026-03-05 Morning Show.mp3"
	job.RemotePath = "/archive/recordings/Morning Show/Morning Show 2026/2026-03-05 Morning Show.mp3"
	job.SetProgress("Recording", "Captured 10m of 60m", 17.5)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CapturePath != job.CapturePath || stored.ConvertedPath != job.ConvertedPath {
		t.Fatalf("paths not persisted: %+v", stored)
	}
	if stored.RemotePath != job.RemotePath {
		t.Fatalf("RemotePath = %q", stored.RemotePath)
	}
	if stored.ProgressPercent != 17.5 || stored.ProgressStage != "Recording" {
		t.Fatalf("progress not persisted: %+v", stored)
	}
}

func TestTimestampsRoundTripInLocalTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.AdmitJob(t, store, registry.NewJob{}, 3)
	if err := store.Transition(ctx, job, registry.StatusRecording); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CreatedAt.Location() != time.Local {
		t.Fatalf("CreatedAt zone = %v, want local", stored.CreatedAt.Location())
	}
	if stored.StartedAt == nil || stored.StartedAt.Location() != time.Local {
		t.Fatalf("StartedAt = %v, want local zone", stored.StartedAt)
	}
	if !stored.StartedAt.Equal(*job.StartedAt) {
		t.Fatalf("StartedAt drifted across round trip: %v vs %v", stored.StartedAt, job.StartedAt)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "a", ShowName: "A"}, 5)
	testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "b", ShowName: "B"}, 5)

	first.SetFailed("recording", "boom")
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}

	failed, err := store.Failed(ctx)
	if err != nil {
		t.Fatalf("Failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != first.ID {
		t.Fatalf("Failed = %v", failed)
	}

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("Active = %d jobs, want 1", len(active))
	}
}

func TestPruneCompletedLeavesFailedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	completed := testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "a", ShowName: "A"}, 5)
	for _, next := range []registry.Status{
		registry.StatusRecording,
		registry.StatusConverting,
		registry.StatusTagging,
		registry.StatusTransferring,
		registry.StatusCompleted,
	} {
		if err := store.Transition(ctx, completed, next); err != nil {
			t.Fatalf("Transition: %v", err)
		}
	}

	failed := testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "b", ShowName: "B"}, 5)
	if err := store.Transition(ctx, failed, registry.StatusFailed); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	pruned, err := store.PruneCompleted(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneCompleted: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}
	if _, err := store.GetByID(ctx, failed.ID); err != nil {
		t.Fatalf("failed job should be retained: %v", err)
	}
}

func TestFailActiveMarksEveryRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "a", ShowName: "A"}, 5)
	if err := store.Transition(ctx, a, registry.StatusRecording); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	testsupport.AdmitJob(t, store, registry.NewJob{ShowKey: "b", ShowName: "B"}, 5)

	failed, err := store.FailActive(ctx, registry.DaemonStopReason)
	if err != nil {
		t.Fatalf("FailActive: %v", err)
	}
	if failed != 2 {
		t.Fatalf("FailActive = %d, want 2", failed)
	}

	count, err := store.ActiveCount(ctx)
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("ActiveCount = %d, want 0", count)
	}
}
