package testsupport

import (
	"context"
	"testing"

	"aircheck/internal/config"
	"aircheck/internal/registry"
)

// MustOpenStore opens a registry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AdmitJob inserts a pending job for tests using the provided store.
func AdmitJob(t testing.TB, store *registry.Store, spec registry.NewJob, maxActive int) *registry.Job {
	t.Helper()

	if spec.ShowKey == "" {
		spec.ShowKey = "morning-show"
	}
	if spec.ShowName == "" {
		spec.ShowName = "Morning Show"
	}
	if spec.StationKey == "" {
		spec.StationKey = "wxyz"
	}
	if spec.Frequency == "" {
		spec.Frequency = registry.FrequencyDaily
	}
	if spec.DurationMinutes == 0 {
		spec.DurationMinutes = 60
	}
	job, err := store.Admit(context.Background(), spec, maxActive)
	if err != nil {
		t.Fatalf("store.Admit: %v", err)
	}
	return job
}
