package testsupport

import (
	"path/filepath"
	"testing"

	"aircheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are zeroed so capture retry loops run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtworkDir = filepath.Join(base, "artwork")
	cfg.Paths.ShowsFile = filepath.Join(base, "catalog", "shows.json")
	cfg.Paths.StationsFile = filepath.Join(base, "catalog", "stations.json")
	cfg.Server.APIBind = "127.0.0.1:0"
	cfg.Workflow.CaptureRetryDelay = 0
	cfg.Workflow.CaptureRetryMaxDelay = 0
	cfg.Transfer.Backend = "scp"
	cfg.Transfer.RemoteBase = "/archive/recordings"
	cfg.Transfer.SSHUser = "archive"
	cfg.Transfer.SSHHost = "archive.test"
	cfg.Transfer.SSHPort = 22

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxConcurrent overrides the admission ceiling on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxConcurrent = n
	}
}

// WithCaptureRetries overrides the capture attempt budget on the test config.
func WithCaptureRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.CaptureRetries = n
	}
}
