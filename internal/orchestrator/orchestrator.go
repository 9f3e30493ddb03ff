// Package orchestrator drives admitted jobs through the recording pipeline.
// Each job runs in its own goroutine and advances through the stage statuses
// in order; any stage failure parks the job in the failed state with its
// artifacts retained for manual recovery.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/shows"
	"aircheck/internal/stage"
)

// pipelineOrder lists the stage statuses in execution order.
var pipelineOrder = []registry.Status{
	registry.StatusRecording,
	registry.StatusConverting,
	registry.StatusTagging,
	registry.StatusTransferring,
}

// Orchestrator coordinates job admission and pipeline execution.
type Orchestrator struct {
	cfg     *config.Config
	store   *registry.Store
	catalog *shows.Catalog
	logger  *slog.Logger
	stages  map[registry.Status]stage.Handler

	mu      sync.RWMutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// Option overrides orchestrator wiring, primarily for tests.
type Option func(*Orchestrator)

// WithHandler replaces the handler that runs while a job sits in the given
// status.
func WithHandler(status registry.Status, handler stage.Handler) Option {
	return func(o *Orchestrator) {
		o.stages[status] = handler
	}
}

// New constructs an orchestrator. Stage handlers must be supplied via
// WithHandler or Configure before Start.
func New(cfg *config.Config, store *registry.Store, catalog *shows.Catalog, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "orchestrator"),
		stages:  make(map[registry.Status]stage.Handler, len(pipelineOrder)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configure installs the full set of stage handlers.
func (o *Orchestrator) Configure(recording, converting, tagging, transferring stage.Handler) {
	o.stages[registry.StatusRecording] = recording
	o.stages[registry.StatusConverting] = converting
	o.stages[registry.StatusTagging] = tagging
	o.stages[registry.StatusTransferring] = transferring
}

func (o *Orchestrator) setLastError(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}
