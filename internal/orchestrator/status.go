package orchestrator

import (
	"context"

	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/stage"
)

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	JobStats    map[registry.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest orchestrator information.
func (o *Orchestrator) Status(ctx context.Context) StatusSummary {
	o.mu.RLock()
	running := o.running
	lastErr := o.lastErr
	handlers := make(map[registry.Status]stage.Handler, len(o.stages))
	for status, handler := range o.stages {
		handlers[status] = handler
	}
	o.mu.RUnlock()

	stats, err := o.store.Stats(ctx)
	if err != nil {
		o.logger.Warn("failed to read job stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(handlers))
	for _, handler := range handlers {
		h := handler.HealthCheck(ctx)
		health[h.Name] = h
	}

	summary := StatusSummary{Running: running, JobStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

// Ready reports whether the daemon can accept work: the orchestrator is
// running and every stage reports healthy.
func (o *Orchestrator) Ready(ctx context.Context) (bool, []stage.Health) {
	summary := o.Status(ctx)
	unhealthy := make([]stage.Health, 0)
	for _, h := range summary.StageHealth {
		if !h.Ready {
			unhealthy = append(unhealthy, h)
		}
	}
	return summary.Running && len(unhealthy) == 0, unhealthy
}
