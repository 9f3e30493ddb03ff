package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/telemetry"
)

// Submit validates a recording request, admits it against the concurrency
// ceiling, and launches its pipeline. The admission check and registry insert
// happen atomically in the store; a request over the ceiling is rejected
// immediately rather than queued.
func (o *Orchestrator) Submit(ctx context.Context, showKey string, durationMinutes int) (*registry.Job, error) {
	if durationMinutes < 1 || durationMinutes > config.MaxDurationMinutes {
		telemetry.RejectionsTotal.WithLabelValues("validation").Inc()
		return nil, services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("duration must be between 1 and %d minutes, got %d", config.MaxDurationMinutes, durationMinutes), nil)
	}

	show, ok := o.catalog.Get(showKey)
	if !ok {
		telemetry.RejectionsTotal.WithLabelValues("unknown_show").Inc()
		return nil, services.Wrap(services.ErrNotFound, "", "submit",
			fmt.Sprintf("show %q not in catalog", showKey), nil)
	}

	o.mu.RLock()
	running := o.running
	o.mu.RUnlock()
	if !running {
		return nil, errors.New("orchestrator not running")
	}

	job, err := o.store.Admit(ctx, registry.NewJob{
		ShowKey:         show.Key,
		ShowName:        show.Name,
		StationKey:      show.Station,
		Frequency:       show.Frequency,
		DurationMinutes: durationMinutes,
	}, o.cfg.Workflow.MaxConcurrent)
	if err != nil {
		if errors.Is(err, registry.ErrCapacityExceeded) {
			telemetry.RejectionsTotal.WithLabelValues("capacity").Inc()
		}
		return nil, err
	}

	// Stop may have finished between the running check and the admit; launching
	// now would add to a WaitGroup Stop no longer waits on and strand the job
	// in pending. Re-check under the lock and fail the job instead.
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		job.SetFailed(string(registry.StatusPending), registry.DaemonStopReason)
		if uerr := o.store.Update(ctx, job); uerr != nil {
			o.logger.Error("could not fail job admitted during shutdown",
				logging.String(logging.FieldJobID, job.ID), logging.Error(uerr))
		}
		return nil, errors.New("orchestrator not running")
	}
	o.wg.Add(1)
	go o.run(o.runCtx, job)
	o.mu.Unlock()

	telemetry.SubmissionsTotal.Inc()
	o.refreshActiveGauge(ctx)
	log := logging.WithJob(o.logger, job.ID, job.ShowKey)
	if reqID, ok := services.RequestIDFromContext(ctx); ok {
		log = log.With(logging.String("request_id", reqID))
	}
	log.Info("job admitted",
		logging.Int("duration_minutes", durationMinutes),
		logging.String("station", show.Station))
	return job, nil
}
