package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/stage"
	"aircheck/internal/telemetry"
)

// Start prepares the orchestrator for submissions. Jobs left in a non-terminal
// state by an unclean shutdown are failed so their artifacts surface for
// recovery instead of lingering as phantom slot holders.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("orchestrator already running")
	}
	for _, status := range pipelineOrder {
		if o.stages[status] == nil {
			return fmt.Errorf("no handler configured for %s", status)
		}
	}

	reclaimed, err := o.store.FailActive(ctx, "Interrupted by daemon restart")
	if err != nil {
		return fmt.Errorf("reclaim interrupted jobs: %w", err)
	}
	if reclaimed > 0 {
		o.logger.Warn("failed jobs left over from previous run", logging.Int64("count", reclaimed))
	}

	o.runCtx, o.cancel = context.WithCancel(context.WithoutCancel(ctx))
	o.running = true

	if o.cfg.Workflow.CompletedRetentionHours > 0 {
		o.wg.Add(1)
		go o.pruneLoop(o.runCtx)
	}

	o.logger.Info("orchestrator started",
		logging.Int("max_concurrent", o.cfg.Workflow.MaxConcurrent),
		logging.Int("shows", o.catalog.Len()))
	return nil
}

// pruneLoop periodically removes completed jobs older than the retention
// window. Failed jobs are never pruned here.
func (o *Orchestrator) pruneLoop(ctx context.Context) {
	defer o.wg.Done()
	retention := time.Duration(o.cfg.Workflow.CompletedRetentionHours) * time.Hour
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			if n, err := o.store.PruneCompleted(ctx, cutoff); err != nil {
				o.logger.Warn("completed job prune failed", logging.Error(err))
			} else if n > 0 {
				o.logger.Info("pruned completed jobs", logging.Int64("count", n))
			}
		}
	}
}

// Stop cancels running jobs and waits for their goroutines to finish. Jobs
// interrupted mid-pipeline are marked failed.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if n, err := o.store.FailActive(ctx, registry.DaemonStopReason); err != nil {
		o.logger.Error("could not fail interrupted jobs on shutdown", logging.Error(err))
	} else if n > 0 {
		o.logger.Info("interrupted jobs marked for recovery", logging.Int64("count", n))
	}
	telemetry.ActiveJobs.Set(0)
	o.logger.Info("orchestrator stopped")
}

// run drives one job through the pipeline stages in order.
func (o *Orchestrator) run(ctx context.Context, job *registry.Job) {
	defer o.wg.Done()
	defer o.refreshActiveGauge(context.WithoutCancel(ctx))

	log := logging.WithJob(o.logger, job.ID, job.ShowKey)
	ctx = services.WithJobID(ctx, job.ID)

	for _, status := range pipelineOrder {
		handler := o.stages[status]
		if err := o.store.Transition(ctx, job, status); err != nil {
			o.failJob(ctx, log, job, string(status), err)
			return
		}
		start := time.Now()
		if err := o.executeStage(services.WithStage(ctx, string(status)), job, handler); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("job interrupted by shutdown", logging.String(logging.FieldStage, string(status)))
				return
			}
			o.failJob(ctx, log, job, string(status), err)
			return
		}
		telemetry.StageDuration.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
		log.Info("stage completed",
			logging.String(logging.FieldStage, string(status)),
			logging.Duration("elapsed", time.Since(start)))
	}

	if err := o.store.Transition(ctx, job, registry.StatusCompleted); err != nil {
		o.failJob(ctx, log, job, string(registry.StatusTransferring), err)
		return
	}
	telemetry.CompletionsTotal.Inc()
	log.Info("recording delivered", logging.String("remote", job.RemotePath))
}

func (o *Orchestrator) executeStage(ctx context.Context, job *registry.Job, handler stage.Handler) error {
	if err := handler.Prepare(ctx, job); err != nil {
		return err
	}
	if err := o.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		return err
	}
	if err := o.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	return nil
}

func (o *Orchestrator) refreshActiveGauge(ctx context.Context) {
	count, err := o.store.ActiveCount(ctx)
	if err != nil {
		return
	}
	telemetry.ActiveJobs.Set(float64(count))
}
