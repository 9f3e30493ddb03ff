// Package capture implements the recording stage: it resolves the show's
// stream and records it to the job's work directory with bounded retries.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/services/ffmpeg"
	"aircheck/internal/shows"
	"aircheck/internal/stage"
	"aircheck/internal/telemetry"
)

// Progress percentages reserved for the recording stage. Capture advances
// between the two bounds as ffmpeg reports elapsed time.
const (
	percentStart = 10
	percentEnd   = 55
)

// Handler records the stream for the requested duration.
type Handler struct {
	cfg      *config.Config
	catalog  *shows.Catalog
	recorder ffmpeg.Client
	logger   *slog.Logger
	// publish persists intermediate progress; failures there must never
	// interrupt a running capture.
	publish func(context.Context, *registry.Job)
}

// NewHandler constructs the recording stage.
func NewHandler(cfg *config.Config, catalog *shows.Catalog, recorder ffmpeg.Client, logger *slog.Logger, publish func(context.Context, *registry.Job)) *Handler {
	if publish == nil {
		publish = func(context.Context, *registry.Job) {}
	}
	return &Handler{
		cfg:      cfg,
		catalog:  catalog,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "capture"),
		publish:  publish,
	}
}

// Prepare resolves the stream source and lays out the work directory.
func (h *Handler) Prepare(ctx context.Context, job *registry.Job) error {
	show, ok := h.catalog.Get(job.ShowKey)
	if !ok {
		return services.Wrap(services.ErrNotFound, "recording", "prepare", fmt.Sprintf("show %q not in catalog", job.ShowKey), nil)
	}
	if _, ok := h.catalog.StationFor(show); !ok {
		return services.Wrap(services.ErrConfiguration, "recording", "prepare", fmt.Sprintf("station %q not in catalog", show.Station), nil)
	}

	workDir := filepath.Join(h.cfg.Paths.WorkDir, job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "recording", "prepare", "create work directory", err)
	}
	job.WorkDir = workDir
	job.CapturePath = filepath.Join(workDir, "capture.mp3")
	job.SetProgress("Recording", "Starting capture", percentStart)
	return nil
}

// Execute runs the capture with retry on transient stream failures. The
// attempt budget and backoff come from configuration; delays double per
// attempt up to the ceiling.
func (h *Handler) Execute(ctx context.Context, job *registry.Job) error {
	show, _ := h.catalog.Get(job.ShowKey)
	station, _ := h.catalog.StationFor(show)

	duration := time.Duration(job.DurationMinutes) * time.Minute
	grace := time.Duration(h.cfg.Workflow.CaptureGraceMinutes) * time.Minute
	attempts := h.cfg.Workflow.CaptureRetries
	delay := time.Duration(h.cfg.Workflow.CaptureRetryDelay) * time.Second
	maxDelay := time.Duration(h.cfg.Workflow.CaptureRetryMaxDelay) * time.Second

	log := logging.WithJob(h.logger, job.ID, job.ShowKey)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			telemetry.CaptureRetriesTotal.Inc()
			log.Warn("retrying capture",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Duration("delay", delay),
				logging.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return services.Wrap(services.ErrTransient, "recording", "capture", "capture cancelled", ctx.Err())
			}
			if next := delay * 2; next <= maxDelay {
				delay = next
			} else {
				delay = maxDelay
			}
		}

		lastErr = h.recorder.Capture(ctx, ffmpeg.CaptureRequest{
			StreamURL:  station.StreamURL,
			OutputPath: job.CapturePath,
			Duration:   duration,
			Grace:      grace,
			Progress: func(u ffmpeg.ProgressUpdate) {
				if u.Total <= 0 {
					return
				}
				fraction := float64(u.Elapsed) / float64(u.Total)
				if fraction > 1 {
					fraction = 1
				}
				percent := percentStart + fraction*(percentEnd-percentStart)
				job.SetProgress("Recording", fmt.Sprintf("Captured %s of %s", u.Elapsed.Round(time.Second), u.Total), percent)
				h.publish(ctx, job)
			},
		})
		if lastErr == nil {
			job.SetProgress("Recording", "Capture complete", percentEnd)
			return nil
		}
		if !services.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return services.Wrap(services.ErrTransient, "recording", "capture",
		fmt.Sprintf("capture failed after %d attempts", attempts), lastErr)
}

// HealthCheck verifies ffmpeg and the catalog are available.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "capture"
	if h.catalog == nil || h.catalog.Len() == 0 {
		return stage.Unhealthy(name, "show catalog is empty")
	}
	if _, err := h.recorder.Version(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Handler)(nil)
