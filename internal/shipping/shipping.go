// Package shipping implements the transfer stage: it delivers the tagged
// recording to the configured remote archive and cleans up local artifacts
// after the delivery is verified. Transfers are never retried automatically.
package shipping

import (
	"context"
	"log/slog"
	"os"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/naming"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/stage"
	"aircheck/internal/transfer"
)

// Handler uploads the finished file and verifies it landed intact.
type Handler struct {
	cfg      *config.Config
	uploader transfer.Service
	logger   *slog.Logger
}

// NewHandler constructs the transferring stage.
func NewHandler(cfg *config.Config, uploader transfer.Service, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "shipping"),
	}
}

// Prepare computes the remote destination for the recording.
func (h *Handler) Prepare(ctx context.Context, job *registry.Job) error {
	if job.ConvertedPath == "" {
		return services.Wrap(services.ErrValidation, "transferring", "prepare", "job has no converted file", nil)
	}
	info, err := os.Stat(job.ConvertedPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "prepare", "converted file missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "transferring", "prepare", "converted file is empty", nil)
	}

	date := recordingDate(job)
	album := naming.Album(job.ShowName, date)
	job.RemotePath = naming.RemotePath(h.cfg.Transfer.RemoteBase, naming.SanitizeName(job.ShowName), album, naming.Filename(job.ShowName, date))
	job.SetProgress("Transferring", "Uploading to "+h.uploader.Name(), 85)
	return nil
}

// Execute uploads the file, verifies its remote size, and removes the local
// work directory. A cleanup failure is logged but does not fail the job.
func (h *Handler) Execute(ctx context.Context, job *registry.Job) error {
	log := logging.WithJob(h.logger, job.ID, job.ShowKey)

	info, err := os.Stat(job.ConvertedPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "upload", "stat local file", err)
	}

	if err := h.uploader.Upload(ctx, job.ConvertedPath, job.RemotePath); err != nil {
		return err
	}
	if err := h.uploader.Verify(ctx, job.RemotePath, info.Size()); err != nil {
		return err
	}
	log.Info("delivery verified",
		logging.String("remote", job.RemotePath),
		logging.Int64("bytes", info.Size()))
	job.SetProgress("Transferring", "Upload verified", 95)

	if job.WorkDir != "" {
		if err := os.RemoveAll(job.WorkDir); err != nil {
			log.Warn("could not remove work directory after delivery",
				logging.String("dir", job.WorkDir), logging.Error(err))
		}
	}
	job.SetProgress("Transferring", "Recording delivered", 100)
	return nil
}

// HealthCheck probes the transfer backend's destination.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	name := "transfer-" + h.uploader.Name()
	if err := h.uploader.Ready(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// The remote path carries the same local calendar date as the tagged file.
func recordingDate(job *registry.Job) time.Time {
	if job.StartedAt != nil {
		return job.StartedAt.Local()
	}
	return job.CreatedAt.Local()
}

var _ stage.Handler = (*Handler)(nil)
