// Package processing covers the post-capture stages: converting the raw
// capture into a properly named MP3 and writing its metadata tags.
package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/naming"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/services/ffmpeg"
	"aircheck/internal/stage"
)

// Converter turns the raw capture into the final local MP3. Streams that are
// already MP3 are renamed in place instead of re-encoded.
type Converter struct {
	ffmpeg ffmpeg.Client
	logger *slog.Logger
}

// NewConverter constructs the converting stage.
func NewConverter(client ffmpeg.Client, logger *slog.Logger) *Converter {
	return &Converter{
		ffmpeg: client,
		logger: logging.NewComponentLogger(logger, "converter"),
	}
}

// Prepare verifies the capture exists and names the output file.
func (c *Converter) Prepare(ctx context.Context, job *registry.Job) error {
	if job.CapturePath == "" {
		return services.Wrap(services.ErrValidation, "converting", "prepare", "job has no capture path", nil)
	}
	if _, err := os.Stat(job.CapturePath); err != nil {
		return services.Wrap(services.ErrExternalTool, "converting", "prepare", "capture file missing", err)
	}
	job.ConvertedPath = filepath.Join(job.WorkDir, naming.Filename(job.ShowName, recordingDate(job)))
	job.SetProgress("Converting", "Preparing conversion", 60)
	return nil
}

// Execute probes the capture and either renames it or re-encodes it to MP3.
// The raw capture file is removed only after a successful re-encode.
func (c *Converter) Execute(ctx context.Context, job *registry.Job) error {
	log := logging.WithJob(c.logger, job.ID, job.ShowKey)

	codec, err := c.ffmpeg.Probe(ctx, job.CapturePath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "converting", "probe", "probe capture", err)
	}

	if strings.EqualFold(codec, "mp3") {
		if err := os.Rename(job.CapturePath, job.ConvertedPath); err != nil {
			return services.Wrap(services.ErrExternalTool, "converting", "rename", "move capture into place", err)
		}
		job.CapturePath = job.ConvertedPath
		job.SetProgress("Converting", "Stream already MP3, no re-encode needed", 70)
		log.Info("capture already mp3", logging.String("path", job.ConvertedPath))
		return nil
	}

	log.Info("re-encoding capture", logging.String("codec", codec))
	if err := c.ffmpeg.Convert(ctx, job.CapturePath, job.ConvertedPath); err != nil {
		return err
	}
	if err := os.Remove(job.CapturePath); err != nil {
		log.Warn("could not remove raw capture", logging.Error(err))
	} else {
		job.CapturePath = job.ConvertedPath
	}
	job.SetProgress("Converting", fmt.Sprintf("Re-encoded %s to MP3", codec), 70)
	return nil
}

// HealthCheck verifies ffmpeg is available for conversion work.
func (c *Converter) HealthCheck(ctx context.Context) stage.Health {
	const name = "converter"
	if _, err := c.ffmpeg.Version(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// recordingDate picks the timestamp used for naming and tagging. The moment
// recording started is preferred over submission time, and the local calendar
// date is what listeners expect on the file, never the UTC date.
func recordingDate(job *registry.Job) time.Time {
	if job.StartedAt != nil {
		return job.StartedAt.Local()
	}
	return job.CreatedAt.Local()
}

var _ stage.Handler = (*Converter)(nil)
