package processing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/naming"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/services/tagging"
	"aircheck/internal/stage"
)

// Tagger writes ID3 metadata onto the converted file. Missing or broken
// artwork only produces a warning; the file still ships without a cover.
type Tagger struct {
	cfg    *config.Config
	tagger tagging.Tagger
	logger *slog.Logger
}

// NewTagger constructs the tagging stage.
func NewTagger(cfg *config.Config, tagger tagging.Tagger, logger *slog.Logger) *Tagger {
	return &Tagger{
		cfg:    cfg,
		tagger: tagger,
		logger: logging.NewComponentLogger(logger, "tagger"),
	}
}

// Prepare verifies the converted file exists.
func (t *Tagger) Prepare(ctx context.Context, job *registry.Job) error {
	if job.ConvertedPath == "" {
		return services.Wrap(services.ErrValidation, "tagging", "prepare", "job has no converted file", nil)
	}
	if _, err := os.Stat(job.ConvertedPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "tagging", "prepare", "converted file missing", err)
	}
	job.SetProgress("Tagging", "Writing metadata", 75)
	return nil
}

// Execute writes the metadata frames and embeds cover art when available.
func (t *Tagger) Execute(ctx context.Context, job *registry.Job) error {
	log := logging.WithJob(t.logger, job.ID, job.ShowKey)
	date := recordingDate(job)

	meta := tagging.Metadata{
		Title:       date.Format("2006-01-02") + " " + job.ShowName,
		Artist:      job.ShowName,
		Album:       naming.Album(job.ShowName, date),
		TrackNumber: naming.TrackNumber(job.Frequency, date),
		RecordedAt:  date,
	}

	artwork := t.loadArtwork(job, log)
	if err := t.tagger.Apply(job.ConvertedPath, meta, artwork); err != nil {
		return err
	}
	job.SetProgress("Tagging", "Metadata written", 80)
	return nil
}

// loadArtwork returns the show's cover art bytes, or nil when no usable
// artwork exists. Failures here never fail the job.
func (t *Tagger) loadArtwork(job *registry.Job, log *slog.Logger) []byte {
	if t.cfg.Paths.ArtworkDir == "" {
		return nil
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		path := filepath.Join(t.cfg.Paths.ArtworkDir, job.ShowKey+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		data, err := tagging.LoadArtwork(path)
		if err != nil {
			log.Warn("artwork unusable, tagging without cover",
				logging.String("path", path), logging.Error(err))
			return nil
		}
		return data
	}
	log.Debug("no artwork found for show", logging.String(logging.FieldShow, job.ShowKey))
	return nil
}

// HealthCheck reports whether the artwork directory is readable when one is
// configured.
func (t *Tagger) HealthCheck(ctx context.Context) stage.Health {
	const name = "tagger"
	if t.cfg.Paths.ArtworkDir != "" {
		if _, err := os.Stat(t.cfg.Paths.ArtworkDir); err != nil {
			return stage.Unhealthy(name, "artwork directory unavailable: "+err.Error())
		}
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Tagger)(nil)
