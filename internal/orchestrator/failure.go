package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/telemetry"
)

// failJob parks the job in the failed state with the stage that was in
// flight, keeping its work directory intact for manual recovery, and appends
// an entry to the recovery log.
func (o *Orchestrator) failJob(ctx context.Context, log *slog.Logger, job *registry.Job, stageName string, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageName + " failed"
	}

	job.SetFailed(stageName, message)
	if err := o.store.Update(ctx, job); err != nil {
		log.Error("could not persist job failure", logging.Error(err))
	}

	telemetry.FailuresTotal.WithLabelValues(stageName).Inc()
	o.setLastError(stageErr)
	log.Error("job failed",
		logging.String(logging.FieldStage, stageName),
		logging.Error(stageErr),
		logging.String("work_dir", job.WorkDir))

	o.appendRecoveryLog(job, stageName, message)
}

// appendRecoveryLog records what failed and which artifacts survive so an
// operator can salvage the recording by hand.
func (o *Orchestrator) appendRecoveryLog(job *registry.Job, stageName, message string) {
	path := filepath.Join(o.cfg.Paths.LogDir, "recovery.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		o.logger.Warn("could not open recovery log", logging.Error(err))
		return
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "%s job=%s show=%s stage=%s error=%q",
		time.Now().UTC().Format(time.RFC3339), job.ID, job.ShowKey, stageName, message)
	for _, p := range job.TempPaths() {
		fmt.Fprintf(&b, " retained=%s", p)
	}
	if job.WorkDir != "" {
		fmt.Fprintf(&b, " work_dir=%s", job.WorkDir)
	}
	b.WriteString("\n")
	if _, err := f.WriteString(b.String()); err != nil {
		o.logger.Warn("could not append recovery log", logging.Error(err))
	}
}
