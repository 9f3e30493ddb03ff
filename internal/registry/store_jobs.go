package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewJob carries the fields needed to admit a recording job.
type NewJob struct {
	ShowKey         string
	ShowName        string
	StationKey      string
	Frequency       Frequency
	DurationMinutes int
	WorkDir         string
}

// Admit inserts a new pending job if and only if the number of active jobs is
// below maxActive. The count and the insert happen inside one transaction so
// concurrent submissions can never overshoot the ceiling.
func (s *Store) Admit(ctx context.Context, spec NewJob, maxActive int) (*Job, error) {
	ctx = ensureContext(ctx)
	id := uuid.NewString()
	now := time.Now()
	timestamp := now.UTC().Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin admit tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		placeholders := makePlaceholders(len(activeStatuses))
		args := make([]any, len(activeStatuses))
		for i, status := range activeStatuses {
			args[i] = status
		}
		var active int
		row := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE status IN (`+placeholders+`)`, args...)
		if err := row.Scan(&active); err != nil {
			return fmt.Errorf("count active jobs: %w", err)
		}
		if active >= maxActive {
			return fmt.Errorf("%w: %d active jobs, limit %d", ErrCapacityExceeded, active, maxActive)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (
                id, show_key, show_name, station_key, frequency, duration_minutes,
                status, progress_percent, work_dir, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			spec.ShowKey,
			spec.ShowName,
			nullableString(spec.StationKey),
			string(spec.Frequency),
			spec.DurationMinutes,
			StatusPending,
			0.0,
			nullableString(spec.WorkDir),
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit admit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
             failure_stage = ?, error_message = ?, work_dir = ?, capture_path = ?,
             converted_path = ?, remote_path = ?, updated_at = ?, started_at = ?, completed_at = ?
         WHERE id = ?`,
		job.Status,
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.FailureStage),
		nullableString(job.ErrorMessage),
		nullableString(job.WorkDir),
		nullableString(job.CapturePath),
		nullableString(job.ConvertedPath),
		nullableString(job.RemotePath),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Transition validates and applies a status change before persisting the job.
// The started/completed timestamps are stamped in local time as the job enters
// and leaves the pipeline; the local calendar date of the start drives the
// recording's filename and tags.
func (s *Store) Transition(ctx context.Context, job *Job, next Status) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if !CanTransition(job.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, next)
	}
	now := time.Now()
	if job.Status == StatusPending && next == StatusRecording {
		job.StartedAt = &now
	}
	if next.IsTerminal() {
		job.CompletedAt = &now
	}
	job.Status = next
	return s.Update(ctx, job)
}

// List returns jobs filtered by status set (or all jobs when no status is provided),
// ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	ctx = ensureContext(ctx)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Active returns the jobs currently occupying concurrency slots.
func (s *Store) Active(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, activeStatuses...)
}

// Failed returns jobs retained for manual recovery.
func (s *Store) Failed(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, StatusFailed)
}

// ActiveCount returns the number of jobs occupying concurrency slots.
func (s *Store) ActiveCount(ctx context.Context) (int, error) {
	placeholders := makePlaceholders(len(activeStatuses))
	args := make([]any, len(activeStatuses))
	for i, status := range activeStatuses {
		args[i] = status
	}
	var count int
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM jobs WHERE status IN (`+placeholders+`)`, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
