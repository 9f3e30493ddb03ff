package registry

import (
	"context"
	"fmt"
	"time"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
			health.Active += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			health.Active += count
		}
	}
	return health, nil
}

// PruneCompleted removes completed jobs older than the cutoff. Failed jobs are
// never pruned automatically; their state is the recovery record.
func (s *Store) PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status = ? AND completed_at IS NOT NULL AND completed_at < ?`,
		StatusCompleted,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed jobs once the operator has recovered or discarded
// their artifacts.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// FailActive marks all in-flight jobs as failed. Called on daemon shutdown so
// interrupted captures are surfaced for recovery instead of lingering forever.
func (s *Store) FailActive(ctx context.Context, message string) (int64, error) {
	placeholders := makePlaceholders(len(activeStatuses))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := make([]any, 0, len(activeStatuses)+3)
	args = append(args, message, now, now)
	for _, status := range activeStatuses {
		args = append(args, status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = '`+string(StatusFailed)+`', failure_stage = status,
             error_message = ?, progress_stage = 'Failed', completed_at = ?, updated_at = ?
         WHERE status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail active jobs: %w", err)
	}
	return res.RowsAffected()
}
