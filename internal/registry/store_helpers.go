package registry

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, show_key, show_name, station_key, frequency, duration_minutes, status, progress_stage, progress_percent, progress_message, failure_stage, error_message, work_dir, capture_path, converted_path, remote_path, created_at, updated_at, started_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		showKey         string
		showName        string
		stationKey      sql.NullString
		frequency       sql.NullString
		durationMinutes int
		statusStr       string
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		failureStage    sql.NullString
		errorMessage    sql.NullString
		workDir         sql.NullString
		capturePath     sql.NullString
		convertedPath   sql.NullString
		remotePath      sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&showKey,
		&showName,
		&stationKey,
		&frequency,
		&durationMinutes,
		&statusStr,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&failureStage,
		&errorMessage,
		&workDir,
		&capturePath,
		&convertedPath,
		&remotePath,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		ShowKey:         showKey,
		ShowName:        showName,
		StationKey:      stationKey.String,
		Frequency:       Frequency(frequency.String),
		DurationMinutes: durationMinutes,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		FailureStage:    failureStage.String,
		ErrorMessage:    errorMessage.String,
		WorkDir:         workDir.String,
		CapturePath:     capturePath.String,
		ConvertedPath:   convertedPath.String,
		RemotePath:      remotePath.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

// parseTimeString reads a stored timestamp back into local time. Rows are
// serialized in UTC; callers work with local timestamps throughout.
func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.Local(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
