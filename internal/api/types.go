// Package api defines the JSON payloads exchanged between the daemon's HTTP
// surface and its clients.
package api

import (
	"time"

	"aircheck/internal/registry"
)

// SubmitRequest asks the daemon to record a show.
type SubmitRequest struct {
	Show            string `json:"show"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Job is the wire representation of a recording job.
type Job struct {
	ID              string     `json:"id"`
	Show            string     `json:"show"`
	ShowName        string     `json:"show_name"`
	Station         string     `json:"station,omitempty"`
	Frequency       string     `json:"frequency"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	ProgressStage   string     `json:"progress_stage,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	FailureStage    string     `json:"failure_stage,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	WorkDir         string     `json:"work_dir,omitempty"`
	RetainedPaths   []string   `json:"retained_paths,omitempty"`
	RemotePath      string     `json:"remote_path,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// JobList wraps a set of jobs.
type JobList struct {
	Jobs []Job `json:"jobs"`
}

// StageStatus reports one pipeline stage's readiness.
type StageStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus summarizes the daemon for the status endpoint and CLI.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	JobStats     map[string]int `json:"job_stats"`
	Stages       []StageStatus  `json:"stages"`
	LastError    string         `json:"last_error,omitempty"`
	RegistryPath string         `json:"registry_path,omitempty"`
	LockFilePath string         `json:"lock_file_path,omitempty"`
}

// Error is the JSON error body returned on non-2xx responses.
type Error struct {
	Error string `json:"error"`
}

// FromJob converts a registry job into its wire form. Retained artifact paths
// are only reported for failed jobs, where they matter for manual recovery.
func FromJob(job *registry.Job) Job {
	if job == nil {
		return Job{}
	}
	payload := Job{
		ID:              job.ID,
		Show:            job.ShowKey,
		ShowName:        job.ShowName,
		Station:         job.StationKey,
		Frequency:       string(job.Frequency),
		DurationMinutes: job.DurationMinutes,
		Status:          string(job.Status),
		ProgressStage:   job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		FailureStage:    job.FailureStage,
		ErrorMessage:    job.ErrorMessage,
		RemotePath:      job.RemotePath,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
	if job.Status == registry.StatusFailed {
		payload.WorkDir = job.WorkDir
		payload.RetainedPaths = job.TempPaths()
	}
	return payload
}

// FromJobs converts a slice of registry jobs.
func FromJobs(jobs []*registry.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}
