package registry

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recording job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusRecording    Status = "recording"
	StatusConverting   Status = "converting"
	StatusTagging      Status = "tagging"
	StatusTransferring Status = "transferring"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRecording,
	StatusConverting,
	StatusTagging,
	StatusTransferring,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// activeStatuses are the states that count against the concurrency ceiling.
var activeStatuses = []Status{
	StatusPending,
	StatusRecording,
	StatusConverting,
	StatusTagging,
	StatusTransferring,
}

// forwardEdges encodes the only permitted happy-path transitions. Any
// non-terminal status may additionally transition to StatusFailed.
var forwardEdges = map[Status]Status{
	StatusPending:      StatusRecording,
	StatusRecording:    StatusConverting,
	StatusConverting:   StatusTagging,
	StatusTagging:      StatusTransferring,
	StatusTransferring: StatusCompleted,
}

// Frequency describes how often a show airs; it drives track numbering.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// Job represents a recording job persisted in SQLite.
type Job struct {
	ID              string
	ShowKey         string
	ShowName        string
	StationKey      string
	Frequency       Frequency
	DurationMinutes int
	Status          Status
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	FailureStage    string
	ErrorMessage    string
	WorkDir         string
	CapturePath     string
	ConvertedPath   string
	RemotePath      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ActiveStatuses returns the statuses that occupy a concurrency slot.
func ActiveStatuses() []Status {
	cp := make([]Status, len(activeStatuses))
	copy(cp, activeStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseFrequency converts a string into a known Frequency.
func ParseFrequency(value string) (Frequency, bool) {
	switch Frequency(strings.ToLower(strings.TrimSpace(value))) {
	case FrequencyDaily:
		return FrequencyDaily, true
	case FrequencyWeekly:
		return FrequencyWeekly, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the status occupies a concurrency slot.
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

// CanTransition reports whether moving from one status to another is a legal
// edge: the single forward edge per stage, or non-terminal to failed.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return forwardEdges[from] == to
}

// NextStatus returns the happy-path successor for a status.
func NextStatus(from Status) (Status, bool) {
	next, ok := forwardEdges[from]
	return next, ok
}

// IsActive reports whether the job occupies a concurrency slot.
func (j Job) IsActive() bool {
	return j.Status.IsActive()
}

// SetProgress updates the progress fields together. Percent never moves
// backwards while the job is non-terminal.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	if percent >= j.ProgressPercent || j.Status.IsTerminal() {
		j.ProgressPercent = percent
	}
}

// SetFailed marks the job as failed, recording the stage that was in flight.
func (j *Job) SetFailed(stage, message string) {
	j.Status = StatusFailed
	j.FailureStage = stage
	j.ErrorMessage = message
	j.ProgressStage = "Failed"
	j.ProgressMessage = message
}

// TempPaths returns the on-disk artifacts the job has produced so far, used
// for cleanup after delivery and for recovery reporting after failure.
func (j Job) TempPaths() []string {
	paths := make([]string, 0, 2)
	if j.CapturePath != "" {
		paths = append(paths, j.CapturePath)
	}
	if j.ConvertedPath != "" && j.ConvertedPath != j.CapturePath {
		paths = append(paths, j.ConvertedPath)
	}
	return paths
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Active    int
	Failed    int
	Completed int
}
