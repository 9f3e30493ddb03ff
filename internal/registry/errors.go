package registry

import "errors"

// ErrCapacityExceeded is returned by Admit when the active job count has
// already reached the configured ceiling.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrInvalidTransition is returned when a status change does not follow a
// legal edge of the job state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound is returned when no job matches the requested identifier.
var ErrNotFound = errors.New("job not found")
