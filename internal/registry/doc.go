// Package registry persists recording jobs in SQLite and owns the job state
// machine.
//
// Jobs move pending -> recording -> converting -> tagging -> transferring ->
// completed, with any non-terminal state able to fall to failed. Transition
// validates every edge, and Admit couples the concurrency check with the
// insert inside one transaction so the active-job ceiling holds under
// concurrent submissions.
package registry
