package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"aircheck/internal/api"
	"aircheck/internal/registry"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var failedOnly bool

	cmd := &cobra.Command{
		Use:         "jobs",
		Short:       "List recording jobs",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var jobs []api.Job
			if failedOnly {
				jobs, err = client.Failed(cmd.Context())
			} else {
				jobs, err = client.Jobs(cmd.Context(), statusFilters...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}

			header := table.Row{"ID", "Show", "Status", "Stage", "Progress", "Detail"}
			rows := make([]table.Row, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, table.Row{
					shortID(job.ID),
					job.Show,
					job.Status,
					jobStageColumn(job),
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					jobDetailColumn(job),
				})
			}
			fmt.Fprintln(out, renderTable(header, rows, 5))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Show only jobs retained for recovery")

	cmd.AddCommand(newJobsPruneCommand(ctx))
	return cmd
}

// newJobsPruneCommand removes old completed jobs straight from the registry.
// Failed jobs are left alone; clearing those is an explicit operator action.
func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old completed jobs from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := registry.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			pruned, err := store.PruneCompleted(cmd.Context(), time.Now().UTC().Add(-olderThan))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d completed job(s)\n", pruned)

			if clearFailed {
				cleared, err := store.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d failed job(s)\n", cleared)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 72*time.Hour, "Only remove jobs completed longer ago than this")
	cmd.Flags().BoolVar(&clearFailed, "clear-failed", false, "Also remove failed jobs (artifact paths are lost)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func jobStageColumn(job api.Job) string {
	if job.FailureStage != "" {
		return job.FailureStage
	}
	return job.ProgressStage
}

func jobDetailColumn(job api.Job) string {
	if job.ErrorMessage != "" {
		return job.ErrorMessage
	}
	if job.Status == "completed" {
		return job.RemotePath
	}
	return strings.TrimSpace(job.ProgressMessage)
}
