package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var duration int

	cmd := &cobra.Command{
		Use:         "record <show-key>",
		Short:       "Submit a recording job to the daemon",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Record(cmd.Context(), args[0], duration)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Admitted job %s\n", job.ID)
			fmt.Fprintf(out, "  show:     %s (%s)\n", job.ShowName, job.Show)
			fmt.Fprintf(out, "  duration: %d minutes\n", job.DurationMinutes)
			fmt.Fprintf(out, "  status:   %s\n", job.Status)
			return nil
		},
	}

	cmd.Flags().IntVarP(&duration, "duration", "d", 60, "Recording length in minutes")
	return cmd
}
