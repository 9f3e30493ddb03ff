package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show daemon and pipeline status",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("Registry", statusInfo, status.RegistryPath, colorize))
			if status.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
			}

			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, stage := range status.Stages {
				kind := statusOK
				detail := "ready"
				if !stage.Ready {
					kind = statusError
					detail = stage.Detail
				}
				fmt.Fprintln(out, renderStatusLine(stage.Name, kind, detail, colorize))
			}

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(status.JobStats) == 0 {
				fmt.Fprintln(out, renderStatusLine("Total", statusInfo, "0", colorize))
				return nil
			}
			keys := make([]string, 0, len(status.JobStats))
			for key := range status.JobStats {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintln(out, renderStatusLine(capitalize(key), statusInfo, fmt.Sprintf("%d", status.JobStats[key]), colorize))
			}
			return nil
		},
	}
}
