package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"aircheck/internal/shows"
)

func newShowsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shows",
		Short: "List the recordable shows from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := shows.Load(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if catalog.Len() == 0 {
				fmt.Fprintln(out, "No shows configured.")
				return nil
			}

			header := table.Row{"Key", "Name", "Station", "Frequency"}
			rows := make([]table.Row, 0, catalog.Len())
			for _, show := range catalog.Shows() {
				rows = append(rows, table.Row{show.Key, show.Name, show.Station, string(show.Frequency)})
			}
			fmt.Fprintln(out, renderTable(header, rows))
			return nil
		},
	}
}
