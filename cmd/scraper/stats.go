package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print stored totals for the dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.GetStats(ctx, statsTop)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Dataset:            %s\n", cfg.Dataset)
		fmt.Fprintf(out, "Contacts:           %s\n", humanize.Comma(int64(stats.TotalContacts)))
		fmt.Fprintf(out, "Completed queries:  %s\n", humanize.Comma(int64(stats.Completed)))
		fmt.Fprintf(out, "Failed queries:     %s\n", humanize.Comma(int64(stats.Failed)))
		fmt.Fprintf(out, "In progress:        %s\n", humanize.Comma(int64(stats.InProgress)))
		if len(stats.TopQueries) > 0 {
			fmt.Fprintln(out, "Top queries:")
			for i, q := range stats.TopQueries {
				fmt.Fprintf(out, "  %2d. %s (%s contacts)\n", i+1, q.Query, humanize.Comma(int64(q.Contacts)))
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "Number of top queries to list")
}
