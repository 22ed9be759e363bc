package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/user/contact-scraper/internal/usecase"
)

var (
	filterJobFile string
	filterOutput  string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Write the queries of a job file that are not completed yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := os.Open(filterJobFile)
		if err != nil {
			return fmt.Errorf("open job file: %w", err)
		}
		queries, err := usecase.ParseQueries(in, usecase.FormatForPath(filterJobFile))
		in.Close()
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		out, err := os.Create(filterOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", filterOutput, err)
		}
		summary, err := usecase.FilterRemaining(ctx, store, queries, out)
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("filter queries: %w", err)
		}

		slog.Info("Filtered job file",
			"total", summary.Total,
			"completed", summary.Completed,
			"remaining", summary.Remaining,
			"file", filterOutput,
		)
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVarP(&filterJobFile, "file", "f", "queries.txt", "Job file to filter")
	filterCmd.Flags().StringVarP(&filterOutput, "output", "o", "queries_remaining.txt", "Where to write the remaining queries")
}
