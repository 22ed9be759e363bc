package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/user/contact-scraper/internal/usecase"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored contact of the dataset to a CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if exportOutput == "" {
			exportOutput = fmt.Sprintf("contacts_%s.csv", cfg.Dataset)
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}

		n, err := usecase.ExportContacts(ctx, store, f)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("export contacts: %w", err)
		}

		slog.Info("Exported contacts", "count", n, "file", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output CSV file (default contacts_<dataset>.csv)")
}
