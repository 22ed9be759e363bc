package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/contact-scraper/pkg/config"
	"github.com/user/contact-scraper/pkg/logger"
	"github.com/user/contact-scraper/pkg/metrics"
)

var (
	envFile string
	dataset string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "Scrape business contacts from map search results",
	Long:          `Runs search queries against a map directory, opens every listing and stores the phone, website and email it finds. Progress is kept per dataset so interrupted runs resume where they stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == runCmd && runInit {
			// Writing a sample job file needs no store or browser settings.
			logger.Init(os.Stdout, logger.ParseLevel("info"), "text")
			return nil
		}

		loaded, err := config.LoadFile(envFile)
		if err != nil {
			return err
		}
		if dataset != "" {
			loaded.Dataset = dataset
		}
		cfg = loaded

		logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
		metrics.Init()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional env file with configuration")
	rootCmd.PersistentFlags().StringVarP(&dataset, "dataset", "d", "", "Dataset name, overrides DATASET")

	rootCmd.AddCommand(runCmd, exportCmd, filterCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Interrupted, shut down cleanly")
			return
		}
		slog.Error("Fatal error", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
