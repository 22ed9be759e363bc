package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/contact-scraper/internal/adapter/chromedp_browser"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/internal/site"
	"github.com/user/contact-scraper/internal/usecase"
	"github.com/user/contact-scraper/pkg/config"
	"github.com/user/contact-scraper/pkg/utils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every query of a job file",
	Long:  `Loads the job file, skips queries already completed for the dataset, retries earlier failures first and scrapes the rest one at a time.`,
	Args:  cobra.NoArgs,
	RunE:  runScraper,
}

var (
	runJobFile string
	runInit    bool
)

func init() {
	runCmd.Flags().StringVarP(&runJobFile, "file", "f", "queries.txt", "Job file with one query per line, or a .json array")
	runCmd.Flags().BoolVar(&runInit, "init", false, "Write a sample job file to --file and exit")
}

func runScraper(cmd *cobra.Command, args []string) error {
	if runInit {
		return usecase.WriteSampleJobFile(runJobFile)
	}
	if _, err := os.Stat(runJobFile); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("job file %s not found, create one with --init", runJobFile)
	}

	ctx := cmd.Context()
	slog.Info("Starting contact scraper",
		"dataset", cfg.Dataset,
		"target", cfg.TargetURL,
		"headless", cfg.Headless,
		"store", cfg.StoreBackend,
		"queue", cfg.QueueBackend,
	)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	queue, closeQueue, err := openQueue(ctx)
	if err != nil {
		return err
	}
	defer closeQueue()

	runner := newRunner(store, queue)
	defer runner.Shutdown()

	startStatusServer(ctx, runner, store)

	if _, err := runner.Initialize(ctx, runJobFile); err != nil {
		return err
	}
	return runner.Run(ctx)
}

func newRunner(store repository.Store, queue repository.QueueRepository) *usecase.Runner {
	seed := time.Now().UnixNano()
	pacer := utils.NewPacer(seed)
	adapter := site.GoogleMaps(cfg.TargetURL)

	identities := chromedp_browser.NewIdentityPicker(
		cfg.UserAgentPool(),
		config.DefaultViewports,
		cfg.ProxyPool(),
		rand.New(rand.NewSource(seed+1)),
	)
	browser := chromedp_browser.NewManager(chromedp_browser.Options{
		Headless:   cfg.Headless,
		ChromePath: cfg.ChromePath,
	}, identities)

	searchMin, searchMax := cfg.SearchDelayRange()
	clickMin, clickMax := cfg.ClickDelayRange()

	return usecase.NewRunner(
		usecase.RunnerConfig{
			MaxResultsPerQuery:    cfg.MaxResultsPerQuery,
			MaxQueriesPerHour:     cfg.MaxQueriesPerHour,
			BrowserRestartAfter:   cfg.BrowserRestartAfterQueries,
			CooldownAfter:         cfg.CooldownAfterQueries,
			CooldownDuration:      cfg.CooldownDuration(),
			BlockCooldown:         cfg.BlockCooldown(),
			MaxMemoryMB:           cfg.MaxMemoryMB,
			BatchSize:             cfg.BatchSize,
			MaxConcurrentBrowsers: cfg.MaxConcurrentBrowsers,
		},
		browser,
		store,
		usecase.NewQueueManager(queue, store, cfg.MaxRetries),
		usecase.NewSearchController(adapter, pacer, usecase.DefaultSearchTimings(searchMin, searchMax)),
		usecase.NewPaginator(adapter, pacer, usecase.PaginationTimings{
			FeedWait:      10 * time.Second,
			ScrollDelay:   cfg.ScrollDelayDuration(),
			ClickDelayMin: clickMin,
			ClickDelayMax: clickMax,
		}),
		usecase.NewContactExtractor(adapter, pacer),
		pacer,
	)
}
