package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/pkg/metrics"
	"github.com/user/contact-scraper/pkg/utils"
	"golang.org/x/time/rate"
)

const finalTopQueries = 5

// RunnerConfig holds the run loop policy.
type RunnerConfig struct {
	MaxResultsPerQuery    int
	MaxQueriesPerHour     int
	BrowserRestartAfter   int
	CooldownAfter         int
	CooldownDuration      time.Duration
	BlockCooldown         time.Duration
	MaxMemoryMB           int64
	BatchSize             int
	MaxConcurrentBrowsers int
}

// Runner processes queries one at a time and applies the restart and cooldown policy.
type Runner struct {
	cfg       RunnerConfig
	launcher  repository.BrowserLauncher
	store     repository.Store
	queue     *QueueManager
	search    *SearchController
	paginator *Paginator
	extractor *ContactExtractor
	pacer     *utils.Pacer
	limiter   *rate.Limiter
	stats     *entity.RunStatistics
	runID     string
	now       func() time.Time

	mu      sync.Mutex
	session repository.BrowserSession

	sinceRestart  int
	sinceCooldown int
}

func NewRunner(
	cfg RunnerConfig,
	launcher repository.BrowserLauncher,
	store repository.Store,
	queue *QueueManager,
	search *SearchController,
	paginator *Paginator,
	extractor *ContactExtractor,
	pacer *utils.Pacer,
) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	// Burst stays at 1 so MAX_QUERIES_PER_HOUR holds from the first hour on.
	limit := rate.Inf
	burst := 1
	if cfg.MaxQueriesPerHour > 0 {
		limit = rate.Every(time.Hour / time.Duration(cfg.MaxQueriesPerHour))
	}

	return &Runner{
		cfg:       cfg,
		launcher:  launcher,
		store:     store,
		queue:     queue,
		search:    search,
		paginator: paginator,
		extractor: extractor,
		pacer:     pacer,
		limiter:   rate.NewLimiter(limit, burst),
		stats:     entity.NewRunStatistics(time.Now()),
		runID:     uuid.NewString(),
		now:       time.Now,
	}
}

func (r *Runner) RunID() string {
	return r.runID
}

// Snapshot returns the current run counters. Safe for concurrent use.
func (r *Runner) Snapshot() entity.RunSnapshot {
	return r.stats.Snapshot()
}

// Initialize loads the job file, rebuilds the queue from stored progress and launches
// the first browser session.
func (r *Runner) Initialize(ctx context.Context, jobFile string) (ReconcileSummary, error) {
	slog.Info("Initializing scraper",
		"run_id", r.runID,
		"file", jobFile,
		"max_concurrent_browsers", r.cfg.MaxConcurrentBrowsers,
	)

	if _, err := r.queue.LoadFile(jobFile); err != nil {
		return ReconcileSummary{}, err
	}
	summary, err := r.queue.Reconcile(ctx)
	if err != nil {
		return ReconcileSummary{}, err
	}
	r.stats.SetTotalQueries(summary.Queued)

	if summary.Queued == 0 {
		slog.Info("Nothing to do, all queries are completed")
		return summary, nil
	}

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		return ReconcileSummary{}, fmt.Errorf("launch browser: %w", err)
	}
	r.setSession(session)
	return summary, nil
}

// Run drains the queue. It returns ctx.Err() when interrupted, a launch error when a
// restart fails, and nil once every query has been attempted.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			slog.Warn("Run interrupted", "run_id", r.runID)
			return err
		}

		query, ok, err := r.queue.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rate limiter: %w", err)
		}

		if err := r.ensureConnected(ctx); err != nil {
			return err
		}

		err = r.handleQuery(ctx, query)
		switch {
		case err == nil:
			if err := r.applyCadence(ctx); err != nil {
				return err
			}
		case ctx.Err() != nil:
			slog.Warn("Query interrupted", "query", query)
			return ctx.Err()
		case errors.Is(err, ErrBlocked):
			if err := r.handleBlock(ctx); err != nil {
				return err
			}
		default:
			if err := r.applyCadence(ctx); err != nil {
				return err
			}
		}

		r.logProgress(ctx)
	}

	r.logFinalStats(ctx)
	return nil
}

// handleQuery processes one query and records its outcome. Ordinary failures are recorded
// and swallowed; blocked failures are recorded and returned.
func (r *Runner) handleQuery(ctx context.Context, query string) error {
	start := r.now()
	log := slog.With("run_id", r.runID, "query", query)
	log.Info("Processing query")

	if err := r.store.MarkQueryInProgress(ctx, query); err != nil {
		log.Warn("Failed to mark query in progress", "error", err)
	}

	result, err := r.ProcessQuery(ctx, query)
	metrics.QueryDuration.Observe(r.now().Sub(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		blocked := errors.Is(err, ErrBlocked)
		log.Error("Query failed", "error", err)
		if markErr := r.store.MarkQueryFailed(ctx, query, err.Error()); markErr != nil {
			log.Warn("Failed to mark query failed", "error", markErr)
		}
		r.stats.AddFailed(blocked)
		if blocked {
			metrics.QueriesTotal.WithLabelValues("blocked").Inc()
			return err
		}
		metrics.QueriesTotal.WithLabelValues("failed").Inc()
		return nil
	}

	if err := r.store.MarkQueryCompleted(ctx, query, result); err != nil {
		log.Warn("Failed to mark query completed", "error", err)
	}
	r.stats.AddCompleted()
	if result.ResultsFound == 0 && result.ContactsExtracted == 0 {
		metrics.QueriesTotal.WithLabelValues("no_results").Inc()
	} else {
		metrics.QueriesTotal.WithLabelValues("completed").Inc()
	}
	log.Info("Completed query",
		"results", result.ResultsFound,
		"contacts", result.ContactsExtracted,
		"took", r.now().Sub(start).Round(time.Second).String(),
	)
	return nil
}

// ProcessQuery runs the page pipeline for one query without touching progress records.
func (r *Runner) ProcessQuery(ctx context.Context, query string) (entity.QueryResult, error) {
	session := r.currentSession()
	if session == nil {
		return entity.QueryResult{}, ErrNoSession
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		return entity.QueryResult{}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Debug("Failed to close page", "error", err)
		}
	}()

	outcome, err := r.search.Execute(ctx, page, query)
	if err != nil {
		return entity.QueryResult{}, err
	}
	if outcome == SearchNoResults {
		return entity.QueryResult{}, nil
	}

	total, err := r.paginator.ScrollAndLoadAll(ctx, page)
	if err != nil {
		return entity.QueryResult{}, err
	}

	listings, err := r.paginator.Listings(ctx, page)
	if err != nil {
		return entity.QueryResult{}, err
	}
	if limit := r.cfg.MaxResultsPerQuery; limit > 0 && len(listings) > limit {
		slog.Info("Capping listings", "query", query, "found", len(listings), "cap", limit)
		listings = listings[:limit]
	}
	slog.Info("Found businesses to process", "query", query, "count", len(listings))

	result := entity.QueryResult{ResultsFound: total}
	batch := make([]*entity.Contact, 0, r.cfg.BatchSize)
	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !r.paginator.ClickListing(ctx, page, listing) {
			metrics.ListingsSkipped.Inc()
			continue
		}

		contact := r.extractor.Extract(ctx, page, listing.Name, query)
		if contact == nil {
			return result, ctx.Err()
		}
		if !contact.HasContactData() {
			continue
		}

		batch = append(batch, contact)
		result.ContactsExtracted++
		if len(batch) >= r.cfg.BatchSize {
			r.flush(ctx, batch)
			batch = make([]*entity.Contact, 0, r.cfg.BatchSize)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(batch) > 0 {
		r.flush(ctx, batch)
	}
	return result, nil
}

func (r *Runner) flush(ctx context.Context, batch []*entity.Contact) {
	res, err := r.store.BatchInsertContacts(ctx, batch)
	if err != nil {
		slog.Error("Failed to save contacts", "count", len(batch), "error", err)
		metrics.ContactsTotal.WithLabelValues("failed").Add(float64(len(batch)))
		return
	}
	metrics.ContactsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.ContactsTotal.WithLabelValues("duplicate").Add(float64(res.Duplicates))
	metrics.ContactsTotal.WithLabelValues("failed").Add(float64(res.Failed))
	r.stats.AddContacts(res.Inserted, res.Duplicates)
	slog.Info("Saved contacts",
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
	)
}

func (r *Runner) handleBlock(ctx context.Context) error {
	slog.Error("Block detected, entering extended cooldown", "duration", r.cfg.BlockCooldown.String())
	metrics.Cooldowns.WithLabelValues("blocked").Inc()
	if err := r.pacer.Sleep(ctx, r.cfg.BlockCooldown); err != nil {
		return err
	}
	return r.restart(ctx, "blocked")
}

// applyCadence runs the memory, rotation and cooldown checks. They are independent of
// each other and all of them run after every query that was not blocked.
func (r *Runner) applyCadence(ctx context.Context) error {
	r.sinceRestart++
	r.sinceCooldown++

	if r.cfg.MaxMemoryMB > 0 {
		if session := r.currentSession(); session != nil {
			mb, err := session.ResidentMemoryMB()
			if err != nil {
				slog.Debug("Memory probe failed", "error", err)
			} else {
				metrics.ResidentMemoryMB.Set(float64(mb))
				if mb > r.cfg.MaxMemoryMB {
					slog.Warn("High memory usage, restarting browser", "rss_mb", mb, "limit_mb", r.cfg.MaxMemoryMB)
					if err := r.restart(ctx, "memory"); err != nil {
						return err
					}
				}
			}
		}
	}

	if r.cfg.BrowserRestartAfter > 0 && r.sinceRestart >= r.cfg.BrowserRestartAfter {
		slog.Info("Restarting browser for fingerprint rotation", "queries", r.sinceRestart)
		if err := r.restart(ctx, "rotation"); err != nil {
			return err
		}
	}

	if r.cfg.CooldownAfter > 0 && r.sinceCooldown >= r.cfg.CooldownAfter {
		slog.Info("Cooldown", "duration", r.cfg.CooldownDuration.String())
		metrics.Cooldowns.WithLabelValues("scheduled").Inc()
		if err := r.pacer.Sleep(ctx, r.cfg.CooldownDuration); err != nil {
			return err
		}
		r.sinceCooldown = 0
	}
	return nil
}

// ensureConnected relaunches a session whose browser went away, so a crash costs no query
// a retry.
func (r *Runner) ensureConnected(ctx context.Context) error {
	session := r.currentSession()
	if session == nil || session.IsConnected() {
		return nil
	}
	slog.Warn("Browser disconnected, restarting", "run_id", r.runID)
	return r.restart(ctx, "disconnected")
}

// restart replaces the session wholesale. A launch failure is fatal to the run.
func (r *Runner) restart(ctx context.Context, reason string) error {
	metrics.BrowserRestarts.WithLabelValues(reason).Inc()
	r.closeSession()

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("restart browser: %w", err)
	}
	r.setSession(session)
	r.sinceRestart = 0
	slog.Info("Browser restarted", "reason", reason)
	return nil
}

func (r *Runner) logProgress(ctx context.Context) {
	s := r.stats.Snapshot()
	remaining, err := r.queue.Remaining(ctx)
	if err != nil {
		slog.Debug("Failed to read queue size", "error", err)
	}

	done := s.Completed + s.Failed
	percent := 0.0
	if s.TotalQueries > 0 {
		percent = float64(s.Completed) / float64(s.TotalQueries) * 100
	}
	eta := utils.EstimateRemaining(r.now().Sub(s.StartTime), done, remaining)

	slog.Info("Progress",
		"completed", fmt.Sprintf("%d/%d", s.Completed, s.TotalQueries),
		"percent", fmt.Sprintf("%.1f", percent),
		"remaining", remaining,
		"failed", s.Failed,
		"blocked", s.Blocked,
		"contacts", humanize.Comma(int64(s.TotalContacts)),
		"eta", etaString(eta),
	)
}

func (r *Runner) logFinalStats(ctx context.Context) {
	s := r.stats.Snapshot()
	runtime := r.now().Sub(s.StartTime).Round(time.Second)

	stored, err := r.store.GetStats(ctx, finalTopQueries)
	if err != nil {
		slog.Error("Failed to load final statistics", "error", err)
		return
	}

	slog.Info("Scraping completed",
		"run_id", r.runID,
		"total_queries", s.TotalQueries,
		"completed", stored.Completed,
		"failed", stored.Failed,
		"blocked", s.Blocked,
		"total_contacts", humanize.Comma(int64(stored.TotalContacts)),
		"duplicates", s.Duplicates,
		"runtime", runtime.String(),
	)
	for i, q := range stored.TopQueries {
		slog.Info("Top query", "rank", i+1, "query", q.Query, "contacts", q.Contacts)
	}
}

// Shutdown closes the browser session. The store is owned by the caller.
func (r *Runner) Shutdown() {
	slog.Info("Cleaning up")
	r.closeSession()
	slog.Info("Scraper stopped", "run_id", r.runID)
}

func (r *Runner) currentSession() repository.BrowserSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Runner) setSession(s repository.BrowserSession) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

func (r *Runner) closeSession() {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		slog.Warn("Failed to close browser", "error", err)
	}
}

func etaString(d time.Duration) string {
	if d <= 0 {
		return "unknown"
	}
	now := time.Now()
	return humanize.RelTime(now, now.Add(d), "ago", "left")
}
