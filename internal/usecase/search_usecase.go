package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/internal/site"
	"github.com/user/contact-scraper/pkg/metrics"
	"github.com/user/contact-scraper/pkg/utils"
)

// SearchOutcome is the terminal state of a search.
type SearchOutcome int

const (
	SearchReady SearchOutcome = iota
	SearchNoResults
	SearchBlocked
)

func (o SearchOutcome) String() string {
	switch o {
	case SearchReady:
		return "ready"
	case SearchNoResults:
		return "no_results"
	case SearchBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// SearchTimings bound every wait of the search flow.
type SearchTimings struct {
	NavigateAttempts int
	NavigateBackoff  time.Duration

	ConsentWait        time.Duration
	ConsentPoll        time.Duration
	InlineConsentPause time.Duration
	SettleMin          time.Duration
	SettleMax          time.Duration

	InputWait      time.Duration
	InputPoll      time.Duration
	KeyDelayMin    time.Duration
	KeyDelayMax    time.Duration
	SearchDelayMin time.Duration
	SearchDelayMax time.Duration

	FeedWait time.Duration
}

// DefaultSearchTimings returns the standard waits; searchMin and searchMax come from configuration.
func DefaultSearchTimings(searchMin, searchMax time.Duration) SearchTimings {
	return SearchTimings{
		NavigateAttempts:   3,
		NavigateBackoff:    time.Second,
		ConsentWait:        10 * time.Second,
		ConsentPoll:        500 * time.Millisecond,
		InlineConsentPause: 2 * time.Second,
		SettleMin:          time.Second,
		SettleMax:          2 * time.Second,
		InputWait:          15 * time.Second,
		InputPoll:          500 * time.Millisecond,
		KeyDelayMin:        50 * time.Millisecond,
		KeyDelayMax:        150 * time.Millisecond,
		SearchDelayMin:     searchMin,
		SearchDelayMax:     searchMax,
		FeedWait:           10 * time.Second,
	}
}

// SearchController drives a page from the landing URL to a populated result feed.
type SearchController struct {
	site    *site.Adapter
	pacer   *utils.Pacer
	timings SearchTimings
}

func NewSearchController(adapter *site.Adapter, pacer *utils.Pacer, timings SearchTimings) *SearchController {
	return &SearchController{site: adapter, pacer: pacer, timings: timings}
}

// Execute runs navigate, consent, search and result checks for query.
// A Blocked outcome is always returned together with a *BlockedError.
func (c *SearchController) Execute(ctx context.Context, page repository.Page, query string) (SearchOutcome, error) {
	if err := c.NavigateToTarget(ctx, page); err != nil {
		return SearchReady, err
	}

	if err := c.Search(ctx, page, query); err != nil {
		// A CAPTCHA interstitial has no search box.
		if errors.Is(err, ErrSearchInputNotFound) {
			if reason, blocked := c.DetectBlock(ctx, page); blocked {
				return SearchBlocked, &BlockedError{Query: query, Reason: reason}
			}
		}
		return SearchReady, err
	}

	if reason, blocked := c.DetectBlock(ctx, page); blocked {
		return SearchBlocked, &BlockedError{Query: query, Reason: reason}
	}

	hasResults, err := c.CheckForResults(ctx, page)
	if err != nil {
		return SearchReady, err
	}
	if !hasResults {
		slog.Warn("No results found", "query", query)
		return SearchNoResults, nil
	}

	slog.Info("Search results loaded", "query", query)
	return SearchReady, nil
}

// NavigateToTarget loads the target URL, retrying with backoff, and clears any consent gate.
func (c *SearchController) NavigateToTarget(ctx context.Context, page repository.Page) error {
	slog.Info("Navigating to target", "url", c.site.TargetURL)

	err := utils.RetryWithBackoff(ctx, c.timings.NavigateAttempts, c.timings.NavigateBackoff, func(ctx context.Context) error {
		if err := page.Navigate(ctx, c.site.TargetURL); err != nil {
			metrics.NavigationRetries.Inc()
			slog.Warn("Navigation attempt failed", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("navigate to target: %w", err)
	}

	if current, err := page.URL(ctx); err == nil {
		slog.Info("Current URL after navigation", "url", current)
	}

	c.ResolveConsent(ctx, page)

	if err := c.pacer.SleepBetween(ctx, c.timings.SettleMin, c.timings.SettleMax); err != nil {
		return err
	}

	if current, err := page.URL(ctx); err == nil && !c.site.OnTarget(current) {
		slog.Warn("Page may not be fully loaded, not on target yet", "url", current)
	}
	return nil
}

// ResolveConsent accepts a consent interstitial or inline banner if one is shown.
// It never fails the query; problems are logged and false is returned.
func (c *SearchController) ResolveConsent(ctx context.Context, page repository.Page) bool {
	current, err := page.URL(ctx)
	if err != nil {
		slog.Warn("Consent check failed", "error", err)
		return false
	}

	if c.site.IsConsentURL(current) {
		slog.Info("Consent page detected, trying to accept", "url", current)

		var clicked bool
		if err := page.Evaluate(ctx, c.site.ClickConsentScript(true), &clicked); err != nil {
			slog.Warn("Consent handling error", "error", err)
			return false
		}
		if !clicked {
			slog.Warn("Consent page detected but no clickable button found")
			return false
		}

		for waited := time.Duration(0); waited < c.timings.ConsentWait; waited += c.timings.ConsentPoll {
			if err := c.pacer.Sleep(ctx, c.timings.ConsentPoll); err != nil {
				return false
			}
			next, err := page.URL(ctx)
			if err == nil && !c.site.IsConsentURL(next) {
				slog.Info("Left consent page", "url", next)
				return true
			}
		}
		slog.Warn("Still on consent page after clicking accept")
		return false
	}

	text, err := page.Text(ctx)
	if err != nil || !c.site.HasConsentText(text) {
		return false
	}

	slog.Info("Possible inline consent detected, trying to accept")
	var clicked bool
	if err := page.Evaluate(ctx, c.site.ClickConsentScript(false), &clicked); err != nil {
		slog.Warn("Consent handling error", "error", err)
		return false
	}
	if !clicked {
		slog.Warn("Inline consent detected but no suitable button found")
		return false
	}
	_ = c.pacer.Sleep(ctx, c.timings.InlineConsentPause)
	return true
}

// Search types query into the search box like a person would and submits it.
func (c *SearchController) Search(ctx context.Context, page repository.Page, query string) error {
	slog.Info("Searching", "query", query)

	sel, err := c.findSearchInput(ctx, page)
	if err != nil {
		return err
	}

	if err := page.Clear(ctx, sel); err != nil {
		return fmt.Errorf("clear search input: %w", err)
	}
	if err := c.pacer.SleepBetween(ctx, 300*time.Millisecond, 600*time.Millisecond); err != nil {
		return err
	}

	for _, r := range query {
		if err := page.SendKeys(ctx, sel, string(r)); err != nil {
			return fmt.Errorf("type query: %w", err)
		}
		if err := c.pacer.SleepBetween(ctx, c.timings.KeyDelayMin, c.timings.KeyDelayMax); err != nil {
			return err
		}
	}
	if err := c.pacer.SleepBetween(ctx, 500*time.Millisecond, time.Second); err != nil {
		return err
	}

	if err := page.PressEnter(ctx, sel); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return c.pacer.SleepBetween(ctx, c.timings.SearchDelayMin, c.timings.SearchDelayMax)
}

// findSearchInput returns the first selector strategy that matches, polling until InputWait.
func (c *SearchController) findSearchInput(ctx context.Context, page repository.Page) (string, error) {
	script := site.FirstPresentScript(c.site.SearchInputSelectors)
	for waited := time.Duration(0); ; waited += c.timings.InputPoll {
		idx := -1
		if err := page.Evaluate(ctx, script, &idx); err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		if idx >= 0 && idx < len(c.site.SearchInputSelectors) {
			return c.site.SearchInputSelectors[idx], nil
		}
		if waited >= c.timings.InputWait || c.timings.InputPoll <= 0 {
			return "", ErrSearchInputNotFound
		}
		if err := c.pacer.Sleep(ctx, c.timings.InputPoll); err != nil {
			return "", err
		}
	}
}

// CheckForResults reports whether the result feed is shown and not a "no results" notice.
// A feed that never appears counts as no results; only cancellation is an error.
func (c *SearchController) CheckForResults(ctx context.Context, page repository.Page) (bool, error) {
	if err := page.WaitVisible(ctx, c.site.ResultsFeedSelector, c.timings.FeedWait); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("Could not verify results", "error", err)
		return false, nil
	}

	text, err := page.Text(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("Could not read page text", "error", err)
		return false, nil
	}
	return !c.site.HasNoResults(text), nil
}

// DetectBlock looks for bot-detection wording on the page. Read errors count as not blocked.
func (c *SearchController) DetectBlock(ctx context.Context, page repository.Page) (string, bool) {
	text, err := page.Text(ctx)
	if err != nil {
		return "", false
	}
	reason := c.site.BlockReason(text)
	if reason == "" {
		return "", false
	}
	slog.Error("Block detected, target is asking for verification", "reason", reason)
	return reason, true
}
