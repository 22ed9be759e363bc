package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/internal/site"
	"github.com/user/contact-scraper/pkg/utils"
)

const (
	maxScrollAttempts  = 50
	stableHeightRounds = 3
	scrollLogEvery     = 10
)

// PaginationTimings bound the waits of the result pagination.
type PaginationTimings struct {
	FeedWait      time.Duration
	ScrollDelay   time.Duration
	ClickDelayMin time.Duration
	ClickDelayMax time.Duration
}

// Paginator loads the whole result feed and opens listings one at a time.
type Paginator struct {
	site    *site.Adapter
	pacer   *utils.Pacer
	timings PaginationTimings
}

func NewPaginator(adapter *site.Adapter, pacer *utils.Pacer, timings PaginationTimings) *Paginator {
	return &Paginator{site: adapter, pacer: pacer, timings: timings}
}

// ScrollAndLoadAll scrolls the feed until its height stops changing and an end-of-list
// notice shows, or until the scroll ceiling. It returns the number of loaded listings.
func (p *Paginator) ScrollAndLoadAll(ctx context.Context, page repository.Page) (int, error) {
	slog.Info("Scrolling to load all results")

	if p.timings.FeedWait > 0 {
		if err := page.WaitVisible(ctx, p.site.ResultsFeedSelector, p.timings.FeedWait); err != nil {
			return 0, fmt.Errorf("wait for results feed: %w", err)
		}
	}

	previousHeight := 0
	unchanged := 0
	for attempt := 1; attempt <= maxScrollAttempts; attempt++ {
		var height int
		if err := page.Evaluate(ctx, p.site.ScrollFeedScript(), &height); err != nil {
			return 0, fmt.Errorf("scroll results feed: %w", err)
		}
		if err := p.pacer.Sleep(ctx, p.timings.ScrollDelay); err != nil {
			return 0, err
		}

		if height == previousHeight {
			unchanged++
			if unchanged >= stableHeightRounds && p.endReached(ctx, page) {
				slog.Info("Reached end of results", "scrolls", attempt)
				break
			}
		} else {
			unchanged = 0
		}
		previousHeight = height

		if attempt%scrollLogEvery == 0 {
			slog.Info("Scrolling", "scrolls", attempt, "loaded", p.count(ctx, page))
		}
	}

	total := p.count(ctx, page)
	slog.Info("Total results loaded", "count", total)
	return total, nil
}

func (p *Paginator) endReached(ctx context.Context, page repository.Page) bool {
	text, err := page.Text(ctx)
	if err != nil {
		return false
	}
	return p.site.HasEndOfList(text)
}

func (p *Paginator) count(ctx context.Context, page repository.Page) int {
	var n int
	if err := page.Evaluate(ctx, p.site.CountListingsScript(), &n); err != nil {
		slog.Warn("Failed to count results", "error", err)
		return 0
	}
	return n
}

// Listings enumerates the loaded listings in feed order.
func (p *Paginator) Listings(ctx context.Context, page repository.Page) ([]entity.Listing, error) {
	var listings []entity.Listing
	if err := page.Evaluate(ctx, p.site.ListingsScript(), &listings); err != nil {
		return nil, fmt.Errorf("enumerate listings: %w", err)
	}
	for i := range listings {
		if listings[i].Name == "" {
			listings[i].Name = fmt.Sprintf("Business %d", listings[i].Index+1)
		}
	}
	slog.Info("Extracted business listings", "count", len(listings))
	return listings, nil
}

// ClickListing opens a listing's detail panel. The element at the listing's index must
// still carry the enumerated name, otherwise the feed has shifted and nothing is clicked.
func (p *Paginator) ClickListing(ctx context.Context, page repository.Page, listing entity.Listing) bool {
	var outcome string
	if err := page.Evaluate(ctx, p.site.ClickListingScript(listing.Index, listing.Name), &outcome); err != nil {
		slog.Warn("Failed to click listing", "index", listing.Index, "name", listing.Name, "error", err)
		return false
	}
	if outcome != site.ClickOK {
		slog.Warn("Skipping listing", "index", listing.Index, "name", listing.Name, "reason", outcome)
		return false
	}
	if err := p.pacer.SleepBetween(ctx, p.timings.ClickDelayMin, p.timings.ClickDelayMax); err != nil {
		return false
	}
	return true
}
