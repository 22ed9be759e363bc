package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-scraper/internal/site"
)

func newTestSearch() (*SearchController, *site.Adapter, *sleepRecorder) {
	adapter := site.GoogleMaps("")
	pacer, rec := newTestPacer()
	return NewSearchController(adapter, pacer, DefaultSearchTimings(2*time.Second, 5*time.Second)), adapter, rec
}

func TestExecuteReady(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.onEnter = func(p *fakePage) { p.text = "Results for dentists" }

	outcome, err := c.Execute(context.Background(), p, "dentists in Berlin")
	require.NoError(t, err)
	assert.Equal(t, SearchReady, outcome)
	assert.Equal(t, "dentists in Berlin", p.typed)
	assert.True(t, p.entered)
}

func TestExecuteNoResults(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.onEnter = func(p *fakePage) { p.text = "No results found for zzzz" }

	outcome, err := c.Execute(context.Background(), p, "zzzz")
	require.NoError(t, err)
	assert.Equal(t, SearchNoResults, outcome)
	assert.Equal(t, "no_results", outcome.String())
}

func TestExecuteMissingFeedMeansNoResults(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.waitErr = context.DeadlineExceeded

	outcome, err := c.Execute(context.Background(), p, "bakeries")
	require.NoError(t, err)
	assert.Equal(t, SearchNoResults, outcome)
}

func TestExecuteBlocked(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.onEnter = func(p *fakePage) { p.text = "Please verify you're not a robot" }

	outcome, err := c.Execute(context.Background(), p, "plumbers")
	require.Error(t, err)
	assert.Equal(t, SearchBlocked, outcome)
	assert.True(t, errors.Is(err, ErrBlocked))

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "plumbers", blocked.Query)
	assert.Equal(t, "verify you're not a robot", blocked.Reason)
}

func TestExecuteCaptchaWithoutSearchBoxIsBlocked(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.on(site.FirstPresentScript(adapter.SearchInputSelectors), -1)
	p.text = "Solve this CAPTCHA to continue"

	outcome, err := c.Execute(context.Background(), p, "florists")
	assert.Equal(t, SearchBlocked, outcome)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestExecuteSearchInputMissing(t *testing.T) {
	c, adapter, rec := newTestSearch()
	p := newFakePage(adapter)
	p.on(site.FirstPresentScript(adapter.SearchInputSelectors), -1)

	_, err := c.Execute(context.Background(), p, "florists")
	assert.ErrorIs(t, err, ErrSearchInputNotFound)
	// 15s budget polled every 500ms.
	assert.Equal(t, 30, rec.count(500*time.Millisecond))
}

func TestNavigateRetriesTransientFailures(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.navErrs = 2
	c.timings.NavigateBackoff = time.Millisecond

	require.NoError(t, c.NavigateToTarget(context.Background(), p))
	assert.Equal(t, 3, p.navCalls)
	assert.Equal(t, adapter.TargetURL, p.url)
}

func TestNavigateGivesUpAfterThreeAttempts(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.navErrs = 5
	c.timings.NavigateBackoff = time.Millisecond

	err := c.NavigateToTarget(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, 3, p.navCalls)
}

func TestResolveConsentOnConsentDomain(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.url = "https://consent.google.com/ml?continue=https://www.google.com/maps"
	p.onFunc(adapter.ClickConsentScript(true), func() (any, error) {
		p.url = "https://www.google.com/maps"
		return true, nil
	})

	assert.True(t, c.ResolveConsent(context.Background(), p))
}

func TestResolveConsentStuckOnConsentDomain(t *testing.T) {
	c, adapter, rec := newTestSearch()
	p := newFakePage(adapter)
	p.url = "https://consent.google.com/ml"
	p.on(adapter.ClickConsentScript(true), true)

	assert.False(t, c.ResolveConsent(context.Background(), p))
	assert.Equal(t, 20, rec.count(500*time.Millisecond))
}

func TestResolveConsentInlineBanner(t *testing.T) {
	c, adapter, rec := newTestSearch()
	p := newFakePage(adapter)
	p.url = "https://www.google.com/maps"
	p.text = "Before you continue to Google Maps"
	p.on(adapter.ClickConsentScript(false), true)

	assert.True(t, c.ResolveConsent(context.Background(), p))
	assert.Equal(t, 1, rec.count(2*time.Second))
}

func TestResolveConsentNothingToDo(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.url = "https://www.google.com/maps"
	p.text = "Search Google Maps"

	assert.False(t, c.ResolveConsent(context.Background(), p))
}

func TestDetectBlockNeverFailsOnPlainPage(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)
	p.text = "Restaurants near you"

	reason, blocked := c.DetectBlock(context.Background(), p)
	assert.False(t, blocked)
	assert.Empty(t, reason)
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	c, adapter, _ := newTestSearch()
	p := newFakePage(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, p, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
