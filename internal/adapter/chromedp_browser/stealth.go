package chromedp_browser

import (
	"context"
	"log/slog"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const acceptLanguage = "en-US,en;q=0.9"

var extraHeaders = network.Headers{
	"Accept-Language":           acceptLanguage,
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Encoding":           "gzip, deflate, br",
	"Upgrade-Insecure-Requests": "1",
}

var stealthScripts = []string{
	`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`,
	`window.chrome = window.chrome || {}; window.chrome.runtime = window.chrome.runtime || {};`,
	`Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});`,
	`Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});`,
	`(() => {
  const query = window.navigator.permissions && window.navigator.permissions.query;
  if (!query) return;
  window.navigator.permissions.query = (p) =>
    p && p.name === 'notifications'
      ? Promise.resolve({state: Notification.permission})
      : query.call(window.navigator.permissions, p);
})();`,
}

var blockedResourceTypes = map[network.ResourceType]struct{}{
	network.ResourceTypeImage:      {},
	network.ResourceTypeFont:       {},
	network.ResourceTypeStylesheet: {},
	network.ResourceTypeMedia:      {},
}

// prepareTab applies the per-tab fingerprint and request filtering.
func prepareTab(userAgent string, id Identity) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		if err := network.SetExtraHTTPHeaders(extraHeaders).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetUserAgentOverride(userAgent).WithAcceptLanguage(acceptLanguage).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetDeviceMetricsOverride(int64(id.Viewport.Width), int64(id.Viewport.Height), 1, false).Do(ctx); err != nil {
			return err
		}
		for _, script := range stealthScripts {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return err
			}
		}
		return fetch.Enable().Do(ctx)
	})
}

// blockResources fails image, font, stylesheet and media requests of the tab in ctx
// and lets everything else through. It must be installed before fetch.Enable runs.
func blockResources(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Listeners must not block, so the reply is sent from its own goroutine.
		go func() {
			c := chromedp.FromContext(ctx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(ctx, c.Target)

			var err error
			if _, blocked := blockedResourceTypes[paused.ResourceType]; blocked {
				err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			} else {
				err = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
			}
			if err != nil && ctx.Err() == nil {
				slog.Debug("Failed to answer paused request", "request_id", paused.RequestID, "error", err)
			}
		}()
	})
}
