package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/user/contact-scraper/internal/repository"
)

const bodyTextScript = `document.body ? document.body.innerText : ''`

// Page is a single Chrome tab.
type Page struct {
	ctx               context.Context
	cancel            context.CancelFunc
	navigationTimeout time.Duration
	actionTimeout     time.Duration
}

var _ repository.Page = (*Page)(nil)

// run executes actions on the tab, bounded by timeout and by ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.navigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, p.actionTimeout, chromedp.Location(&loc))
	return loc, err
}

func (p *Page) Evaluate(ctx context.Context, script string, res any) error {
	return p.run(ctx, p.actionTimeout, chromedp.Evaluate(script, res))
}

func (p *Page) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (p *Page) Clear(ctx context.Context, sel string) error {
	return p.run(ctx, p.actionTimeout, chromedp.Clear(sel, chromedp.ByQuery))
}

func (p *Page) SendKeys(ctx context.Context, sel, text string) error {
	return p.run(ctx, p.actionTimeout, chromedp.SendKeys(sel, text, chromedp.ByQuery))
}

func (p *Page) PressEnter(ctx context.Context, sel string) error {
	return p.run(ctx, p.actionTimeout, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
}

func (p *Page) Text(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, p.actionTimeout, chromedp.Evaluate(bodyTextScript, &text))
	return text, err
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, p.actionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Close closes the tab. The browser keeps running.
func (p *Page) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close page: %w", err)
	}
	return nil
}
