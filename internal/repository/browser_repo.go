package repository

import (
	"context"
	"time"
)

// Page is a single browser tab. Implementations bound every call with their own
// timeout in addition to ctx.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// URL returns the current location of the tab.
	URL(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression and decodes its JSON result into res.
	Evaluate(ctx context.Context, script string, res any) error
	// WaitVisible waits until sel matches a visible element or timeout elapses.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	Clear(ctx context.Context, sel string) error
	SendKeys(ctx context.Context, sel, text string) error
	PressEnter(ctx context.Context, sel string) error
	// Text returns the rendered text of the document body.
	Text(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// BrowserSession is one running browser process with a fixed identity.
type BrowserSession interface {
	NewPage(ctx context.Context) (Page, error)
	IsConnected() bool
	// ResidentMemoryMB reports memory of this process and the browser combined.
	ResidentMemoryMB() (int64, error)
	Close() error
}

// BrowserLauncher starts new browser sessions.
type BrowserLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}
