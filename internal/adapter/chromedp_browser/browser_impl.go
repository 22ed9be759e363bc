package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/pkg/utils"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultActionTimeout     = 30 * time.Second
)

var errSessionClosed = errors.New("browser session closed")

// Options configure how Chrome is started.
type Options struct {
	Headless          bool
	ChromePath        string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
}

// Manager launches Chrome sessions with rotating identities.
type Manager struct {
	opts       Options
	identities *IdentityPicker
}

// NewManager creates a new launcher using chromedp.
func NewManager(opts Options, identities *IdentityPicker) *Manager {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = defaultNavigationTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	return &Manager{opts: opts, identities: identities}
}

var _ repository.BrowserLauncher = (*Manager)(nil)

func (m *Manager) allocatorOptions(id Identity) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-component-extensions-with-background-pages", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("js-flags", "--max-old-space-size=4096"),
		chromedp.WindowSize(id.Viewport.Width, id.Viewport.Height),
		chromedp.UserAgent(id.UserAgent),
	)
	if m.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(m.opts.ChromePath))
	}
	if id.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(id.Proxy))
	}
	return opts
}

// Launch starts a new Chrome process. The returned session outlives ctx; ctx only
// bounds the startup.
func (m *Manager) Launch(ctx context.Context) (repository.BrowserSession, error) {
	id := m.identities.Next()
	slog.Info("Launching browser",
		"viewport", strconv.Itoa(id.Viewport.Width)+"x"+strconv.Itoa(id.Viewport.Height),
		"proxy", id.Proxy != "",
		"headless", m.opts.Headless,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions(id)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf),
		chromedp.WithErrorf(debugf),
	)

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	slog.Info("Browser launched successfully")
	return &Session{
		identity:    id,
		identities:  m.identities,
		opts:        m.opts,
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
	}, nil
}

// Session is one running Chrome process.
type Session struct {
	identity   Identity
	identities *IdentityPicker
	opts       Options

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ repository.BrowserSession = (*Session)(nil)

// Identity returns the fingerprint the session was launched with.
func (s *Session) Identity() Identity {
	return s.identity
}

// NewPage opens a new tab with a fresh user agent, stealth scripts and resource blocking.
func (s *Session) NewPage(ctx context.Context) (repository.Page, error) {
	if !s.IsConnected() {
		return nil, errSessionClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(s.ctx)
	blockResources(tabCtx)

	// The first Run on a tab context creates the target and must not carry a deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open page: %w", err)
	}

	setupCtx, setupCancel := context.WithTimeout(tabCtx, s.opts.ActionTimeout)
	defer setupCancel()
	stop := context.AfterFunc(ctx, setupCancel)
	defer stop()

	if err := chromedp.Run(setupCtx, prepareTab(s.identities.UserAgent(), s.identity)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Page{
		ctx:               tabCtx,
		cancel:            tabCancel,
		navigationTimeout: s.opts.NavigationTimeout,
		actionTimeout:     s.opts.ActionTimeout,
	}, nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.ctx.Err() == nil
}

// ResidentMemoryMB reports the RSS of this process plus the whole Chrome process tree.
func (s *Session) ResidentMemoryMB() (int64, error) {
	root := 0
	if c := chromedp.FromContext(s.ctx); c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			root = proc.Pid
		}
	}
	return utils.ProcessTreeMB(root)
}

// Close shuts Chrome down. Calling Close more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	slog.Info("Browser closed")
	return nil
}

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
}
