package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/internal/site"
	"github.com/user/contact-scraper/pkg/metrics"
	"github.com/user/contact-scraper/pkg/utils"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

var errUnexpectedScript = errors.New("unexpected script")

// fakePage answers scripts by exact text. Tests register the scripts they expect.
type fakePage struct {
	url      string
	text     string
	html     string
	typed    string
	entered  bool
	closed   bool
	waitErr  error
	waited   []string
	navErrs  int
	navCalls int
	scripts  map[string]func() (any, error)
	onEnter  func(p *fakePage)
}

var _ repository.Page = (*fakePage)(nil)

func newFakePage(adapter *site.Adapter) *fakePage {
	p := &fakePage{scripts: make(map[string]func() (any, error))}
	p.on(site.FirstPresentScript(adapter.SearchInputSelectors), 0)
	return p
}

func (p *fakePage) on(script string, v any) {
	p.scripts[script] = func() (any, error) { return v, nil }
}

func (p *fakePage) onFunc(script string, fn func() (any, error)) {
	p.scripts[script] = fn
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navCalls++
	if p.navErrs > 0 {
		p.navErrs--
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) { return p.url, nil }

func (p *fakePage) Evaluate(ctx context.Context, script string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, ok := p.scripts[script]
	if !ok {
		return errUnexpectedScript
	}
	v, err := fn()
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, res)
}

func (p *fakePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	p.waited = append(p.waited, sel)
	return p.waitErr
}

func (p *fakePage) Clear(ctx context.Context, sel string) error {
	p.typed = ""
	return nil
}

func (p *fakePage) SendKeys(ctx context.Context, sel, text string) error {
	p.typed += text
	return nil
}

func (p *fakePage) PressEnter(ctx context.Context, sel string) error {
	p.entered = true
	if p.onEnter != nil {
		p.onEnter(p)
	}
	return nil
}

func (p *fakePage) Text(ctx context.Context) (string, error) { return p.text, nil }

func (p *fakePage) HTML(ctx context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// listingFixture is one business in a scripted result feed.
type listingFixture struct {
	name string
	html string
}

// scenario scripts what the directory shows for a query.
type scenario struct {
	blocked   bool
	noResults bool
	scrollErr error
	listings  []listingFixture
	onClick   func(index int)
}

// world hands out pages that play back scenarios keyed by the typed query.
type world struct {
	adapter   *site.Adapter
	scenarios map[string]scenario
	pages     []*fakePage
}

func (w *world) newPage() *fakePage {
	p := newFakePage(w.adapter)
	p.onEnter = func(p *fakePage) { w.play(p, w.scenarios[p.typed]) }
	w.pages = append(w.pages, p)
	return p
}

func (w *world) play(p *fakePage, sc scenario) {
	a := w.adapter
	switch {
	case sc.blocked:
		p.text = "Our systems have detected unusual traffic from your computer network."
		return
	case sc.noResults:
		p.text = "Google Maps can't find this. No results."
		return
	}

	p.text = "Results. You've reached the end of the list."
	if sc.scrollErr != nil {
		p.onFunc(a.ScrollFeedScript(), func() (any, error) { return nil, sc.scrollErr })
		return
	}
	p.on(a.ScrollFeedScript(), 4200)
	p.on(a.CountListingsScript(), len(sc.listings))
	p.on(a.RevealPhoneScript(), false)

	listings := make([]entity.Listing, len(sc.listings))
	for i, l := range sc.listings {
		listings[i] = entity.Listing{Index: i, Name: l.name}
		index, html := i, l.html
		p.onFunc(a.ClickListingScript(i, l.name), func() (any, error) {
			if sc.onClick != nil {
				sc.onClick(index)
			}
			p.html = html
			p.text = ""
			return site.ClickOK, nil
		})
	}
	p.on(a.ListingsScript(), listings)
}

type fakeSession struct {
	mu       sync.Mutex
	id       int
	world    *world
	closed   bool
	memoryMB int64
	pageErr  error
}

var _ repository.BrowserSession = (*fakeSession)(nil)

func (s *fakeSession) NewPage(ctx context.Context) (repository.Page, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return s.world.newPage(), nil
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *fakeSession) ResidentMemoryMB() (int64, error) { return s.memoryMB, nil }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fakeLauncher struct {
	world    *world
	memoryMB int64
	pageErr  error
	failAt   int
	sessions []*fakeSession
}

func (l *fakeLauncher) Launch(ctx context.Context) (repository.BrowserSession, error) {
	if l.failAt > 0 && len(l.sessions)+1 >= l.failAt {
		return nil, fmt.Errorf("chrome failed to start")
	}
	s := &fakeSession{id: len(l.sessions) + 1, world: l.world, memoryMB: l.memoryMB, pageErr: l.pageErr}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// sleepRecorder replaces real waits and remembers what was asked for.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.waits {
		if w == d {
			n++
		}
	}
	return n
}

func newTestPacer() (*utils.Pacer, *sleepRecorder) {
	rec := &sleepRecorder{}
	p := utils.NewPacer(1)
	p.SleepFunc = rec.sleep
	return p, rec
}
