package chromedp_browser

import (
	"math/rand"
	"sync"

	"github.com/user/contact-scraper/pkg/config"
)

// Identity is the fingerprint a browser session is launched with. It never changes
// during the session's lifetime.
type Identity struct {
	UserAgent string
	Viewport  config.Viewport
	Proxy     string
}

// IdentityPicker hands out identities from fixed pools: a random user agent and
// viewport, and proxies in sequential rotation.
type IdentityPicker struct {
	userAgents []string
	viewports  []config.Viewport
	proxies    []string

	mu         sync.Mutex
	rng        *rand.Rand
	proxyIndex int
}

func NewIdentityPicker(userAgents []string, viewports []config.Viewport, proxies []string, rng *rand.Rand) *IdentityPicker {
	if len(userAgents) == 0 {
		userAgents = config.DefaultUserAgents
	}
	if len(viewports) == 0 {
		viewports = config.DefaultViewports
	}
	return &IdentityPicker{
		userAgents: append([]string(nil), userAgents...),
		viewports:  append([]config.Viewport(nil), viewports...),
		proxies:    append([]string(nil), proxies...),
		rng:        rng,
	}
}

// Next returns the identity for a new session.
func (p *IdentityPicker) Next() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := Identity{
		UserAgent: p.userAgents[p.rng.Intn(len(p.userAgents))],
		Viewport:  p.viewports[p.rng.Intn(len(p.viewports))],
	}
	if len(p.proxies) > 0 {
		id.Proxy = p.proxies[p.proxyIndex]
		p.proxyIndex = (p.proxyIndex + 1) % len(p.proxies)
	}
	return id
}

// UserAgent returns a random user agent, used for per-tab overrides.
func (p *IdentityPicker) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgents[p.rng.Intn(len(p.userAgents))]
}
