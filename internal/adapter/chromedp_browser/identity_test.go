package chromedp_browser

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/contact-scraper/pkg/config"
)

func TestIdentityPickerRotatesProxiesSequentially(t *testing.T) {
	p := NewIdentityPicker([]string{"ua-1"}, nil, []string{"http://p1", "http://p2"}, rand.New(rand.NewSource(1)))

	assert.Equal(t, "http://p1", p.Next().Proxy)
	assert.Equal(t, "http://p2", p.Next().Proxy)
	assert.Equal(t, "http://p1", p.Next().Proxy)
}

func TestIdentityPickerDrawsFromPools(t *testing.T) {
	uas := []string{"ua-1", "ua-2", "ua-3"}
	vps := []config.Viewport{{Width: 800, Height: 600}, {Width: 1024, Height: 768}}
	p := NewIdentityPicker(uas, vps, nil, rand.New(rand.NewSource(99)))

	for i := 0; i < 50; i++ {
		id := p.Next()
		assert.Contains(t, uas, id.UserAgent)
		assert.Contains(t, vps, id.Viewport)
		assert.Empty(t, id.Proxy)
		assert.Contains(t, uas, p.UserAgent())
	}
}

func TestIdentityPickerFallsBackToDefaults(t *testing.T) {
	p := NewIdentityPicker(nil, nil, nil, rand.New(rand.NewSource(3)))
	id := p.Next()
	assert.Contains(t, config.DefaultUserAgents, id.UserAgent)
	assert.Contains(t, config.DefaultViewports, id.Viewport)
}

func TestAllocatorOptionsIncludeProxyAndPath(t *testing.T) {
	m := NewManager(Options{Headless: true, ChromePath: "/usr/bin/chromium"}, nil)
	base := m.allocatorOptions(Identity{UserAgent: "ua", Viewport: config.Viewport{Width: 1, Height: 1}})
	withProxy := m.allocatorOptions(Identity{UserAgent: "ua", Viewport: config.Viewport{Width: 1, Height: 1}, Proxy: "http://p1"})

	assert.Len(t, withProxy, len(base)+1)
	assert.Equal(t, defaultNavigationTimeout, m.opts.NavigationTimeout)
	assert.Equal(t, defaultActionTimeout, m.opts.ActionTimeout)
}
