package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/site"
)

const detailPanel = `<html><body>
<div role="main" aria-label="Cafe Uno">
  <h1>Cafe Uno</h1>
  <span aria-label="Rated 4.6 stars 312 reviews">4.6</span>
  <a data-item-id="authority" href="/url?q=https://cafe-uno.example.com/&amp;sa=U" aria-label="Website: cafe-uno.example.com">cafe-uno.example.com</a>
  <button data-item-id="phone:tel:+493012345678" aria-label="Phone: +49 30 12345678">+49 30 12345678</button>
  <a href="tel:+49%2030%2012345678">Call</a>
  <a href="https://www.google.com/maps/contrib/1">Reviews</a>
  <p>Write to INFO@Cafe-Uno.example.com for bookings</p>
</div>
</body></html>`

func newTestExtractor() (*ContactExtractor, *site.Adapter) {
	adapter := site.GoogleMaps("")
	pacer, _ := newTestPacer()
	e := NewContactExtractor(adapter, pacer)
	e.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e, adapter
}

func TestParseFullDetailPanel(t *testing.T) {
	e, _ := newTestExtractor()

	c := e.Parse(PageSnapshot{HTML: detailPanel, URL: "https://www.google.com/maps/place/Cafe+Uno"}, "Cafe Uno (listing)", "cafes in berlin")

	assert.Equal(t, "Cafe Uno", c.BusinessName)
	assert.Equal(t, "+493012345678", c.Phone)
	assert.Equal(t, "https://cafe-uno.example.com/", c.Website)
	assert.Equal(t, "info@cafe-uno.example.com", c.Email)
	assert.Equal(t, "cafes in berlin", c.SourceQuery)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), c.ExtractedAt)
	assert.True(t, c.HasContactData())
}

func TestParseNameFallbacks(t *testing.T) {
	e, _ := newTestExtractor()

	c := e.Parse(PageSnapshot{HTML: `<div role="main" aria-label="Panel Name"></div>`}, "Listing Name", "q")
	assert.Equal(t, "Panel Name", c.BusinessName)

	c = e.Parse(PageSnapshot{HTML: `<div>nothing</div>`}, "Listing Name", "q")
	assert.Equal(t, "Listing Name", c.BusinessName)

	c = e.Parse(PageSnapshot{HTML: `<div>nothing</div>`}, "  ", "q")
	assert.Equal(t, entity.UnknownBusiness, c.BusinessName)
}

func TestParsePhoneFromAriaLabel(t *testing.T) {
	e, _ := newTestExtractor()
	html := `<h1>Dentist</h1><button aria-label="Phone: (212) 555-0147">Call</button>`

	c := e.Parse(PageSnapshot{HTML: html}, "", "q")
	assert.Equal(t, "2125550147", c.Phone)
}

func TestParsePhoneFromBodyText(t *testing.T) {
	e, _ := newTestExtractor()

	c := e.Parse(PageSnapshot{HTML: `<h1>Bakery</h1>`, Text: "Bakery\nOpen now\nCall 030 987 6543 today"}, "", "q")
	assert.Equal(t, "0309876543", c.Phone)
}

func TestParseShortNumbersAreNotPhones(t *testing.T) {
	e, _ := newTestExtractor()

	c := e.Parse(PageSnapshot{HTML: `<h1>Shop</h1>`, Text: "Shop\nOpen 9 to 5\nRated 4.5 (120)"}, "", "q")
	assert.Empty(t, c.Phone)
	assert.False(t, c.HasContactData())
}

func TestParseWebsiteSkipsFirstPartyLinks(t *testing.T) {
	e, _ := newTestExtractor()
	html := `<h1>Gym</h1>
<a href="https://www.google.com/maps/place/gym">Maps</a>
<a href="https://lh3.googleusercontent.com/photo.jpg">Photo</a>
<a href="https://gym.example.org/join">Join</a>`

	c := e.Parse(PageSnapshot{HTML: html}, "", "q")
	assert.Equal(t, "https://gym.example.org/join", c.Website)
}

func TestParseWebsiteRejectsNonHTTP(t *testing.T) {
	e, _ := newTestExtractor()
	html := `<h1>Archive</h1><a data-item-id="authority" href="ftp://files.example.com">Website</a>`

	c := e.Parse(PageSnapshot{HTML: html, URL: "https://www.google.com/maps"}, "", "q")
	assert.Empty(t, c.Website)
}

func TestParseEmailFromMailto(t *testing.T) {
	e, _ := newTestExtractor()
	html := `<h1>Studio</h1><a href="mailto:Hello@Studio.example?subject=Hi">Mail us</a>`

	c := e.Parse(PageSnapshot{HTML: html}, "", "q")
	assert.Equal(t, "hello@studio.example", c.Email)
}

func TestParseMalformedHTMLDoesNotPanic(t *testing.T) {
	e, _ := newTestExtractor()

	c := e.Parse(PageSnapshot{HTML: `<h1>Broken<a href="tel:`, URL: "::not a url"}, "", "q")
	require.NotNil(t, c)
	assert.Equal(t, "q", c.SourceQuery)
}

func TestExtractRevealsPhoneBeforeSnapshot(t *testing.T) {
	e, adapter := newTestExtractor()
	p := newFakePage(adapter)
	p.url = "https://www.google.com/maps/place/x"
	p.html = `<h1>Locksmith</h1><button data-item-id="phone">Show phone</button>`
	p.onFunc(adapter.RevealPhoneScript(), func() (any, error) {
		p.html = `<h1>Locksmith</h1><a href="tel:+15551234567">+1 555 123 4567</a>`
		return true, nil
	})

	c := e.Extract(context.Background(), p, "Locksmith", "locksmiths")
	require.NotNil(t, c)
	assert.Equal(t, "+15551234567", c.Phone)
	assert.Equal(t, "locksmiths", c.SourceQuery)
}

func TestExtractReturnsNilWhenCancelled(t *testing.T) {
	e, adapter := newTestExtractor()
	p := newFakePage(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, e.Extract(ctx, p, "x", "q"))
}

func TestExtractWaitsForDetailsPanel(t *testing.T) {
	e, adapter := newTestExtractor()
	p := newFakePage(adapter)
	p.html = `<h1>Bakery</h1><a href="tel:+15557654321">Call</a>`

	c := e.Extract(context.Background(), p, "Bakery", "bakeries")
	require.NotNil(t, c)
	assert.Equal(t, []string{adapter.DetailsPanelSelector}, p.waited)
}

func TestExtractProceedsWhenPanelWaitTimesOut(t *testing.T) {
	e, adapter := newTestExtractor()
	p := newFakePage(adapter)
	p.waitErr = context.DeadlineExceeded
	p.html = `<h1>Bakery</h1><a href="tel:+15557654321">Call</a>`

	c := e.Extract(context.Background(), p, "Bakery", "bakeries")
	require.NotNil(t, c)
	assert.Equal(t, "+15557654321", c.Phone)
}
