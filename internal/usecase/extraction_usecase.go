package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/internal/repository"
	"github.com/user/contact-scraper/internal/site"
	"github.com/user/contact-scraper/pkg/utils"
)

var (
	ariaPhonePattern  = regexp.MustCompile(`[\+\d][\d\s\-\(\)]+\d`)
	textPhonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?\d{1,4}[\s\-]?\(?\d{1,4}\)?[\s\-]?\d{1,4}[\s\-]?\d{1,9}`),
		regexp.MustCompile(`\(\d{3}\)[\s\-]?\d{3}[\s\-]?\d{4}`),
	}
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

const detailsPanelWait = 10 * time.Second

// PageSnapshot is the state of a detail panel at extraction time.
type PageSnapshot struct {
	HTML string
	Text string
	URL  string
}

// ContactExtractor reads contact details from an open listing.
type ContactExtractor struct {
	site  *site.Adapter
	pacer *utils.Pacer
	now   func() time.Time
}

func NewContactExtractor(adapter *site.Adapter, pacer *utils.Pacer) *ContactExtractor {
	return &ContactExtractor{site: adapter, pacer: pacer, now: time.Now}
}

// Extract reveals the phone number if it is hidden behind a button, snapshots the page
// and parses it. Field failures leave the field empty. Nil is returned only when ctx is done.
func (e *ContactExtractor) Extract(ctx context.Context, page repository.Page, knownName, sourceQuery string) *entity.Contact {
	if err := e.pacer.SleepBetween(ctx, 500*time.Millisecond, time.Second); err != nil {
		return nil
	}
	if err := page.WaitVisible(ctx, e.site.DetailsPanelSelector, detailsPanelWait); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Details panel did not render, extracting anyway", "listing", knownName, "error", err)
	}

	var revealed bool
	if err := page.Evaluate(ctx, e.site.RevealPhoneScript(), &revealed); err != nil {
		slog.Debug("Phone reveal failed", "error", err)
	}
	if revealed {
		if err := e.pacer.Sleep(ctx, 500*time.Millisecond); err != nil {
			return nil
		}
	}

	var snap PageSnapshot
	var err error
	if snap.HTML, err = page.HTML(ctx); err != nil {
		slog.Warn("Failed to read details panel", "error", err)
	}
	if snap.Text, err = page.Text(ctx); err != nil {
		slog.Warn("Failed to read details text", "error", err)
	}
	if snap.URL, err = page.URL(ctx); err != nil {
		slog.Debug("Failed to read page URL", "error", err)
	}
	if ctx.Err() != nil {
		return nil
	}

	c := e.Parse(snap, knownName, sourceQuery)
	if c.HasContactData() {
		var fields []string
		if c.Phone != "" {
			fields = append(fields, "phone")
		}
		if c.Website != "" {
			fields = append(fields, "website")
		}
		if c.Email != "" {
			fields = append(fields, "email")
		}
		slog.Info("Extracted contact", "business", c.BusinessName, "fields", strings.Join(fields, ","))
	} else {
		slog.Warn("No contact data found", "business", c.BusinessName)
	}
	return c
}

// Parse builds a validated contact from a snapshot.
func (e *ContactExtractor) Parse(snap PageSnapshot, knownName, sourceQuery string) *entity.Contact {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	text := snap.Text
	if text == "" {
		text = doc.Find("body").Text()
	}
	base, _ := url.Parse(snap.URL)

	return &entity.Contact{
		BusinessName: businessName(doc, knownName),
		Phone:        firstValid(phoneCandidates(doc, text), utils.ValidatePhone),
		Website:      firstValid(websiteCandidates(doc, base, e.site), utils.ValidateURL),
		Email:        firstValid(emailCandidates(doc, text), utils.ValidateEmail),
		SourceQuery:  sourceQuery,
		ExtractedAt:  e.now().UTC(),
	}
}

func businessName(doc *goquery.Document, knownName string) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if label, ok := doc.Find(`[role="main"]`).First().Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	if knownName = strings.TrimSpace(knownName); knownName != "" {
		return knownName
	}
	return entity.UnknownBusiness
}

func phoneCandidates(doc *goquery.Document, text string) []string {
	var out []string
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		raw := strings.TrimPrefix(href, "tel:")
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
		out = append(out, raw)
	})
	doc.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		label, _ := s.Attr("aria-label")
		if m := ariaPhonePattern.FindString(label); m != "" {
			out = append(out, m)
		}
	})
	for _, re := range textPhonePatterns {
		out = append(out, re.FindAllString(text, -1)...)
	}
	return out
}

func websiteCandidates(doc *goquery.Document, base *url.URL, adapter *site.Adapter) []string {
	var out []string
	resolve := func(href string) string {
		if base == nil {
			return href
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return href
		}
		return abs
	}

	doc.Find(adapter.WebsiteSelector).Each(func(_ int, s *goquery.Selection) {
		itemID, _ := s.Attr("data-item-id")
		label, _ := s.Attr("aria-label")
		if !site.ContainsAny(itemID, adapter.WebsiteItemIDs) &&
			!site.ContainsAny(label, adapter.WebsiteKeywords) &&
			!site.ContainsAny(s.Text(), adapter.WebsiteKeywords) {
			return
		}
		if href, ok := s.Attr("href"); ok && href != "" {
			out = append(out, resolve(href))
		}
	})

	doc.Find(`a[href^="http"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !utils.HostMatches(href, adapter.FirstPartyDomains) {
			out = append(out, href)
		}
	})
	return out
}

func emailCandidates(doc *goquery.Document, text string) []string {
	out := emailPattern.FindAllString(text, -1)
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if unescaped, err := url.PathUnescape(addr); err == nil {
			addr = unescaped
		}
		out = append(out, addr)
	})
	return out
}

func firstValid(candidates []string, validate func(string) string) string {
	for _, c := range candidates {
		if v := validate(c); v != "" {
			return v
		}
	}
	return ""
}
