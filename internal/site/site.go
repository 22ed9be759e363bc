// Package site describes the DOM structure and wording of the scraped directory.
// Everything that depends on the target's markup lives here so the use cases stay
// independent of it.
package site

import (
	"net/url"
	"strings"
)

// Adapter holds selectors and phrase dictionaries for one directory site.
// Phrases are matched case-insensitively as substrings of the page text.
type Adapter struct {
	TargetURL string

	ConsentHosts      []string
	ConsentPhrases    []string
	AcceptPhrases     []string
	ClickableSelector string

	SearchInputSelectors []string
	ResultsFeedSelector  string
	ListingSelector      string

	NoResultsPhrases []string
	EndOfListPhrases []string
	BlockPhrases     []string

	PhoneButtonSelector string
	PhoneKeywords       []string

	DetailsPanelSelector string
	WebsiteSelector      string
	WebsiteItemIDs       []string
	WebsiteKeywords      []string
	FirstPartyDomains    []string
}

// GoogleMaps returns the adapter for Google Maps with English, Persian and German wording.
func GoogleMaps(targetURL string) *Adapter {
	if targetURL == "" {
		targetURL = "https://www.google.com/maps"
	}
	return &Adapter{
		TargetURL: targetURL,

		ConsentHosts: []string{"consent.google.com"},
		ConsentPhrases: []string{
			"before you continue to google maps",
			"قبل از ادامه",
			"consent",
			"accept all",
		},
		AcceptPhrases: []string{
			"accept all", "i agree", "accept", "got it", "accept & continue",
			"موافقم", "پذیرفتن", "قبول می‌کنم",
			"alle akzeptieren", "zustimmen", "ich stimme zu", "akzeptieren",
		},
		ClickableSelector: `button, div[role="button"], span[role="button"]`,

		SearchInputSelectors: []string{
			`input#searchboxinput`,
			`input[aria-label*="Search Google Maps"]`,
			`input[aria-label*="جستجو در Google Maps"]`,
			`input[aria-label*="Search in Google Maps"]`,
		},
		ResultsFeedSelector: `div[role="feed"]`,
		ListingSelector:     `div[role="feed"] > div > div > a`,

		NoResultsPhrases: []string{"no results", "نتیجه‌ای یافت نشد", "couldn't find"},
		EndOfListPhrases: []string{
			"you've reached the end of the list",
			"reached the end",
			"no more results",
			"به انتهای لیست رسیدید",
			"نتیجه بیشتری وجود ندارد",
		},
		BlockPhrases: []string{
			"unusual traffic",
			"captcha",
			"verify you're not a robot",
			"suspicious activity",
		},

		PhoneButtonSelector: `button[data-item-id]`,
		PhoneKeywords:       []string{"phone", "تلفن", "telefon"},

		DetailsPanelSelector: `h1, [role="main"]`,
		WebsiteSelector:      `a[data-item-id], button[data-item-id]`,
		WebsiteItemIDs:       []string{"authority"},
		WebsiteKeywords:      []string{"website", "وب‌سایت", "webseite"},
		FirstPartyDomains:    []string{"google.com", "gstatic.com", "youtube.com", "googleusercontent.com", "ggpht.com"},
	}
}

// IsConsentURL reports whether rawURL points at a consent interstitial.
func (a *Adapter) IsConsentURL(rawURL string) bool {
	return ContainsAny(rawURL, a.ConsentHosts)
}

func (a *Adapter) HasConsentText(text string) bool {
	return ContainsAny(text, a.ConsentPhrases)
}

func (a *Adapter) HasNoResults(text string) bool {
	return ContainsAny(text, a.NoResultsPhrases)
}

func (a *Adapter) HasEndOfList(text string) bool {
	return ContainsAny(text, a.EndOfListPhrases)
}

// BlockReason returns the first bot-detection phrase found in text, or "".
func (a *Adapter) BlockReason(text string) string {
	lower := strings.ToLower(text)
	for _, p := range a.BlockPhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

// OnTarget reports whether rawURL shares the target's host.
func (a *Adapter) OnTarget(rawURL string) bool {
	host := hostOf(a.TargetURL)
	return host != "" && strings.Contains(strings.ToLower(rawURL), host)
}

// ContainsAny reports whether text contains any of phrases, ignoring case.
func ContainsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
