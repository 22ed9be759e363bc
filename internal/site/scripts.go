package site

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Listing click outcomes returned by ClickListingScript.
const (
	ClickOK       = "ok"
	ClickMissing  = "missing"
	ClickMismatch = "mismatch"
)

// The scripts below are evaluated in the page. Every value is embedded as a JSON
// literal so selectors and phrases never need escaping by hand.

// ClickConsentScript clicks the first clickable element whose text contains an accept
// phrase. With fallbackLast the last clickable element is clicked when none matches.
// Evaluates to a boolean.
func (a *Adapter) ClickConsentScript(fallbackLast bool) string {
	return fmt.Sprintf(`(() => {
  const accept = %s;
  const els = Array.from(document.querySelectorAll(%s));
  for (const el of els) {
    const txt = (el.innerText || '').toLowerCase().trim();
    if (!txt) continue;
    if (accept.some(p => txt.includes(p))) { el.click(); return true; }
  }
  if (%t && els.length > 0) { els[els.length - 1].click(); return true; }
  return false;
})()`, js(lowerAll(a.AcceptPhrases)), js(a.ClickableSelector), fallbackLast)
}

// FirstPresentScript evaluates to the index of the first selector that matches an
// element, or -1.
func FirstPresentScript(selectors []string) string {
	return fmt.Sprintf(`(() => {
  const sels = %s;
  for (let i = 0; i < sels.length; i++) {
    if (document.querySelector(sels[i])) return i;
  }
  return -1;
})()`, js(selectors))
}

// ScrollFeedScript scrolls the results feed to its bottom and evaluates to its
// scrollHeight, or -1 when the feed is not on the page.
func (a *Adapter) ScrollFeedScript() string {
	return fmt.Sprintf(`(() => {
  const feed = document.querySelector(%s);
  if (!feed) return -1;
  feed.scrollTop = feed.scrollHeight;
  return feed.scrollHeight;
})()`, js(a.ResultsFeedSelector))
}

// CountListingsScript evaluates to the number of listings currently loaded.
func (a *Adapter) CountListingsScript() string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, js(a.ListingSelector))
}

// ListingsScript evaluates to [{index, name}] for every loaded listing. Listings
// without an aria-label are named "Business N" (1-based).
func (a *Adapter) ListingsScript() string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map((el, i) => ({
  index: i,
  name: (el.getAttribute('aria-label') || '').trim() || ('Business ' + (i + 1))
}))`, js(a.ListingSelector))
}

// ClickListingScript re-queries the listings, checks that the element at index still
// carries name, and clicks it. Evaluates to ClickOK, ClickMissing or ClickMismatch.
func (a *Adapter) ClickListingScript(index int, name string) string {
	return fmt.Sprintf(`(() => {
  const els = document.querySelectorAll(%s);
  const idx = %d;
  const el = els[idx];
  if (!el) return %s;
  const current = (el.getAttribute('aria-label') || '').trim() || ('Business ' + (idx + 1));
  if (current !== %s) return %s;
  el.scrollIntoView({block: 'center'});
  el.click();
  return %s;
})()`, js(a.ListingSelector), index, js(ClickMissing), js(name), js(ClickMismatch), js(ClickOK))
}

// RevealPhoneScript clicks the click-to-reveal phone button if there is one.
// Evaluates to a boolean.
func (a *Adapter) RevealPhoneScript() string {
	return fmt.Sprintf(`(() => {
  const keys = %s;
  const hit = s => { s = (s || '').toLowerCase(); return keys.some(k => s.includes(k)); };
  const btn = Array.from(document.querySelectorAll(%s)).find(b =>
    hit(b.getAttribute('data-item-id')) || hit(b.getAttribute('aria-label')) || hit(b.innerText));
  if (!btn) return false;
  btn.click();
  return true;
})()`, js(lowerAll(a.PhoneKeywords)), js(a.PhoneButtonSelector))
}

func js(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// Only strings and string slices are passed in, which always encode.
	_ = enc.Encode(v)
	return strings.TrimSuffix(b.String(), "\n")
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
