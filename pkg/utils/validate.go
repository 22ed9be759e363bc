package utils

import (
	"net/url"
	"regexp"
	"strings"
)

const minPhoneDigits = 7

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidatePhone strips everything except digits and a single leading '+'.
// Numbers with fewer than seven digits are rejected with "".
func ValidatePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if digits < minPhoneDigits {
		return ""
	}
	return b.String()
}

// ValidateEmail returns the lower-cased address, or "" if it does not look like one.
func ValidateEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return ""
	}
	return email
}

// ValidateURL returns a normalized absolute http(s) URL or "".
// Redirect wrappers of the form https://www.google.com/url?q=<target> are unwrapped first.
func ValidateURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if target := unwrapRedirect(u); target != nil {
		u = target
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}

func unwrapRedirect(u *url.URL) *url.URL {
	if !strings.Contains(strings.ToLower(u.Hostname()), "google.") || u.Path != "/url" {
		return nil
	}
	q := u.Query()
	target := q.Get("q")
	if target == "" {
		target = q.Get("url")
	}
	if target == "" {
		return nil
	}
	inner, err := url.Parse(target)
	if err != nil {
		return nil
	}
	return inner
}
