// Package normalize canonicalizes the identifying strings used as correlation
// keys: meeting URLs, profile URLs, and emails. Two webhook sources rarely
// agree on the exact spelling of the same identifier, so every key is
// normalized before insert and before lookup.
package normalize

import (
	"net/url"
	"strings"
)

// URL canonicalizes a URL-shaped identifier: lower-case, query string and
// fragment stripped, trailing slashes trimmed. Profile-style URLs containing
// an /in/<handle> segment reduce to the canonical
// "https://www.<domain>/in/<handle>" form, discarding all other structure.
//
// The profile reduction is applied to every URL, not only profile lookups.
// Meeting URLs never carry an /in/ segment in practice, and because stores
// and candidates normalize through this same function, both sides of an
// equality comparison always see the same canonical form either way.
//
// Unparsable input is returned trimmed but otherwise unchanged; empty input
// returns "". The function is idempotent: URL(URL(s)) == URL(s).
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	candidate := strings.ToLower(trimmed)
	if !strings.Contains(candidate, "://") {
		// Providers frequently send bare "linkedin.com/in/x" without a scheme.
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return trimmed
	}

	if handle, ok := profileHandle(u.Path); ok {
		domain := strings.TrimPrefix(u.Host, "www.")
		return "https://www." + domain + "/in/" + handle
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// Email canonicalizes an email address for case-insensitive comparison.
// Empty input returns "".
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// profileHandle extracts the handle from an /in/<handle> path segment pair.
func profileHandle(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "in" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}
