// Package enricher implements the email-format candidate generator and
// the early-stopping verification loop.
package enricher

import (
	"regexp"
	"strings"
)

var (
	schemeRe  = regexp.MustCompile(`(?i)^https?://`)
	wwwRe     = regexp.MustCompile(`(?i)^www\.`)
	nonLetter = regexp.MustCompile(`[^a-z]`)
)

// CleanDomain canonicalizes a raw company reference: scheme and leading
// www. stripped, path truncated, lowercased. Returns "" for blank input,
// which callers must treat as "no domain".
func CleanDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	domain := schemeRe.ReplaceAllString(raw, "")
	domain = wwwRe.ReplaceAllString(domain, "")

	if idx := strings.Index(domain, "/"); idx >= 0 {
		domain = domain[:idx]
	}

	return strings.ToLower(strings.TrimSpace(domain))
}

// Name holds the decomposed tokens of a personal name. All tokens are
// lowercase and letter-only; Middle may be empty.
type Name struct {
	First  string
	Middle string
	Last   string
}

// ParseName decomposes a raw full name into (first, middle, last).
// A single token becomes both first and last. Interior tokens of a
// multi-word name are joined into the middle token. Returns ok=false
// when nothing usable remains after stripping non-letters.
func ParseName(fullName string) (Name, bool) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return Name{}, false
	}

	var n Name

	n.First = letterFold(parts[0])

	switch {
	case len(parts) == 2:
		n.Last = letterFold(parts[1])
	case len(parts) >= 3:
		n.Middle = letterFold(strings.Join(parts[1:len(parts)-1], " "))
		n.Last = letterFold(parts[len(parts)-1])
	}

	if len(parts) == 1 && n.First != "" {
		n.Last = n.First
	}

	if n.First == "" && n.Last == "" {
		return Name{}, false
	}

	return n, true
}

func letterFold(s string) string {
	return nonLetter.ReplaceAllString(strings.ToLower(s), "")
}
