// Package linkedin resolves a verified email to a likely LinkedIn
// profile URL using direct URL probes and a web-search fallback.
package linkedin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var profileURLRe = regexp.MustCompile(`https://[a-zA-Z0-9.-]*linkedin\.com/in/[a-zA-Z0-9\-]+`)

// Result is the outcome of one profile lookup.
type Result struct {
	Email      string `json:"email"`
	ProfileURL string `json:"profile_url,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source,omitempty"` // direct_probe or web_search
	Status     string `json:"status"`
}

// Finder probes candidate profile URLs and falls back to a DuckDuckGo
// HTML search. Both bases are swappable for tests.
type Finder struct {
	httpClient  *http.Client
	profileBase string
	searchBase  string
	userAgent   string
}

// Option configures a Finder.
type Option func(*Finder)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Finder) { f.httpClient = c }
}

// WithProfileBase overrides the base used for direct profile probes.
func WithProfileBase(base string) Option {
	return func(f *Finder) { f.profileBase = strings.TrimSuffix(base, "/") }
}

// WithSearchBase overrides the search endpoint.
func WithSearchBase(base string) Option {
	return func(f *Finder) { f.searchBase = strings.TrimSuffix(base, "/") }
}

// NewFinder creates a Finder with sane defaults.
func NewFinder(opts ...Option) *Finder {
	f := &Finder{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		profileBase: "https://www.linkedin.com",
		searchBase:  "https://duckduckgo.com",
		userAgent:   defaultUserAgent,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Find looks up the LinkedIn profile for an email. Direct probes run
// first because they are cheap; the search fallback issues exactly one
// query. Lookup failures degrade to not_found, never to an error.
func (f *Finder) Find(ctx context.Context, email string) *Result {
	result := &Result{Email: email, Status: StatusNotFound}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return result
	}

	username := email[:at]
	company := strings.SplitN(email[at+1:], ".", 2)[0]

	for _, slug := range probeSlugs(username, company) {
		probeURL := f.profileBase + "/in/" + slug

		if f.probe(ctx, probeURL) {
			result.ProfileURL = probeURL
			result.Title = fmt.Sprintf("LinkedIn Profile (%s)", username)
			result.Source = "direct_probe"
			result.Status = StatusFound

			return result
		}
	}

	if profileURL, title := f.search(ctx, email); profileURL != "" {
		result.ProfileURL = profileURL
		result.Title = title
		result.Source = "web_search"
		result.Status = StatusFound
	}

	return result
}

// probeSlugs lists candidate profile slugs derived from the local-part,
// deduplicated in order.
func probeSlugs(username, company string) []string {
	raw := []string{
		username,
		strings.ReplaceAll(username, ".", ""),
		strings.ReplaceAll(username, ".", "-"),
		username + company,
	}

	seen := make(map[string]struct{}, len(raw))

	var slugs []string

	for _, s := range raw {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		slugs = append(slugs, s)
	}

	return slugs
}

func (f *Finder) probe(ctx context.Context, probeURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// search runs one DuckDuckGo HTML query and scrapes profile links out
// of the result page, unwrapping the redirect URLs DuckDuckGo uses.
func (f *Finder) search(ctx context.Context, email string) (profileURL, title string) {
	q := url.Values{}
	q.Set("q", email+" site:linkedin.com")

	searchURL := f.searchBase + "/html/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", ""
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Printf("[linkedin] search request failed: %v", err)
		return "", ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[linkedin] search returned status %d", resp.StatusCode)
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Printf("[linkedin] failed to parse search results: %v", err)
		return "", ""
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = unwrapRedirect(href)

		if strings.Contains(href, "linkedin.com/in/") {
			profileURL = href
			title = strings.TrimSpace(s.Text())

			return false
		}

		return true
	})

	if profileURL == "" {
		// Last resort: scan the raw text for a profile URL.
		if match := profileURLRe.FindString(doc.Text()); match != "" {
			profileURL = match
			title = "LinkedIn Profile"
		}
	}

	return profileURL, title
}

// unwrapRedirect extracts the target from DuckDuckGo's /l/?uddg=...
// redirect links. Non-redirect hrefs pass through unchanged.
func unwrapRedirect(href string) string {
	if !strings.HasPrefix(href, "/l/?") && !strings.Contains(href, "duckduckgo.com/l/?") {
		return href
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := u.Query().Get("uddg"); target != "" {
		return target
	}

	return href
}
