package goquery

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
)

// Ensure LinkExtractor implements harvest.LinkExtractor at compile time.
var _ harvest.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor discovers followable links in webpage HTML. It scans both
// anchor and link elements, resolves relative references against the page
// URL and strips fragments, so the same page reached through different
// anchors dedups to one frontier entry.
type LinkExtractor struct {
	// AllowedDomains restricts followed links by host suffix; empty
	// allows every host.
	AllowedDomains []string
}

// NewLinkExtractor creates a LinkExtractor scoped to the given domains.
func NewLinkExtractor(allowedDomains []string) *LinkExtractor {
	return &LinkExtractor{AllowedDomains: allowedDomains}
}

// ExtractLinks implements harvest.LinkExtractor. Returned URLs are
// absolute, fragment-free, http(s)-only and deduplicated in first-seen
// order.
func (e *LinkExtractor) ExtractLinks(body []byte, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid base URL %q: %v", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "parse HTML: %v", err)
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href], link[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !harvest.AllowedHost(resolved.Hostname(), e.AllowedDomains) {
			return
		}

		link := resolved.String()
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

// resolveURL resolves a relative href against the page URL. Fragments are
// stripped; query strings survive. Returns nil for unparseable hrefs and
// for self-referential links (anchors pointing back at the page).
func resolveURL(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""

	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	if resolved.String() == baseNoFragment.String() {
		return nil
	}
	return resolved
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
