package harvest

import "context"

// SitemapService discovers crawlable URLs from a site's sitemaps, via
// robots.txt directives or the conventional /sitemap.xml location.
type SitemapService interface {
	// DiscoverURLs returns the page URLs listed in the site's sitemaps.
	// When baseURL has a non-root path, only URLs under that path are
	// returned. An empty slice means the site exposes no sitemap.
	DiscoverURLs(ctx context.Context, baseURL string) ([]string, error)
}
