package goquery_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure WebpageExtractor implements harvest.Extractor at compile time.
var _ harvest.Extractor = (*goquery.WebpageExtractor)(nil)

func TestWebpageExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts title, metadata and content", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head>
<title>Go Concurrency Patterns</title>
<meta name="description" content="Patterns for structuring concurrent Go programs.">
<meta name="keywords" content="go,concurrency,channels">
</head>
<body>
<article>
<h1>Go Concurrency Patterns</h1>
<p>Goroutines and channels make concurrent programming pleasant. This article walks
through pipelines, fan-out and cancellation in enough depth to be useful.</p>
</article>
</body>
</html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/articles/concurrency", []byte(html))
		require.NoError(t, err)

		wp, ok := rec.(*harvest.WebpageRecord)
		require.True(t, ok)

		assert.Equal(t, harvest.RecordWebpage, wp.RecordType())
		assert.Equal(t, "https://example.com/articles/concurrency", wp.URL)
		assert.Equal(t, "Go Concurrency Patterns", wp.Title)
		assert.Equal(t, "Patterns for structuring concurrent Go programs.", wp.Description)
		assert.Equal(t, "go,concurrency,channels", wp.Keywords)
		assert.Equal(t, "example.com", wp.SourceDomain)
		assert.Contains(t, wp.Content, "Goroutines and channels")
		assert.Equal(t, len(wp.Content), wp.SizeBytes)
		assert.False(t, wp.Timestamp.IsZero())
	})

	t.Run("strips scripts, styles and page chrome", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>T</title><style>body { color: red; }</style></head>
<body>
<nav>Navigation menu that should vanish</nav>
<header>Site header</header>
<main><p>The part of the page worth keeping around for later.</p></main>
<aside>Sidebar junk</aside>
<footer>Copyright footer</footer>
<script>console.log("tracking");</script>
</body></html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		wp := rec.(*harvest.WebpageRecord)
		assert.Contains(t, wp.Content, "worth keeping around")
		assert.NotContains(t, wp.Content, "Navigation menu")
		assert.NotContains(t, wp.Content, "Site header")
		assert.NotContains(t, wp.Content, "Sidebar junk")
		assert.NotContains(t, wp.Content, "Copyright footer")
		assert.NotContains(t, wp.Content, "console.log")
		assert.NotContains(t, wp.Content, "color: red")
	})

	t.Run("prefers article over main over body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<main><p>Main text that the article should shadow completely here.</p></main>
<article><p>Article text wins when both containers are present on a page.</p></article>
</body></html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		wp := rec.(*harvest.WebpageRecord)
		assert.Contains(t, wp.Content, "Article text wins")
		assert.NotContains(t, wp.Content, "Main text")
	})

	t.Run("falls back to body when no article or main", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><div><p>Plain body content with no semantic containers at all.</p></div></body></html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		wp := rec.(*harvest.WebpageRecord)
		assert.Contains(t, wp.Content, "Plain body content")
	})

	t.Run("collapses whitespace and separates block elements", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article>
<p>First   paragraph
with    ragged spacing.</p>
<p>Second paragraph.</p>
</article></body></html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		wp := rec.(*harvest.WebpageRecord)
		assert.Equal(t, "First paragraph with ragged spacing. Second paragraph.", wp.Content)
	})

	t.Run("rejects content below the minimum length", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><p>tiny</p></body></html>`

		e := goquery.NewWebpageExtractor(100, nil)
		_, err := e.Extract("https://example.com/page", []byte(html))

		require.Error(t, err)
		assert.Equal(t, harvest.ETOOSHORT, harvest.ErrorCode(err))
		assert.True(t, harvest.IsRejection(err))
	})

	t.Run("uses No Title fallback for missing titles", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><p>Content long enough to pass the minimum quality bar easily.</p></body></html>`

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		assert.Equal(t, "No Title", rec.(*harvest.WebpageRecord).Title)
	})

	t.Run("detects language from a bounded sample", func(t *testing.T) {
		t.Parallel()

		var sampled string
		detector := &mock.LanguageDetector{
			DetectFn: func(text string) (string, bool) {
				sampled = text
				return "eng", true
			},
		}

		long := strings.Repeat("All work and no play makes for dull prose. ", 50)
		html := "<html><body><article><p>" + long + "</p></article></body></html>"

		e := goquery.NewWebpageExtractor(10, detector)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		assert.Equal(t, "eng", rec.(*harvest.WebpageRecord).Language)
		assert.LessOrEqual(t, len(sampled), 1000)
		assert.NotEmpty(t, sampled)
	})

	t.Run("leaves language unset when detection is not reliable", func(t *testing.T) {
		t.Parallel()

		detector := &mock.LanguageDetector{
			DetectFn: func(text string) (string, bool) { return "", false },
		}

		html := `<html><body><p>Enough ambiguous content for the extractor to accept it.</p></body></html>`

		e := goquery.NewWebpageExtractor(10, detector)
		rec, err := e.Extract("https://example.com/page", []byte(html))
		require.NoError(t, err)

		assert.Empty(t, rec.(*harvest.WebpageRecord).Language)
	})

	t.Run("decodes non-UTF8 pages", func(t *testing.T) {
		t.Parallel()

		// ISO-8859-1 body: "café" with é as byte 0xE9.
		html := []byte(`<html><head><meta charset="ISO-8859-1"><title>Caf` + "\xe9" + ` Guide</title></head>` +
			`<body><p>The caf` + "\xe9" + ` on the corner serves excellent espresso every day.</p></body></html>`)

		e := goquery.NewWebpageExtractor(10, nil)
		rec, err := e.Extract("https://example.com/cafe", html)
		require.NoError(t, err)

		wp := rec.(*harvest.WebpageRecord)
		assert.Equal(t, "Café Guide", wp.Title)
		assert.Contains(t, wp.Content, "café")
	})

	t.Run("returns invalid error for malformed page URL", func(t *testing.T) {
		t.Parallel()

		e := goquery.NewWebpageExtractor(10, nil)
		_, err := e.Extract("://bad", []byte("<html></html>"))

		require.Error(t, err)
		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}
