// Package goquery implements HTML content extraction with CSS selectors.
package goquery

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// languageSampleSize bounds the text handed to language detection.
const languageSampleSize = 1000

// noiseSelector matches the elements stripped before text collection.
const noiseSelector = "script, style, nav, footer, header, aside, iframe"

var whitespaceRE = regexp.MustCompile(`\s+`)

// Ensure WebpageExtractor implements harvest.Extractor at compile time.
var _ harvest.Extractor = (*WebpageExtractor)(nil)

// WebpageExtractor turns fetched HTML into WebpageRecords. It strips
// non-content chrome (scripts, navigation, footers), then collects text
// from the densest content container available: article first, then main,
// then the whole body.
type WebpageExtractor struct {
	// MinTextLength rejects pages whose cleaned text is shorter
	// (ETOOSHORT). Zero disables the check.
	MinTextLength int

	// Detector is optional; when nil the language field stays unset.
	Detector harvest.LanguageDetector
}

// NewWebpageExtractor creates a WebpageExtractor.
func NewWebpageExtractor(minTextLength int, detector harvest.LanguageDetector) *WebpageExtractor {
	return &WebpageExtractor{
		MinTextLength: minTextLength,
		Detector:      detector,
	}
}

// Extract implements harvest.Extractor for webpage URLs.
func (e *WebpageExtractor) Extract(pageURL string, body []byte) (harvest.Record, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid page URL %q: %v", pageURL, err)
	}

	// Decode to UTF-8 first; pages declare their encoding in meta tags
	// or a BOM, and goquery expects UTF-8 input.
	decoded, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "charset detection for %s: %v", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "parse HTML for %s: %v", pageURL, err)
	}

	title := collapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = "No Title"
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	keywords, _ := doc.Find(`meta[name="keywords"]`).Attr("content")

	doc.Find(noiseSelector).Remove()

	content := extractText(doc)
	if len(content) < e.MinTextLength {
		return nil, harvest.Errorf(harvest.ETOOSHORT, "content %d bytes below minimum %d for %s", len(content), e.MinTextLength, pageURL)
	}

	var lang string
	if e.Detector != nil {
		sample := content
		if len(sample) > languageSampleSize {
			sample = sample[:languageSampleSize]
		}
		if detected, ok := e.Detector.Detect(sample); ok {
			lang = detected
		}
	}

	return &harvest.WebpageRecord{
		Type:         harvest.RecordWebpage,
		URL:          pageURL,
		Timestamp:    time.Now().UTC(),
		Title:        title,
		Description:  collapseWhitespace(description),
		Keywords:     keywords,
		Content:      content,
		Language:     lang,
		SizeBytes:    len(content),
		SourceDomain: u.Host,
	}, nil
}

// extractText collects text from the first matching content container.
func extractText(doc *goquery.Document) string {
	for _, selector := range []string{"article", "main", "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := collapseWhitespace(textWithSpaces(sel)); text != "" {
			return text
		}
	}
	return ""
}

// textWithSpaces concatenates the selection's text nodes with a space
// between each, so text in adjacent block elements does not run together
// the way Selection.Text() lets it.
func textWithSpaces(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range sel.Nodes {
		appendTextNodes(&sb, node)
	}
	return sb.String()
}

func appendTextNodes(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendTextNodes(sb, c)
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
