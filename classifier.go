package harvest

import (
	"net/url"
	"strings"
)

// ContentKind is the output of URL classification.
type ContentKind int

// Classification outcomes.
const (
	KindWebpage ContentKind = iota
	KindCode
)

// String returns a readable name for logging.
func (k ContentKind) String() string {
	if k == KindCode {
		return "code"
	}
	return "webpage"
}

// Classifier decides whether a URL points at a code artifact or a webpage,
// purely from the URL path suffix. It has no side effects and no failure
// mode: anything that is not a recognized code extension is a webpage.
type Classifier struct {
	exts []string
}

// NewClassifier creates a Classifier for the given extension set.
// Extensions are matched case-insensitively and may be given with or
// without the leading dot.
func NewClassifier(extensions []string) *Classifier {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &Classifier{exts: exts}
}

// Classify returns the content kind for rawURL.
// An unparseable URL classifies as a webpage.
func (c *Classifier) Classify(rawURL string) ContentKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KindWebpage
	}
	path := strings.ToLower(u.Path)
	for _, ext := range c.exts {
		if strings.HasSuffix(path, ext) {
			return KindCode
		}
	}
	return KindWebpage
}
