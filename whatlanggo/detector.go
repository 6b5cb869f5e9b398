// Package whatlanggo implements language detection with the whatlanggo
// trigram classifier.
package whatlanggo

import (
	"strings"

	"github.com/RadhiFadlillah/whatlanggo"
	"github.com/fwojciec/harvest"
)

// Ensure Detector implements harvest.LanguageDetector at compile time.
var _ harvest.LanguageDetector = (*Detector)(nil)

// Detector identifies the natural language of text samples. Results are
// ISO 639-3 codes ("eng", "jpn"). Unreliable classifications report
// ok=false rather than guessing.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect implements harvest.LanguageDetector.
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}

	lang := whatlanggo.LangToString(info.Lang)
	if lang == "" {
		return "", false
	}
	return lang, true
}
