// Package stattext cleans raw OCR output for the stat readers.
package stattext

import (
	"regexp"
	"strings"

	"github.com/ConserveLee/immortals-bot/internal/constants"
)

var whitespace = regexp.MustCompile(`\s+`)

// Clean collapses all whitespace runs into single spaces and trims
func Clean(raw string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
}

// Stat is the value a stat read reports: the cleaned text, or UNKNOWN when
// nothing but whitespace was recognised.
func Stat(raw string) string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return constants.OCRUnknown
	}
	return cleaned
}
