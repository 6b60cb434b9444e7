package reincarnation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/constants"
)

var (
	qiNumber    = regexp.MustCompile(`[\d.]+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)

// ParseQi extracts the first number from an OCR qi line. A "k" anywhere in
// the text scales the value by 1000. ok is false when nothing parsable was found.
func ParseQi(text string) (value float64, ok bool) {
	num := qiNumber.FindString(text)
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(strings.ToLower(text), "k") {
		v *= 1000
	}
	return v, true
}

// NormalizeBloodline drops any "Label:" prefix and returns the display name
// plus its lookup key (punctuation stripped, lowercased).
func NormalizeBloodline(text string) (display, key string) {
	display = strings.TrimSpace(text)
	if i := strings.LastIndex(display, ":"); i >= 0 {
		display = strings.TrimSpace(display[i+1:])
	}
	key = strings.ToLower(strings.TrimSpace(punctuation.ReplaceAllString(display, "")))
	return display, key
}

// Reading is one parsed stats page
type Reading struct {
	QiRaw        string
	Qi           float64
	QiParsed     bool
	BloodlineRaw string
	Bloodline    string // display name
	Key          string // ranking lookup key
}

// NewReading parses the two OCR lines of the stats page
func NewReading(qiText, bloodlineText string) Reading {
	r := Reading{QiRaw: qiText, BloodlineRaw: bloodlineText}
	r.Qi, r.QiParsed = ParseQi(qiText)
	r.Bloodline, r.Key = NormalizeBloodline(bloodlineText)
	return r
}

// Unreadable reports whether the bloodline line carries no usable name
func (r Reading) Unreadable() bool {
	switch r.BloodlineRaw {
	case constants.OCRUnknown, constants.OCRError:
		return true
	}
	return r.Key == ""
}

// Ranking is the ordered bloodline reference list. Index 0 is the best.
type Ranking struct {
	names []string
	index map[string]int
}

// NewRanking builds a ranking from the configured list. Duplicate names keep
// their first (best) position.
func NewRanking(list []config.Bloodline) Ranking {
	r := Ranking{
		names: make([]string, 0, len(list)),
		index: make(map[string]int, len(list)),
	}
	for i, b := range list {
		r.names = append(r.names, b.Name)
		_, key := NormalizeBloodline(b.Name)
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
	}
	return r
}

// Len returns the number of ranked bloodlines
func (r Ranking) Len() int {
	return len(r.names)
}

// Index returns the rank of a lookup key, or -1 when unlisted
func (r Ranking) Index(key string) int {
	if i, ok := r.index[key]; ok {
		return i
	}
	return -1
}

// Name returns the configured name at rank i
func (r Ranking) Name(i int) string {
	if i < 0 || i >= len(r.names) {
		return ""
	}
	return r.names[i]
}
