package forage

import (
	"image"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// RecentClick is a cooldown record for a region-relative point
type RecentClick struct {
	Point image.Point
	At    time.Time
}

// RecentClicks keeps the points clicked within the cooldown window
type RecentClicks struct {
	window time.Duration
	clicks []RecentClick
}

// NewRecentClicks creates an empty cooldown list
func NewRecentClicks(window time.Duration) *RecentClicks {
	return &RecentClicks{window: window}
}

// Add records a click
func (r *RecentClicks) Add(p image.Point, at time.Time) {
	r.clicks = append(r.clicks, RecentClick{Point: p, At: at})
}

// Expire drops records older than the window
func (r *RecentClicks) Expire(now time.Time) {
	kept := r.clicks[:0]
	for _, c := range r.clicks {
		if now.Sub(c.At) < r.window {
			kept = append(kept, c)
		}
	}
	r.clicks = kept
}

// Near reports whether p is within radius of an active record
func (r *RecentClicks) Near(p image.Point, radius float64) bool {
	for _, c := range r.clicks {
		if detect.Distance(p, c.Point) < radius {
			return true
		}
	}
	return false
}

// Len returns the number of active records
func (r *RecentClicks) Len() int {
	return len(r.clicks)
}

// Reset clears all records
func (r *RecentClicks) Reset() {
	r.clicks = nil
}
