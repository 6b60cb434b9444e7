package forage

import (
	"fmt"
	"image"
	"strconv"

	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// Learning is the per-area false-positive memory: strike counters and the
// blacklist they promote into. Owned by the forage loop goroutine only.
type Learning struct {
	strikes   map[string]map[string]int // area -> "x,y" -> strikes
	blacklist map[string][]image.Point  // area -> blacklisted relative points
}

// NewLearning restores learning state from its persisted form
func NewLearning(strikes map[string]map[string]int, blacklist map[string][][]int) *Learning {
	l := &Learning{
		strikes:   make(map[string]map[string]int),
		blacklist: make(map[string][]image.Point),
	}
	for area, counts := range strikes {
		m := make(map[string]int, len(counts))
		for k, v := range counts {
			m[k] = v
		}
		l.strikes[area] = m
	}
	for area, pts := range blacklist {
		for _, p := range pts {
			if len(p) != 2 {
				continue
			}
			l.blacklist[area] = append(l.blacklist[area], image.Pt(p[0], p[1]))
		}
	}
	return l
}

// AreaKey is the map key used for an area
func AreaKey(area int) string {
	return strconv.Itoa(area)
}

// CoordKey is the strike counter key for a relative point
func CoordKey(p image.Point) string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// AreaBlacklist returns the blacklisted points of an area
func (l *Learning) AreaBlacklist(area int) []image.Point {
	return l.blacklist[AreaKey(area)]
}

// IsBlacklisted reports whether p lies strictly within radius of any blacklisted point
func IsBlacklisted(p image.Point, areaBlacklist []image.Point, radius float64) bool {
	for _, b := range areaBlacklist {
		if detect.Distance(p, b) < radius {
			return true
		}
	}
	return false
}

// Strikes returns the strike count of a point in an area
func (l *Learning) Strikes(area int, p image.Point) int {
	return l.strikes[AreaKey(area)][CoordKey(p)]
}

// RecordRescanHit adds a strike to p in area. When the count reaches limit the
// point is blacklisted (once) and promoted is true.
func (l *Learning) RecordRescanHit(area int, p image.Point, limit int) (count int, promoted bool) {
	key := AreaKey(area)
	counts, ok := l.strikes[key]
	if !ok {
		counts = make(map[string]int)
		l.strikes[key] = counts
	}
	coord := CoordKey(p)
	counts[coord]++
	count = counts[coord]

	if count < limit {
		return count, false
	}
	for _, b := range l.blacklist[key] {
		if b == p {
			return count, false
		}
	}
	l.blacklist[key] = append(l.blacklist[key], p)
	return count, true
}

// Snapshot returns deep copies in the persisted form
func (l *Learning) Snapshot() (map[string]map[string]int, map[string][][]int) {
	strikes := make(map[string]map[string]int, len(l.strikes))
	for area, counts := range l.strikes {
		m := make(map[string]int, len(counts))
		for k, v := range counts {
			m[k] = v
		}
		strikes[area] = m
	}
	blacklist := make(map[string][][]int, len(l.blacklist))
	for area, pts := range l.blacklist {
		list := make([][]int, 0, len(pts))
		for _, p := range pts {
			list = append(list, []int{p.X, p.Y})
		}
		blacklist[area] = list
	}
	return strikes, blacklist
}

// Stats returns the number of tracked coordinates and blacklisted points
func (l *Learning) Stats() (tracked, blacklisted int) {
	for _, counts := range l.strikes {
		tracked += len(counts)
	}
	for _, pts := range l.blacklist {
		blacklisted += len(pts)
	}
	return tracked, blacklisted
}

// Clear forgets everything
func (l *Learning) Clear() {
	l.strikes = make(map[string]map[string]int)
	l.blacklist = make(map[string][]image.Point)
}
