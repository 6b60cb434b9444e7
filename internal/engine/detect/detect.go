package detect

import (
	"image"
	"math"
	"sort"
)

// Region is a capture rectangle in absolute screen coordinates
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RegionFromSlice converts a [x, y, width, height] settings value.
func RegionFromSlice(v []int) (Region, bool) {
	if len(v) != 4 || v[2] <= 0 || v[3] <= 0 {
		return Region{}, false
	}
	return Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

// Rect returns the region as an absolute image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Origin returns the top-left corner
func (r Region) Origin() image.Point {
	return image.Point{X: r.X, Y: r.Y}
}

// Empty reports whether the region has no area
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Detection is a raw template match in haystack coordinates.
// Box is stored as an image.Rectangle, but area and IoU treat Max as an
// inclusive pixel edge, so boxes sharing an edge still overlap.
type Detection struct {
	Box   image.Rectangle
	Score float64
}

// Candidate is a detection accepted by NMS and mapped back to the screen
type Candidate struct {
	Position image.Point     // Absolute screen position of the box centre
	Relative image.Point     // Box centre relative to the scan region
	Box      image.Rectangle // Box relative to the scan region
	Score    float64
}

// Params tunes the detector
type Params struct {
	Threshold    float64 // Minimum normalised correlation for a detection
	NMSThreshold float64 // IoU above which a lower-scoring box is dropped
	GrayMin      float64
	GrayMax      float64
	ScaleMin     float64
	ScaleMax     float64
	ScaleSteps   int
}

// Scales returns steps linearly spaced values from min to max inclusive.
func Scales(min, max float64, steps int) []float64 {
	if steps <= 0 {
		return nil
	}
	if steps == 1 {
		return []float64{min}
	}
	out := make([]float64, steps)
	step := (max - min) / float64(steps-1)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	out[steps-1] = max
	return out
}

// TemplateSize is the pixel size of one scale step of a template
type TemplateSize struct {
	Scale  float64
	Width  int
	Height int
}

// TemplateSizes scales a width x height template over Scales(min, max, steps),
// truncating to whole pixels. Steps with a side under minSide are skipped.
func TemplateSizes(width, height int, min, max float64, steps, minSide int) []TemplateSize {
	var out []TemplateSize
	for _, scale := range Scales(min, max, steps) {
		w := int(float64(width) * scale)
		h := int(float64(height) * scale)
		if w < minSide || h < minSide {
			continue
		}
		out = append(out, TemplateSize{Scale: scale, Width: w, Height: h})
	}
	return out
}

// area uses pixel-inclusive edges, so a 1x1 box at (0,0)-(0,0) has area 1.
func area(b image.Rectangle) float64 {
	w := b.Max.X - b.Min.X + 1
	h := b.Max.Y - b.Min.Y + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(w * h)
}

// IoU returns the intersection-over-union of two boxes
func IoU(a, b image.Rectangle) float64 {
	x1 := max(a.Min.X, b.Min.X)
	y1 := max(a.Min.Y, b.Min.Y)
	x2 := min(a.Max.X, b.Max.X)
	y2 := min(a.Max.Y, b.Max.Y)

	w := x2 - x1 + 1
	h := y2 - y1 + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := float64(w * h)
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Suppress performs greedy non-maximum suppression.
// Order: score desc, then top edge, then left edge, then input order.
// A box survives if its IoU with every kept box is <= threshold.
func Suppress(dets []Detection, threshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}

	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Box.Min.Y != b.Box.Min.Y {
			return a.Box.Min.Y < b.Box.Min.Y
		}
		return a.Box.Min.X < b.Box.Min.X
	})

	var kept []Detection
	for _, d := range sorted {
		keep := true
		for _, k := range kept {
			if IoU(d.Box, k.Box) > threshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, d)
		}
	}
	return kept
}

// Candidates maps surviving detections (relative to region) to screen coordinates.
// Centres are clamped so they always lie inside the region.
func Candidates(dets []Detection, region Region) []Candidate {
	out := make([]Candidate, 0, len(dets))
	for _, d := range dets {
		c := Center(d.Box)
		c.X = clamp(c.X, 0, region.Width-1)
		c.Y = clamp(c.Y, 0, region.Height-1)
		out = append(out, Candidate{
			Position: c.Add(region.Origin()),
			Relative: c,
			Box:      d.Box,
			Score:    d.Score,
		})
	}
	return out
}

// Center returns the integer centre of a box
func Center(b image.Rectangle) image.Point {
	return image.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// PadRegion grows a region-relative box by pad on each side, clamps it to the
// region, and returns it as an absolute capture region.
func PadRegion(region Region, box image.Rectangle, pad int) Region {
	x1 := clamp(box.Min.X-pad, 0, region.Width)
	y1 := clamp(box.Min.Y-pad, 0, region.Height)
	x2 := clamp(box.Max.X+pad, 0, region.Width)
	y2 := clamp(box.Max.Y+pad, 0, region.Height)
	return Region{
		X:      region.X + x1,
		Y:      region.Y + y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Distance is the Euclidean distance between two points
func Distance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// Nearest returns the index of the candidate closest to p, or -1.
// Ties go to the earlier candidate.
func Nearest(cands []Candidate, p image.Point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range cands {
		if d := Distance(c.Position, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
