package screen

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png" // Register PNG decoder for image.Decode
	"os"
	"strconv"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"

	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// Searcher handles screen capturing and pixel reads
type Searcher struct {
	DisplayIndex int
}

// NewSearcher creates a new instance
func NewSearcher() *Searcher {
	return &Searcher{
		DisplayIndex: 0, // Default to main display
	}
}

// SetDisplayID sets the target display index for full-screen captures
func (s *Searcher) SetDisplayID(index int) {
	s.DisplayIndex = index
}

// DisplayCount returns the number of active displays
func DisplayCount() int {
	return screenshot.NumActiveDisplays()
}

// DisplayNames lists the active displays as "Display N (WxH)"
func DisplayNames() []string {
	var names []string
	for i := 0; i < DisplayCount(); i++ {
		bounds := screenshot.GetDisplayBounds(i)
		names = append(names, fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
	}
	if len(names) == 0 {
		names = []string{"Display 0 (Default)"}
	}
	return names
}

// ParseDisplayName returns the index of a DisplayNames entry
func ParseDisplayName(name string) int {
	var id int
	if _, err := fmt.Sscanf(name, "Display %d", &id); err != nil {
		return 0
	}
	return id
}

// DisplayBounds returns the selected display in absolute screen coordinates
func (s *Searcher) DisplayBounds() image.Rectangle {
	return screenshot.GetDisplayBounds(s.DisplayIndex)
}

// LoadImage loads an image from the filesystem
func (s *Searcher) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// CaptureScreen returns the current image of the selected display
func (s *Searcher) CaptureScreen() (*image.RGBA, error) {
	// kbinani/screenshot handles multi-monitor bounds correctly
	bounds := s.DisplayBounds()

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen %d: %w", s.DisplayIndex, err)
	}
	return img, nil
}

// CaptureRegion grabs an absolute screen rectangle
func (s *Searcher) CaptureRegion(r detect.Region) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("empty capture region %+v", r)
	}
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region %+v: %w", r, err)
	}
	return img, nil
}

// PixelAt reads a single screen pixel
func (s *Searcher) PixelAt(p image.Point) (color.RGBA, error) {
	hex := robotgo.GetPixelColor(p.X, p.Y)
	return parseHexColor(hex)
}

func parseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("unexpected pixel colour %q", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("unexpected pixel colour %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
