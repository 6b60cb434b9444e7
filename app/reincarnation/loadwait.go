package reincarnation

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine/mouse"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// PixelSource reads a single screen pixel
type PixelSource interface {
	PixelAt(p image.Point) (color.RGBA, error)
}

// LoadWaiter watches one calibrated pixel for the game's loading colour
type LoadWaiter struct {
	Pixels   PixelSource
	Point    image.Point
	Loading  color.RGBA
	Interval time.Duration
	Appear   time.Duration
	Vanish   time.Duration

	Sleep mouse.SleepFunc
	Now   func() time.Time
	Log   *logger.AppLogger
}

// Wait blocks until the loading screen has come and gone. Both stages give
// up after their timeout and proceed. It returns true if ctx was cancelled.
func (w *LoadWaiter) Wait(ctx context.Context) bool {
	w.Log.Debug("Waiting for game UI to load (checking stats_button pixel)...")

	current, err := w.Pixels.PixelAt(w.Point)
	if err != nil {
		w.Log.Warn("Could not read pixel color at (%d, %d): %v", w.Point.X, w.Point.Y, err)
		current = w.Loading
	}

	// Started in game or on the pre-loading screen: look once more
	if current != w.Loading {
		if w.Sleep(ctx, w.Interval) {
			return true
		}
		current = w.read(current)
		if current != w.Loading {
			w.Log.Debug("Pre-loading screen detected (Color: %v). Waiting for main load screen...", current)
		}
	}

	if current != w.Loading {
		start := w.Now()
		for current != w.Loading {
			if w.Now().Sub(start) > w.Appear {
				w.Log.Warn("Main game load screen never appeared. Proceeding anyway.")
				return false
			}
			if w.Sleep(ctx, w.Interval) {
				return true
			}
			current = w.read(current)
		}
	}
	w.Log.Debug("Main game loading screen detected. Waiting for it to disappear...")

	start := w.Now()
	for current == w.Loading {
		if w.Now().Sub(start) > w.Vanish {
			w.Log.Warn("Main game load screen did not disappear. Proceeding anyway.")
			return false
		}
		if w.Sleep(ctx, w.Interval) {
			return true
		}
		current = w.read(current)
	}

	w.Log.Debug("Game UI detected (Pixel %v). Continuing loop.", current)
	return false
}

// read returns the pixel colour, or prev when the read fails
func (w *LoadWaiter) read(prev color.RGBA) color.RGBA {
	c, err := w.Pixels.PixelAt(w.Point)
	if err != nil {
		return prev
	}
	return c
}

func newLoadWaiter(pixels PixelSource, p image.Point, sleep mouse.SleepFunc, now func() time.Time, log *logger.AppLogger) *LoadWaiter {
	return &LoadWaiter{
		Pixels:   pixels,
		Point:    p,
		Loading:  constants.GameLoadColor,
		Interval: constants.LoadCheckInterval,
		Appear:   constants.LoadAppearTimeout,
		Vanish:   constants.LoadVanishTimeout,
		Sleep:    sleep,
		Now:      now,
		Log:      log,
	}
}
