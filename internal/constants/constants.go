package constants

import (
	"image/color"
	"time"
)

// Forage Configuration
const (
	// Backoff
	ForageErrorBackoff = 5 * time.Second        // Wait after a failed scan pass before retrying
	ForageSeekRetry    = 100 * time.Millisecond // Wait when the start-position walk was interrupted

	// Cooldown
	RecentClickRadius = 30.0 // Targets within this many px of a recent click are skipped

	// Rescan
	RescanPadding = 10 // Padding (px) around a clicked box when verifying it disappeared
)

// Template edge extraction
const (
	MinTemplateSide = 5 // Scaled templates narrower/shorter than this are skipped
	BlurKernel      = 5
	CannyLow        = 50
	CannyHigh       = 150
)

// Pointer movement
const (
	EaseStepDelay   = 1 * time.Millisecond  // Pause between easing steps
	EaseMaxSteps    = 5000                  // Hard cap on easing iterations before the corrective move
	SettleDelay     = 50 * time.Millisecond // Pause after a corrective move (reincarnation clicks)
	PreClickDelay   = 10 * time.Millisecond // Base pause before the first click
	DoubleClickGap  = 50 * time.Millisecond // Base pause between the two clicks
	ClickJitterBase = 10 * time.Millisecond // Upper bound of the random pre-click jitter
	ClickJitterGap  = 50 * time.Millisecond // Upper bound of the random between-click jitter
)

// Reincarnation Configuration
const (
	// Circuit Breaker
	MaxConsecutiveErrors = 5
	CycleErrorBackoff    = 10 * time.Second

	// Load Screen Detection
	LoadCheckInterval = 500 * time.Millisecond
	LoadAppearTimeout = 60 * time.Second // Max wait for the loading colour to show up
	LoadVanishTimeout = 30 * time.Second // Max wait for the loading colour to go away
	LoadFallbackDelay = 10 * time.Second // Blind wait when the stats button was never calibrated
)

// GameLoadColor is the colour of the stats button pixel while the game is loading.
var GameLoadColor = color.RGBA{R: 22, G: 26, B: 55, A: 255}

// OCR sentinels
const (
	OCRUnknown = "UNKNOWN"
	OCRError   = "ERROR"
)

// UI
const (
	LogPollInterval = 100 * time.Millisecond
	LogViewLimit    = 500
	LogQueueSize    = 1024
	StopWaitTimeout = 2 * time.Second
)
