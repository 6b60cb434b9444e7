package reincarnation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/mouse"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// Calibrated point keys
const (
	StatsButton            = "stats_button"
	OptionsButton          = "options_button"
	ReincarnateButton      = "reincarnate_button"
	YesConfirmButton       = "yes_confirm_button"
	SkipAnimationButton    = "skip_animation_button"
	ReincarnateFinalButton = "reincarnate_final_button"
)

// RequiredPoints must all be calibrated before a run. Skip animation is optional.
var RequiredPoints = []string{
	StatsButton,
	OptionsButton,
	ReincarnateButton,
	YesConfirmButton,
	ReincarnateFinalButton,
}

var (
	// ErrCircuitOpen is returned after too many failed cycles in a row
	ErrCircuitOpen = errors.New("too many consecutive cycle failures")
	// ErrOCRUnavailable wraps a read failure of the OCR engine itself
	ErrOCRUnavailable = errors.New("OCR engine unavailable")
)

// StatReader reads one line of text from a screen region. Empty or failed
// reads come back as the UNKNOWN/ERROR sentinels; a returned error means the
// OCR engine itself cannot run.
type StatReader interface {
	ReadStat(region detect.Region) (string, error)
	Close() error
}

// Recorder appends stats readings to the run history
type Recorder interface {
	RecordReading(qiValue float64, qiRaw, bloodline string) error
}

// Deps are the collaborators of a reincarnation run
type Deps struct {
	Pointer  mouse.Pointer
	Readers  func() (StatReader, error) // opened once per run, closed when it ends
	Pixels   PixelSource
	Recorder Recorder // optional
	Log      *logger.AppLogger
	Status   func(string) // optional

	// Overridable for tests
	Sleep mouse.SleepFunc
	Now   func() time.Time
}

// Bot is the reincarnation cycle loop
type Bot struct {
	settings config.ReincarnationSettings
	ranking  Ranking
	mover    *mouse.Mover

	readers    func() (StatReader, error)
	reader     StatReader
	pixels     PixelSource
	recorder   Recorder
	log        *logger.AppLogger
	statusFunc func(string)
	sleepFunc  mouse.SleepFunc
	now        func() time.Time

	// Cycles counts completed reincarnations in this run
	Cycles int
}

// NewBot prepares a reincarnation run against a bloodline ranking
func NewBot(settings config.ReincarnationSettings, bloodlines []config.Bloodline, deps Deps) *Bot {
	b := &Bot{
		settings:   settings,
		ranking:    NewRanking(bloodlines),
		readers:    deps.Readers,
		pixels:     deps.Pixels,
		recorder:   deps.Recorder,
		log:        deps.Log,
		statusFunc: deps.Status,
		sleepFunc:  deps.Sleep,
		now:        deps.Now,
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.statusFunc == nil {
		b.statusFunc = func(string) {}
	}
	if b.sleepFunc == nil {
		b.sleepFunc = engine.Sleep
	}
	if b.now == nil {
		b.now = time.Now
	}

	b.mover = mouse.NewMover(deps.Pointer, settings.MouseSpeedFactor, settings.MouseSnapThreshold)
	b.mover.Sleep = b.sleepFunc
	return b
}

// Run cycles until a stop condition is met, ctx is cancelled, or the circuit
// breaker opens. Fatal configuration and OCR failures are returned.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.settings.Validate(RequiredPoints, b.ranking.Len()); err != nil {
		b.log.Critical("Missing key in config: %v. Halting bot.", err)
		return err
	}

	reader, err := b.readers()
	if err != nil {
		b.log.Critical("OCR engine is not available: %v", err)
		return fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	b.reader = reader
	defer reader.Close()

	b.log.Info("Bot loop started.")
	defer func() {
		b.statusFunc("Status: Stopped")
		b.log.Info("Bot loop stopped.")
	}()

	consecutive := 0
	first := true
	for ctx.Err() == nil {
		stop, err := b.safeCycle(ctx, first)
		first = false
		if ctx.Err() != nil {
			break
		}

		if err != nil {
			if errors.Is(err, ErrOCRUnavailable) {
				b.log.Critical("OCR engine is not available: %v", err)
				return err
			}

			consecutive++
			b.log.Error("An error occurred in the bot loop: %v", err)
			if consecutive >= constants.MaxConsecutiveErrors {
				b.log.Critical("STOPPING: Bot failed %d times in a row. Halting to prevent issues.", consecutive)
				return ErrCircuitOpen
			}
			b.log.Info("Attempting to recover by waiting %s (Error %d/%d)...",
				constants.CycleErrorBackoff, consecutive, constants.MaxConsecutiveErrors)
			if b.sleep(ctx, constants.CycleErrorBackoff) {
				break
			}
			continue
		}

		consecutive = 0
		if stop {
			break
		}
	}
	return nil
}

// safeCycle runs a cycle and turns a panic into a cycle error
func (b *Bot) safeCycle(ctx context.Context, first bool) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stop, err = false, fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return b.cycle(ctx, first)
}

// cycle runs one wait, read, evaluate and reincarnate pass. stop is true when
// a stop condition was met.
func (b *Bot) cycle(ctx context.Context, first bool) (stop bool, err error) {
	if first {
		b.log.Info("First loop, assuming in-game. Skipping load wait.")
	} else {
		b.statusFunc("Status: Waiting for game to load...")
		if b.waitForGameLoad(ctx) {
			return false, ctx.Err()
		}
	}

	b.statusFunc("Status: Reading stats...")
	b.log.Debug("Navigating to Stats page...")
	if err := b.click(ctx, StatsButton); err != nil {
		return false, err
	}
	if b.sleep(ctx, engine.Seconds(b.settings.PageLoadDelay)) {
		return false, ctx.Err()
	}

	reading, err := b.readStats()
	if err != nil {
		return false, err
	}

	decision, err := Evaluate(reading, b.ranking, b.settings)
	if err != nil {
		b.log.Warn("Could not read bloodline, will retry.")
		return false, err
	}
	if decision.Stop {
		b.log.Info("%s", decision.Reason)
		if decision.Popup != "" {
			b.log.Success("%s", decision.Popup)
		}
		b.statusFunc("Status: Target found")
		return true, nil
	}
	if decision.Unlisted {
		b.log.Warn("Found unlisted bloodline: '%s'. 'Stop on New' is OFF. Continuing...", reading.Bloodline)
	} else {
		b.log.Debug("Found %s (Rank %d). Conditions not met. Proceeding to reincarnate.",
			b.ranking.Name(decision.Rank), decision.Rank)
	}

	if err := b.reincarnate(ctx); err != nil {
		return false, err
	}
	b.Cycles++
	b.log.Info("Reincarnation finished. Starting next cycle.")
	return false, nil
}

// readStats reads and parses both stats lines, then appends them to the history
func (b *Bot) readStats() (Reading, error) {
	b.log.Debug("Reading stats...")
	qiText, err := b.reader.ReadStat(b.settings.QiArea())
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	bloodlineText, err := b.reader.ReadStat(b.settings.BloodlineArea())
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}

	r := NewReading(qiText, bloodlineText)
	if !r.QiParsed {
		b.log.Warn("Could not parse Qi value from '%s'", qiText)
	}
	b.log.Info("Read: Bloodline='%s', Qi=%g (Raw: '%s')", r.Bloodline, r.Qi, qiText)

	if b.recorder != nil {
		if err := b.recorder.RecordReading(r.Qi, qiText, r.Bloodline); err != nil {
			b.log.Debug("History write failed: %v", err)
		}
	}
	return r, nil
}

// reincarnate clicks through options, reincarnate, confirm, skip and final
func (b *Bot) reincarnate(ctx context.Context) error {
	pageLoad := engine.Seconds(b.settings.PageLoadDelay)
	afterClick := engine.Seconds(b.settings.AfterClickDelay)

	steps := []struct {
		key      string
		label    string
		delay    time.Duration
		optional bool
	}{
		{OptionsButton, "Navigating to Options page...", pageLoad, false},
		{ReincarnateButton, "Clicking Reincarnate...", pageLoad, false},
		{YesConfirmButton, "Clicking Yes (Confirm)...", afterClick, false},
		{SkipAnimationButton, "Attempting to skip animation...", afterClick, true},
		{ReincarnateFinalButton, "Clicking final Reincarnate...", afterClick, false},
	}

	b.statusFunc("Status: Reincarnating...")
	for _, s := range steps {
		b.log.Debug("%s", s.label)
		if err := b.click(ctx, s.key); err != nil {
			if s.optional && ctx.Err() == nil {
				b.log.Warn("Could not click '%s'. Continuing...", s.key)
				continue
			}
			return err
		}
		if b.sleep(ctx, s.delay) {
			return ctx.Err()
		}
	}
	return nil
}

// click moves to a calibrated point and double-clicks it
func (b *Bot) click(ctx context.Context, key string) error {
	p, ok := b.settings.Point(key)
	if !ok {
		b.log.Error("Calibration data for '%s' is invalid or missing", key)
		return fmt.Errorf("%w: calibrated point %q", config.ErrMissingKey, key)
	}
	if err := b.mover.MoveAndAct(ctx, p, mouse.VerifiedDoubleClick); err != nil {
		return err
	}
	b.log.Info("Clicked '%s'.", key)
	return nil
}

// waitForGameLoad returns true if ctx was cancelled
func (b *Bot) waitForGameLoad(ctx context.Context) bool {
	p, ok := b.settings.Point(StatsButton)
	if !ok {
		b.log.Error("Could not get stats_button for pixel check. Falling back to %s sleep.", constants.LoadFallbackDelay)
		return b.sleep(ctx, constants.LoadFallbackDelay)
	}
	return newLoadWaiter(b.pixels, p, b.sleepFunc, b.now, b.log).Wait(ctx)
}

func (b *Bot) sleep(ctx context.Context, d time.Duration) bool {
	return b.sleepFunc(ctx, d)
}
