package forage

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/mouse"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// BotState defines the current phase of the patrol
type BotState int

const (
	StateStopped      BotState = iota
	StateSeekingStart          // Walking left to area 1
	StatePatrolling            // Scan, click, rescan, move
)

// History event kinds
const (
	EventClick     = "click"
	EventStrike    = "strike"
	EventBlacklist = "blacklist"
)

// Scanner finds candidates inside a screen region
type Scanner interface {
	Scan(region detect.Region) []detect.Candidate
	Close() error
}

// ScannerFactory builds the scanner for a run (template pyramid + detector)
type ScannerFactory func(params detect.Params) (Scanner, error)

// LearningStore persists strike counts and the blacklist
type LearningStore interface {
	SaveLearning(strikes map[string]map[string]int, blacklist map[string][][]int) error
}

// Recorder appends forage events to the run history
type Recorder interface {
	RecordForageEvent(kind string, area, x, y int, detail string) error
}

// Deps are the collaborators of a forage run
type Deps struct {
	Pointer  mouse.Pointer
	Scanners ScannerFactory
	Store    LearningStore
	Recorder Recorder // optional
	Log      *logger.AppLogger
	Status   func(string) // optional

	// Overridable for tests
	Sleep mouse.SleepFunc
	Now   func() time.Time
}

// Bot is the forage patrol loop
type Bot struct {
	State BotState

	settings config.ForageSettings
	region   detect.Region
	scanner  Scanner
	mover    *mouse.Mover
	learning *Learning
	recent   *RecentClicks
	nav      AreaNavigation

	pointer    mouse.Pointer
	scanners   ScannerFactory
	store      LearningStore
	recorder   Recorder
	log        *logger.AppLogger
	statusFunc func(string)
	sleepFunc  mouse.SleepFunc
	now        func() time.Time
}

// NewBot prepares a forage run. Learning state is restored from settings.
func NewBot(settings config.ForageSettings, deps Deps) *Bot {
	b := &Bot{
		State:      StateStopped,
		settings:   settings,
		learning:   NewLearning(settings.StrikeCounts, settings.Blacklist),
		recent:     NewRecentClicks(engine.Seconds(settings.ClickCooldownSeconds)),
		pointer:    deps.Pointer,
		scanners:   deps.Scanners,
		store:      deps.Store,
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

	b.mover = mouse.NewMover(b.pointer, settings.MouseSpeedFactor, settings.MouseSnapDistance)
	b.mover.Sleep = b.sleepFunc
	return b
}

// Learning exposes the in-memory learning state
func (b *Bot) Learning() *Learning {
	return b.learning
}

// Area returns the current patrol position
func (b *Bot) Area() AreaNavigation {
	return b.nav
}

// Run executes the patrol until ctx is cancelled. It returns an error only for
// fatal configuration failures.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.settings.Validate(); err != nil {
		b.log.Critical("Failed to load calibrated settings: %v", err)
		return err
	}
	b.region = b.settings.Region()

	scanner, err := b.scanners(b.settings.Params())
	if err != nil {
		b.log.Critical("Failed to load template: %v", err)
		return err
	}
	b.scanner = scanner
	defer scanner.Close()

	tracked, blacklisted := b.learning.Stats()
	b.log.Info("Forage bot loop starting... (%d tracked spots, %d blacklisted)", tracked, blacklisted)
	defer func() {
		b.State = StateStopped
		b.statusFunc("Status: Stopped")
		b.log.Info("Forage bot loop stopped")
	}()

	if b.settings.StartupDelay > 0 {
		b.statusFunc(fmt.Sprintf("Status: Starting in %gs...", b.settings.StartupDelay))
		if b.sleep(ctx, engine.Seconds(b.settings.StartupDelay)) {
			return nil
		}
	}

	b.State = StateSeekingStart
	for ctx.Err() == nil {
		next := b.processState(ctx)
		if b.sleep(ctx, next) {
			break
		}
	}
	return nil
}

// processState runs the current state once. A panic in any state backs off
// and the same state is re-entered on the next tick.
func (b *Bot) processState(ctx context.Context) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Error in main loop: %v", r)
			next = constants.ForageErrorBackoff + engine.Seconds(b.settings.ScanInterval)
		}
	}()

	switch b.State {
	case StateSeekingStart:
		return b.handleSeekingStart(ctx)
	case StatePatrolling:
		return b.handlePatrol(ctx)
	default:
		return constants.ForageSeekRetry
	}
}

// handleSeekingStart clicks left total_areas times so the patrol begins at area 1
func (b *Bot) handleSeekingStart(ctx context.Context) time.Duration {
	b.statusFunc("Status: Moving to Area 1...")
	b.log.Info("Moving to starting position (Area 1)...")

	left := pointOf(b.settings.LeftArrowPos)
	for i := 0; i < b.settings.TotalAreas; i++ {
		b.log.Debug("Going left... (%d/%d)", i+1, b.settings.TotalAreas)
		if err := b.mover.MoveAndAct(ctx, left, mouse.SingleClick); err != nil {
			return constants.ForageSeekRetry
		}
		if b.sleep(ctx, engine.Seconds(b.settings.AreaLoadDelay)) {
			return constants.ForageSeekRetry
		}
	}

	b.log.Info("Reached starting position")
	b.nav = Start()
	b.State = StatePatrolling
	return 0
}

// handlePatrol runs one pass. Failed passes back off before the next one.
func (b *Bot) handlePatrol(ctx context.Context) time.Duration {
	interval := engine.Seconds(b.settings.ScanInterval)
	if err := b.pass(ctx); err != nil && ctx.Err() == nil {
		b.log.Error("Error in main loop: %v", err)
		return constants.ForageErrorBackoff + interval
	}
	return interval
}

// pass scans the current area once, then either clicks what it found or moves on
func (b *Bot) pass(ctx context.Context) error {
	b.recent.Expire(b.now())
	area := b.nav.Current

	b.statusFunc(fmt.Sprintf("Status: Scanning Area %d...", area))
	found := b.scanner.Scan(b.region)
	targets := b.filter(found, area)

	if len(targets) > 0 {
		b.log.Info("Found %d new targets. Optimizing click path...", len(targets))
		return b.clickTargets(ctx, targets, area)
	}
	if len(found) > 0 {
		b.log.Debug("Ignored %d targets (blacklist/cooldown)", len(found))
	}
	return b.moveArea(ctx)
}

// filter drops blacklisted candidates and ones near a recent click
func (b *Bot) filter(found []detect.Candidate, area int) []detect.Candidate {
	blacklist := b.learning.AreaBlacklist(area)
	var out []detect.Candidate
	for _, c := range found {
		if IsBlacklisted(c.Relative, blacklist, b.settings.BlacklistRadius) {
			continue
		}
		if b.recent.Near(c.Relative, constants.RecentClickRadius) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// clickTargets clicks nearest-first from the current cursor, verifying each click
func (b *Bot) clickTargets(ctx context.Context, targets []detect.Candidate, area int) error {
	remaining := make([]detect.Candidate, len(targets))
	copy(remaining, targets)
	cursor := b.pointer.Position()

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		i := detect.Nearest(remaining, cursor)
		c := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)

		b.statusFunc(fmt.Sprintf("Status: Clicking (%d, %d)...", c.Position.X, c.Position.Y))
		b.log.Info("Clicking target at (%d, %d) (Confidence: %.2f)", c.Position.X, c.Position.Y, c.Score)
		if err := b.mover.MoveAndAct(ctx, c.Position, mouse.SingleClick); err != nil {
			return err
		}
		cursor = c.Position
		b.recent.Add(c.Relative, b.now())
		b.record(EventClick, area, c.Relative, fmt.Sprintf("%.2f", c.Score))

		if b.sleep(ctx, engine.Seconds(b.settings.PostClickDelay)) {
			return ctx.Err()
		}
		b.verify(area, c)
	}
	return nil
}

// verify rescans just around the clicked box. A target still there is a false positive.
func (b *Bot) verify(area int, c detect.Candidate) {
	rescan := detect.PadRegion(b.region, c.Box, constants.RescanPadding)
	if rescan.Empty() || len(b.scanner.Scan(rescan)) == 0 {
		b.log.Debug("Target at (%d, %d) cleared", c.Relative.X, c.Relative.Y)
		return
	}

	limit := b.settings.StrikeLimit
	count, promoted := b.learning.RecordRescanHit(area, c.Relative, limit)
	b.log.Warn("False positive at (%d, %d). Strike %d/%d", c.Position.X, c.Position.Y, count, limit)
	b.record(EventStrike, area, c.Relative, fmt.Sprintf("%d/%d", count, limit))

	if promoted {
		b.log.Info("Blacklisting spot (%d, %d) for Area %d", c.Relative.X, c.Relative.Y, area)
		b.record(EventBlacklist, area, c.Relative, "")
	}
	b.persist()
}

// persist writes learning state. Failures keep the in-memory state and continue.
func (b *Bot) persist() {
	strikes, blacklist := b.learning.Snapshot()
	if err := b.store.SaveLearning(strikes, blacklist); err != nil {
		b.log.Error("Could not save learning data: %v", err)
	}
}

// moveArea treats the area as clear and walks one step along the patrol
func (b *Bot) moveArea(ctx context.Context) error {
	b.log.Info("Area %d clear. Moving...", b.nav.Current)
	b.recent.Reset()

	dir, ok := b.nav.Step(b.settings.TotalAreas)
	if !ok {
		b.log.Debug("Single area patrol, staying put")
		return nil
	}

	arrow := b.settings.RightArrowPos
	if dir == Left {
		arrow = b.settings.LeftArrowPos
	}
	b.log.Debug("Moving %s to Area %d", dir, b.nav.Current)
	b.statusFunc(fmt.Sprintf("Status: Moving %s to Area %d...", dir, b.nav.Current))
	if err := b.mover.MoveAndAct(ctx, pointOf(arrow), mouse.SingleClick); err != nil {
		return err
	}

	b.log.Debug("Waiting for new area to load...")
	if b.sleep(ctx, engine.Seconds(b.settings.AreaLoadDelay)) {
		return ctx.Err()
	}
	return nil
}

func (b *Bot) record(kind string, area int, p image.Point, detail string) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordForageEvent(kind, area, p.X, p.Y, detail); err != nil {
		b.log.Debug("History write failed: %v", err)
	}
}

func (b *Bot) sleep(ctx context.Context, d time.Duration) bool {
	return b.sleepFunc(ctx, d)
}

func pointOf(v []int) image.Point {
	return image.Pt(v[0], v[1])
}
