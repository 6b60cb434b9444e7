package mouse

import (
	"context"
	"image"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine"
)

// Pointer is the input device: relative/absolute move and click.
type Pointer interface {
	Position() image.Point
	MoveRelative(dx, dy int)
	MoveTo(p image.Point)
	Click()
}

// SleepFunc waits for d and reports whether it was interrupted
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Action runs once the pointer has arrived on target
type Action func(ctx context.Context, m *Mover, target image.Point) error

// Mover eases the pointer toward a target and then runs an action.
type Mover struct {
	Pointer      Pointer
	SpeedFactor  float64 // Fraction of the remaining delta covered per step
	SnapDistance int     // Stop easing once the max axis delta is below this
	StepDelay    time.Duration
	MaxSteps     int
	Sleep        SleepFunc
	Jitter       func(max time.Duration) time.Duration

	// Steps records the easing iterations of the last move
	Steps int
}

// NewMover builds a Mover with the standard step delay and real sleeps
func NewMover(p Pointer, speed float64, snap int) *Mover {
	return &Mover{
		Pointer:      p,
		SpeedFactor:  speed,
		SnapDistance: snap,
		StepDelay:    constants.EaseStepDelay,
		MaxSteps:     constants.EaseMaxSteps,
		Sleep:        engine.Sleep,
		Jitter:       randomJitter,
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// MoveAndAct eases toward target, lands exactly on it, then runs act.
// If ctx is cancelled before arrival, it returns ctx.Err() and act is skipped.
func (m *Mover) MoveAndAct(ctx context.Context, target image.Point, act Action) error {
	factor := m.SpeedFactor
	if factor <= 0 || factor > 1 {
		factor = 1
	}
	snap := max(m.SnapDistance, 1)
	limit := m.MaxSteps
	if limit <= 0 {
		limit = constants.EaseMaxSteps
	}

	m.Steps = 0
	for m.Steps < limit {
		if err := ctx.Err(); err != nil {
			return err
		}

		cur := m.Pointer.Position()
		dx, dy := target.X-cur.X, target.Y-cur.Y
		if max(abs(dx), abs(dy)) < snap {
			break
		}

		m.Pointer.MoveRelative(step(dx, factor), step(dy, factor))
		m.Steps++

		if m.sleep(ctx, m.StepDelay) {
			return ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	m.Pointer.MoveTo(target)

	if act == nil {
		return nil
	}
	return act(ctx, m, target)
}

func (m *Mover) sleep(ctx context.Context, d time.Duration) bool {
	if m.Sleep == nil {
		return engine.Sleep(ctx, d)
	}
	return m.Sleep(ctx, d)
}

func (m *Mover) jitter(max time.Duration) time.Duration {
	if m.Jitter == nil {
		return 0
	}
	return m.Jitter(max)
}

// step returns round(d*f), but at least one pixel toward the target while d != 0.
func step(d int, f float64) int {
	s := int(math.Round(float64(d) * f))
	if s == 0 && d != 0 {
		if d > 0 {
			return 1
		}
		return -1
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SingleClick clicks once. Used by the forage loop.
func SingleClick(ctx context.Context, m *Mover, target image.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Pointer.Click()
	return nil
}

// VerifiedDoubleClick re-checks the cursor, forces an absolute move if it
// drifted, then clicks twice with small random pauses. Used by the
// reincarnation loop, where a missed click stalls the whole cycle.
func VerifiedDoubleClick(ctx context.Context, m *Mover, target image.Point) error {
	if m.sleep(ctx, constants.SettleDelay) {
		return ctx.Err()
	}
	if m.Pointer.Position() != target {
		m.Pointer.MoveTo(target)
		if m.sleep(ctx, constants.SettleDelay) {
			return ctx.Err()
		}
	}

	if m.sleep(ctx, constants.PreClickDelay+m.jitter(constants.ClickJitterBase)) {
		return ctx.Err()
	}
	m.Pointer.Click()
	if m.sleep(ctx, constants.DoubleClickGap+m.jitter(constants.ClickJitterGap)) {
		return ctx.Err()
	}
	m.Pointer.Click()
	return nil
}
