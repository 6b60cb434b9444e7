package mouse

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simPointer models cursor position without a real device
type simPointer struct {
	pos       image.Point
	clicks    []image.Point
	absMoves  int
	relMoves  int
	driftOnce image.Point // applied after the next absolute move
}

func (p *simPointer) Position() image.Point { return p.pos }

func (p *simPointer) MoveRelative(dx, dy int) {
	p.relMoves++
	p.pos = p.pos.Add(image.Pt(dx, dy))
}

func (p *simPointer) MoveTo(pt image.Point) {
	p.absMoves++
	p.pos = pt.Add(p.driftOnce)
	p.driftOnce = image.Point{}
}

func (p *simPointer) Click() { p.clicks = append(p.clicks, p.pos) }

func noSleep(ctx context.Context, d time.Duration) bool { return ctx.Err() != nil }

func newTestMover(p Pointer, speed float64, snap int) *Mover {
	m := NewMover(p, speed, snap)
	m.Sleep = noSleep
	m.Jitter = func(time.Duration) time.Duration { return 0 }
	return m
}

func TestEasingAlwaysLandsOnTarget(t *testing.T) {
	cases := []struct {
		start  image.Point
		target image.Point
		speed  float64
		snap   int
	}{
		{image.Pt(0, 0), image.Pt(1000, 600), 0.3, 15},
		{image.Pt(900, 10), image.Pt(3, 700), 0.15, 25},
		{image.Pt(50, 50), image.Pt(51, 49), 0.01, 1},
		{image.Pt(0, 0), image.Pt(-400, 300), 1.0, 0},
		{image.Pt(10, 10), image.Pt(2000, 10), 0, 5},
		{image.Pt(10, 10), image.Pt(10, 10), 0.3, 15},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v->%v f=%.2f s=%d", tc.start, tc.target, tc.speed, tc.snap), func(t *testing.T) {
			p := &simPointer{pos: tc.start}
			m := newTestMover(p, tc.speed, tc.snap)

			err := m.MoveAndAct(context.Background(), tc.target, SingleClick)
			require.NoError(t, err)

			assert.Equal(t, tc.target, p.pos)
			assert.Less(t, m.Steps, m.MaxSteps)
			require.Len(t, p.clicks, 1)
			assert.Equal(t, tc.target, p.clicks[0])
		})
	}
}

func TestEasingDecelerates(t *testing.T) {
	p := &simPointer{}
	m := newTestMover(p, 0.5, 2)

	var deltas []int
	m.Sleep = func(ctx context.Context, d time.Duration) bool {
		deltas = append(deltas, 1000-p.pos.X)
		return false
	}
	require.NoError(t, m.MoveAndAct(context.Background(), image.Pt(1000, 0), nil))
	require.NotEmpty(t, deltas)
	for i := 1; i < len(deltas); i++ {
		assert.Less(t, deltas[i], deltas[i-1])
	}
	assert.Empty(t, p.clicks)
}

func TestCancelledMoveSkipsClick(t *testing.T) {
	p := &simPointer{}
	m := newTestMover(p, 0.1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	m.Sleep = func(c context.Context, d time.Duration) bool {
		steps++
		if steps == 3 {
			cancel()
		}
		return c.Err() != nil
	}

	err := m.MoveAndAct(ctx, image.Pt(500, 500), SingleClick)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.clicks)
	assert.Equal(t, 0, p.absMoves)
	assert.Equal(t, 3, m.Steps)
}

func TestVerifiedDoubleClick(t *testing.T) {
	p := &simPointer{driftOnce: image.Pt(2, 0)}
	m := newTestMover(p, 0.5, 5)

	require.NoError(t, m.MoveAndAct(context.Background(), image.Pt(100, 100), VerifiedDoubleClick))

	// Corrective move drifted, so the verification forces a second absolute move
	assert.Equal(t, 2, p.absMoves)
	require.Len(t, p.clicks, 2)
	assert.Equal(t, image.Pt(100, 100), p.clicks[0])
	assert.Equal(t, image.Pt(100, 100), p.clicks[1])
}

func TestVerifiedDoubleClickCancelledBetweenClicks(t *testing.T) {
	p := &simPointer{pos: image.Pt(100, 100)}
	m := newTestMover(p, 0.5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	m.Sleep = func(c context.Context, d time.Duration) bool {
		if len(p.clicks) == 1 {
			cancel()
		}
		return c.Err() != nil
	}
	err := m.MoveAndAct(ctx, image.Pt(100, 100), VerifiedDoubleClick)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, p.clicks, 1)
}

func TestStep(t *testing.T) {
	assert.Equal(t, 30, step(100, 0.3))
	assert.Equal(t, -30, step(-100, 0.3))
	assert.Equal(t, 1, step(2, 0.1))
	assert.Equal(t, -1, step(-2, 0.1))
	assert.Equal(t, 0, step(0, 0.3))
}
