package reincarnation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

var gameColor = color.RGBA{R: 200, G: 180, B: 90, A: 255}

// --- fakes ---

type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}
	c.t = c.t.Add(d)
	c.slept += d
	return false
}

type fakePointer struct {
	pos    image.Point
	clicks []image.Point
}

func (p *fakePointer) Position() image.Point   { return p.pos }
func (p *fakePointer) MoveRelative(dx, dy int) { p.pos = p.pos.Add(image.Pt(dx, dy)) }
func (p *fakePointer) MoveTo(pt image.Point)   { p.pos = pt }
func (p *fakePointer) Click()                  { p.clicks = append(p.clicks, p.pos) }

// fakeReader answers the qi region from qi and the bloodline region from
// bloodlines, one entry per cycle. The last entry repeats.
type fakeReader struct {
	qiRegion   detect.Region
	qi         []string
	bloodlines []string
	qiReads    int
	blReads    int
	err        error
	panics     int // reads that panic before any answer
	closed     bool
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) ReadStat(region detect.Region) (string, error) {
	if r.panics > 0 {
		r.panics--
		panic("ocr cgo fault")
	}
	if r.err != nil {
		return "", r.err
	}
	if region == r.qiRegion {
		r.qiReads++
		return pick(r.qi, r.qiReads), nil
	}
	r.blReads++
	return pick(r.bloodlines, r.blReads), nil
}

func pick(list []string, n int) string {
	if len(list) == 0 {
		return constants.OCRUnknown
	}
	if n > len(list) {
		n = len(list)
	}
	return list[n-1]
}

type fakePixels struct {
	reads  int
	colors []color.RGBA
	errs   map[int]error // read number -> error
}

func (p *fakePixels) PixelAt(image.Point) (color.RGBA, error) {
	p.reads++
	if err, ok := p.errs[p.reads]; ok {
		return color.RGBA{}, err
	}
	if len(p.colors) == 0 {
		return gameColor, nil
	}
	i := p.reads - 1
	if i >= len(p.colors) {
		i = len(p.colors) - 1
	}
	return p.colors[i], nil
}

type fakeRecorder struct {
	readings []string
}

func (r *fakeRecorder) RecordReading(qi float64, raw, bloodline string) error {
	r.readings = append(r.readings, bloodline)
	return nil
}

func testSettings() config.ReincarnationSettings {
	s := config.DefaultReincarnation()
	s.QiRegion = []int{10, 10, 100, 20}
	s.BloodlineRegion = []int{10, 40, 100, 20}
	s.CalibratedPoints = map[string][]int{
		StatsButton:            {100, 100},
		OptionsButton:          {200, 100},
		ReincarnateButton:      {300, 100},
		YesConfirmButton:       {400, 100},
		SkipAnimationButton:    {500, 100},
		ReincarnateFinalButton: {600, 100},
	}
	s.AfterClickDelay = 0.1
	s.PageLoadDelay = 0.1
	return s
}

type harness struct {
	bot      *Bot
	pointer  *fakePointer
	reader   *fakeReader
	pixels   *fakePixels
	recorder *fakeRecorder
	clock    *fakeClock
	queue    *logger.Queue
	events   []logger.Event
	opens    int
	openErr  error
}

func newHarness(s config.ReincarnationSettings) *harness {
	h := &harness{
		pointer:  &fakePointer{},
		reader:   &fakeReader{},
		pixels:   &fakePixels{colors: []color.RGBA{constants.GameLoadColor, gameColor}},
		recorder: &fakeRecorder{},
		clock:    newClock(),
		queue:    logger.NewQueue(4096),
	}
	h.reader.qiRegion, _ = detect.RegionFromSlice(s.QiRegion)
	h.reader.qi = []string{"157.3"}
	h.bot = NewBot(s, config.DefaultBloodlines(), Deps{
		Pointer: h.pointer,
		Readers: func() (StatReader, error) {
			h.opens++
			if h.openErr != nil {
				return nil, h.openErr
			}
			return h.reader, nil
		},
		Pixels:   h.pixels,
		Recorder: h.recorder,
		Log:      logger.NewAppLogger("rein", h.queue, zerolog.Nop()),
		Sleep:    h.clock.Sleep,
		Now:      h.clock.Now,
	})
	return h
}

func (h *harness) count(level logger.LogLevel) int {
	h.events = append(h.events, h.queue.Drain()...)
	n := 0
	for _, e := range h.events {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (h *harness) messages(level logger.LogLevel) []string {
	h.count(level)
	var out []string
	for _, e := range h.events {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// --- parsing ---

func TestParseQi(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"157.3", 157.3, true},
		{"3.2k", 3200, true},
		{"Qi: 2.5K/s", 2500, true},
		{"x12", 12, true},
		{"no digits here", 0, false},
		{constants.OCRError, 0, false},
		{"", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseQi(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeBloodline(t *testing.T) {
	tests := []struct {
		in, display, key string
	}{
		{"Bloodline: Golden Kirin!", "Golden Kirin!", "golden kirin"},
		{"  High-tier Demon  ", "High-tier Demon", "high-tier demon"},
		{"A: B: Buddha.", "Buddha.", "buddha"},
		{"Bloodline:", "", ""},
		{"!!!", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			display, key := NormalizeBloodline(tt.in)
			assert.Equal(t, tt.display, display)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestRanking(t *testing.T) {
	r := NewRanking([]config.Bloodline{{Name: "Celestial Dragon"}, {Name: "High-tier Demon"}, {Name: "celestial dragon"}})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 0, r.Index("celestial dragon"))
	assert.Equal(t, 1, r.Index("high-tier demon"))
	assert.Equal(t, -1, r.Index("mortal"))
	assert.Equal(t, "High-tier Demon", r.Name(1))
	assert.Equal(t, "", r.Name(7))
}

// --- stop conditions ---

func TestEvaluate(t *testing.T) {
	ranking := NewRanking(config.DefaultBloodlines()) // Golden Kirin is rank 8
	base := config.DefaultReincarnation()

	tests := []struct {
		name      string
		qi, line  string
		configure func(s *config.ReincarnationSettings)
		stop      bool
		unlisted  bool
		popup     string
		err       error
	}{
		{
			name: "rank at target stops", qi: "3", line: "Bloodline: Golden Kirin!",
			configure: func(s *config.ReincarnationSettings) { s.TargetBloodlineIndex = 8 },
			stop:      true, popup: "Found Bloodline: Golden Kirin (Rank 8)",
		},
		{
			name: "rank worse than target continues", qi: "3", line: "Golden Kirin",
			configure: func(s *config.ReincarnationSettings) { s.TargetBloodlineIndex = 7 },
		},
		{
			name: "qi at target stops", qi: "3.2k", line: "Mortal",
			configure: func(s *config.ReincarnationSettings) {
				s.StopOnBloodline = false
				s.StopOnQi = true
				s.TargetQiMulti = 3200
			},
			stop: true, popup: "Found Qi Multi: 3200",
		},
		{
			name: "qi below target continues", qi: "199", line: "Mortal",
			configure: func(s *config.ReincarnationSettings) { s.StopOnQi = true },
		},
		{
			name: "unlisted stops when enabled", qi: "1", line: "Bloodline: Void Emperor",
			configure: func(s *config.ReincarnationSettings) {},
			stop:      true, unlisted: true, popup: "Found New Bloodline: Void Emperor",
		},
		{
			name: "unlisted ignores qi rule", qi: "999", line: "Void Emperor",
			configure: func(s *config.ReincarnationSettings) {
				s.StopOnNew = false
				s.StopOnQi = true
			},
			unlisted: true,
		},
		{
			name: "popup off", qi: "1", line: "Celestial Dragon",
			configure: func(s *config.ReincarnationSettings) { s.ShowSuccessPopup = false },
			stop:      true,
		},
		{name: "unknown sentinel", qi: "1", line: constants.OCRUnknown, configure: func(s *config.ReincarnationSettings) {}, err: ErrUnreadableBloodline},
		{name: "error sentinel", qi: "1", line: constants.OCRError, configure: func(s *config.ReincarnationSettings) {}, err: ErrUnreadableBloodline},
		{name: "punctuation only", qi: "1", line: "Bloodline: ?!", configure: func(s *config.ReincarnationSettings) {}, err: ErrUnreadableBloodline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.configure(&s)
			d, err := Evaluate(NewReading(tt.qi, tt.line), ranking, s)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.False(t, d.Stop)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stop, d.Stop)
			assert.Equal(t, tt.unlisted, d.Unlisted)
			assert.Equal(t, tt.popup, d.Popup)
		})
	}
}

// --- load wait ---

func newWaiter(pixels *fakePixels, clock *fakeClock) *LoadWaiter {
	return newLoadWaiter(pixels, image.Pt(5, 5), clock.Sleep, clock.Now, logger.Nop())
}

func TestLoadWaitAppearsThenVanishes(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{colors: []color.RGBA{gameColor, gameColor, gameColor, constants.GameLoadColor, constants.GameLoadColor, gameColor}}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Equal(t, 6, pixels.reads)
	assert.Equal(t, 5*constants.LoadCheckInterval, clock.slept)
}

func TestLoadWaitAlreadyLoading(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{colors: []color.RGBA{constants.GameLoadColor, gameColor}}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Equal(t, 2, pixels.reads)
	assert.Equal(t, constants.LoadCheckInterval, clock.slept)
}

func TestLoadWaitFirstReadFailureCountsAsLoading(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{
		colors: []color.RGBA{gameColor},
		errs:   map[int]error{1: errors.New("no display")},
	}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Equal(t, 2, pixels.reads)
}

func TestLoadWaitLaterReadFailureKeepsColour(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{
		colors: []color.RGBA{constants.GameLoadColor, constants.GameLoadColor, gameColor},
		errs:   map[int]error{2: errors.New("flaky")},
	}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Equal(t, 3, pixels.reads)
	assert.Equal(t, 2*constants.LoadCheckInterval, clock.slept)
}

func TestLoadWaitNeverLoadsProceedsAfterAppearTimeout(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{colors: []color.RGBA{gameColor}}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Greater(t, clock.slept, constants.LoadAppearTimeout)
	assert.Less(t, clock.slept, constants.LoadAppearTimeout+3*constants.LoadCheckInterval)
}

func TestLoadWaitStuckLoadingProceedsAfterVanishTimeout(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{colors: []color.RGBA{constants.GameLoadColor}}

	assert.False(t, newWaiter(pixels, clock).Wait(context.Background()))
	assert.Greater(t, clock.slept, constants.LoadVanishTimeout)
	assert.Less(t, clock.slept, constants.LoadVanishTimeout+2*constants.LoadCheckInterval)
}

func TestLoadWaitCancelled(t *testing.T) {
	clock := newClock()
	pixels := &fakePixels{colors: []color.RGBA{constants.GameLoadColor}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, newWaiter(pixels, clock).Wait(ctx))
	assert.Zero(t, clock.slept)
}

// --- loop ---

func clicksAt(pts ...image.Point) []image.Point {
	var out []image.Point
	for _, p := range pts {
		out = append(out, p, p) // double click
	}
	return out
}

func TestRunStopsOnTargetBloodline(t *testing.T) {
	s := testSettings()
	s.TargetBloodlineIndex = 8
	h := newHarness(s)
	h.reader.bloodlines = []string{"Bloodline: Golden Kirin!"}

	require.NoError(t, h.bot.Run(context.Background()))

	assert.Equal(t, clicksAt(image.Pt(100, 100)), h.pointer.clicks)
	assert.Equal(t, []string{"Found Bloodline: Golden Kirin (Rank 8)"}, h.messages(logger.LevelSuccess))
	assert.Equal(t, []string{"Golden Kirin!"}, h.recorder.readings)
	assert.Zero(t, h.pixels.reads) // first cycle skips the load wait
	assert.Zero(t, h.bot.Cycles)
	assert.True(t, h.reader.closed)
}

func TestRunReincarnatesUntilTarget(t *testing.T) {
	s := testSettings()
	s.TargetBloodlineIndex = 1
	h := newHarness(s)
	h.reader.bloodlines = []string{"Mortal", "Bloodline: Buddha"}

	require.NoError(t, h.bot.Run(context.Background()))

	assert.Equal(t, clicksAt(
		image.Pt(100, 100), image.Pt(200, 100), image.Pt(300, 100),
		image.Pt(400, 100), image.Pt(500, 100), image.Pt(600, 100),
		image.Pt(100, 100),
	), h.pointer.clicks)
	assert.Equal(t, 1, h.bot.Cycles)
	assert.Equal(t, 2, h.pixels.reads) // loading, then game on the second cycle
	assert.Equal(t, 1, h.count(logger.LevelSuccess))
}

func TestRunSkipsMissingSkipAnimationPoint(t *testing.T) {
	s := testSettings()
	delete(s.CalibratedPoints, SkipAnimationButton)
	s.TargetBloodlineIndex = 1
	h := newHarness(s)
	h.reader.bloodlines = []string{"Mortal", "Buddha"}

	require.NoError(t, h.bot.Run(context.Background()))
	assert.Equal(t, 1, h.bot.Cycles)
	assert.NotContains(t, h.pointer.clicks, image.Pt(500, 100))
	assert.Zero(t, h.count(logger.LevelCritical))
}

func TestRunUnlistedContinuesWhenStopOnNewOff(t *testing.T) {
	s := testSettings()
	s.StopOnNew = false
	s.TargetBloodlineIndex = 0
	h := newHarness(s)
	h.reader.bloodlines = []string{"Void Emperor", "Celestial Dragon"}

	require.NoError(t, h.bot.Run(context.Background()))
	assert.Equal(t, 1, h.bot.Cycles)
	assert.Equal(t, []string{"Found Bloodline: Celestial Dragon (Rank 0)"}, h.messages(logger.LevelSuccess))
}

func TestCircuitBreakerOpensAfterFiveFailures(t *testing.T) {
	h := newHarness(testSettings())
	h.reader.bloodlines = []string{constants.OCRUnknown}

	err := h.bot.Run(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 5, h.reader.blReads)
	assert.Equal(t, 1, h.count(logger.LevelCritical))
	assert.Equal(t, 5, h.count(logger.LevelError))
	assert.Zero(t, h.bot.Cycles)
}

func TestCircuitBreakerResetsAfterSuccess(t *testing.T) {
	h := newHarness(testSettings())
	u := constants.OCRUnknown
	h.reader.bloodlines = []string{u, u, u, u, "Mortal", u, u, u, u, u}

	err := h.bot.Run(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 10, h.reader.blReads)
	assert.Equal(t, 1, h.bot.Cycles)
	assert.Equal(t, 1, h.count(logger.LevelCritical))
}

func TestCircuitBreakerCountsCyclePanic(t *testing.T) {
	s := testSettings()
	s.TargetBloodlineIndex = 1
	h := newHarness(s)
	h.reader.panics = 1
	h.reader.bloodlines = []string{"Bloodline: Buddha"}

	require.NotPanics(t, func() {
		require.NoError(t, h.bot.Run(context.Background()))
	})

	errs := h.messages(logger.LevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "cycle panic: ocr cgo fault")
	assert.Equal(t, 1, h.count(logger.LevelSuccess))
	assert.Zero(t, h.count(logger.LevelCritical))
	assert.GreaterOrEqual(t, h.clock.slept, constants.CycleErrorBackoff)
	assert.Equal(t, clicksAt(image.Pt(100, 100), image.Pt(100, 100)), h.pointer.clicks)
}

func TestRunOCREngineMissingIsFatal(t *testing.T) {
	h := newHarness(testSettings())
	h.reader.err = errors.New("failed loading language 'eng'")

	err := h.bot.Run(context.Background())
	assert.ErrorIs(t, err, ErrOCRUnavailable)
	assert.Equal(t, 1, h.count(logger.LevelCritical))
	assert.Equal(t, clicksAt(image.Pt(100, 100)), h.pointer.clicks) // aborted on the first read
}

func TestRunMissingPointIsFatal(t *testing.T) {
	s := testSettings()
	delete(s.CalibratedPoints, YesConfirmButton)
	h := newHarness(s)

	err := h.bot.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingKey)
	assert.Equal(t, 1, h.count(logger.LevelCritical))
	assert.Empty(t, h.pointer.clicks)
	assert.Zero(t, h.opens)
}

func TestRunReaderOpenFailureIsFatal(t *testing.T) {
	h := newHarness(testSettings())
	h.openErr = errors.New("failed loading language 'eng'")

	err := h.bot.Run(context.Background())
	assert.ErrorIs(t, err, ErrOCRUnavailable)
	assert.Equal(t, 1, h.opens)
	assert.Equal(t, 1, h.count(logger.LevelCritical))
	assert.Empty(t, h.pointer.clicks)
}

func TestRunClosesReaderAfterCircuitBreaker(t *testing.T) {
	h := newHarness(testSettings())
	h.reader.bloodlines = []string{constants.OCRUnknown}

	assert.ErrorIs(t, h.bot.Run(context.Background()), ErrCircuitOpen)
	assert.Equal(t, 1, h.opens)
	assert.True(t, h.reader.closed)
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.bot.Run(ctx))
	assert.Empty(t, h.pointer.clicks)
	assert.Zero(t, h.count(logger.LevelCritical))
}
