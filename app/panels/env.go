package panels

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/mouse"
	"github.com/ConserveLee/immortals-bot/internal/engine/screen"
	"github.com/ConserveLee/immortals-bot/internal/history"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// Env is what the bot tabs share: one runner, one log queue, one status line
type Env struct {
	Window   fyne.Window
	Runner   *engine.Runner
	Queue    *logger.Queue
	Log      *logger.AppLogger
	Searcher *screen.Searcher
	Pointer  mouse.Pointer
	History  *history.Store // nil when the database could not be opened
	DataDir  string
	Prefs    config.Preferences

	Status   binding.String
	controls []*botControls
}

// NewEnv wires the runner exit hook to the tab controls
func NewEnv(win fyne.Window, runner *engine.Runner, queue *logger.Queue, log *logger.AppLogger) *Env {
	e := &Env{
		Window: win,
		Runner: runner,
		Queue:  queue,
		Log:    log,
		Status: binding.NewString(),
	}
	e.Status.Set("Status: Ready")

	runner.OnExit = func(name string, err error) {
		fyne.Do(func() {
			switch {
			case err == nil || errors.Is(err, context.Canceled):
				e.Status.Set("Status: Stopped")
			default:
				e.Status.Set(fmt.Sprintf("Status: %s halted (%v)", name, err))
			}
			e.refresh()
		})
	}
	return e
}

// setStatus is handed to bots as their status callback; it may be called off the UI goroutine
func (e *Env) setStatus(msg string) {
	fyne.Do(func() { e.Status.Set(msg) })
}

// StatusLabel is the bold status line bound to the current bot status
func (e *Env) StatusLabel() *widget.Label {
	l := widget.NewLabelWithData(e.Status)
	l.TextStyle = fyne.TextStyle{Bold: true}
	return l
}

// displaySelect picks the display used for captures
func (e *Env) displaySelect() *widget.Select {
	names := screen.DisplayNames()
	sel := widget.NewSelect(names, func(selected string) {
		id := screen.ParseDisplayName(selected)
		e.Searcher.SetDisplayID(id)
		e.Log.Debug("Switched to Display %d", id)
	})
	current := e.Prefs.Display
	if current < 0 || current >= len(names) {
		current = 0
	}
	sel.SetSelected(names[current])
	return sel
}

// botControls are the start/stop buttons of one tab
type botControls struct {
	name  string
	start *widget.Button
	stop  *widget.Button
	lock  []fyne.Disableable // disabled while any bot runs
}

// newControls builds start/stop buttons. build is called on every start so
// each run picks up the saved settings.
func (e *Env) newControls(name, startLabel string, build func() (engine.LoopFunc, error), lock ...fyne.Disableable) *botControls {
	c := &botControls{name: name, lock: lock}

	c.start = widget.NewButton(startLabel, func() {
		loop, err := build()
		if err != nil {
			e.Log.Critical("Could not start %s: %v", name, err)
			dialog.ShowError(err, e.Window)
			return
		}
		if !e.Runner.Start(name, loop) {
			e.Log.Warn("%s is already running", e.Runner.Name())
			return
		}
		e.Status.Set(fmt.Sprintf("Status: %s running", name))
		e.refresh()
	})
	c.start.Importance = widget.HighImportance

	c.stop = widget.NewButton("Stop", func() {
		c.stop.Disable()
		if !e.Runner.Stop() {
			e.Log.Warn("%s did not stop in time", name)
		}
	})
	c.stop.Disable()

	e.controls = append(e.controls, c)
	return c
}

// refresh enables exactly the controls valid for the runner state
func (e *Env) refresh() {
	running := e.Runner.Running()
	active := e.Runner.Name()
	for _, c := range e.controls {
		if running {
			c.start.Disable()
			if active == c.name {
				c.stop.Enable()
			} else {
				c.stop.Disable()
			}
		} else {
			c.start.Enable()
			c.stop.Disable()
		}
		for _, w := range c.lock {
			if running {
				w.Disable()
			} else {
				w.Enable()
			}
		}
	}
}
