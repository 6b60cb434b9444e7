package panels

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/immortals-bot/app/forage"
	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/screen"
)

const forageName = "Forage Bot"

// NewForagePanel creates the UI panel for the forage patrol
func NewForagePanel(e *Env) fyne.CanvasObject {
	path := filepath.Join(e.DataDir, config.ForageFile)
	log := e.Log.With("forage")
	learning := config.LearningFile{Path: path}

	// 1. Settings summary
	summary := widget.NewLabel("")
	refreshSummary := func() {
		s, err := config.LoadForage(path)
		if err != nil {
			summary.SetText(fmt.Sprintf("Settings error: %v", err))
			return
		}
		tracked, blacklisted := forage.NewLearning(s.StrikeCounts, s.Blacklist).Stats()
		text := fmt.Sprintf("Search region: %v\nAreas: %d   Strike limit: %d   Blacklist radius: %gpx\nTracked spots: %d   Blacklisted: %d",
			s.SearchRegion, s.TotalAreas, s.StrikeLimit, s.BlacklistRadius, tracked, blacklisted)
		if e.History != nil {
			clicks, _ := e.History.CountForageEvents(forage.EventClick)
			strikes, _ := e.History.CountForageEvents(forage.EventStrike)
			text += fmt.Sprintf("\nLogged clicks: %d   Logged strikes: %d", clicks, strikes)
		}
		summary.SetText(text)
	}
	refreshSummary()

	// 2. Buttons
	displaySelect := e.displaySelect()

	clearBtn := widget.NewButton("Clear Blacklist", func() {
		dialog.ShowConfirm("Clear Blacklist", "Forget all strike counts and blacklisted spots?", func(ok bool) {
			if !ok {
				return
			}
			if err := learning.ClearLearning(); err != nil {
				log.Error("Could not clear blacklist: %v", err)
				dialog.ShowError(err, e.Window)
				return
			}
			log.Info("Blacklist and strike counts cleared.")
			refreshSummary()
		}, e.Window)
	})

	historyBtn := widget.NewButton("Recent Events", func() {
		showForageEvents(e, path)
	})
	if e.History == nil {
		historyBtn.Disable()
	}

	build := func() (engine.LoopFunc, error) {
		s, err := config.LoadForage(path)
		if err != nil {
			return nil, err
		}
		var recorder forage.Recorder
		if e.History != nil {
			recorder = e.History
		}

		bot := forage.NewBot(s, forage.Deps{
			Pointer: e.Pointer,
			Scanners: func(p detect.Params) (forage.Scanner, error) {
				d, err := screen.NewDetector(e.Searcher, e.Prefs.TemplatePath, p, log)
				if err != nil {
					return nil, err
				}
				return d, nil
			},
			Store:    learning,
			Recorder: recorder,
			Log:      log,
			Status:   e.setStatus,
		})
		return func(ctx context.Context) error {
			defer fyne.Do(refreshSummary)
			return bot.Run(ctx)
		}, nil
	}
	controls := e.newControls(forageName, "Start Forage", build, displaySelect, clearBtn)

	// --- Layout ---
	return container.NewVBox(
		widget.NewLabel("Forage patrol:"),
		container.NewHBox(widget.NewLabel("Screen:"), displaySelect),
		summary,
		container.NewHBox(controls.start, controls.stop, clearBtn, historyBtn),
	)
}

// showForageEvents lists the latest history events per area
func showForageEvents(e *Env, path string) {
	s, err := config.LoadForage(path)
	if err != nil {
		dialog.ShowError(err, e.Window)
		return
	}

	var b strings.Builder
	for area := 1; area <= s.TotalAreas; area++ {
		events, err := e.History.ForageEvents(area, 5)
		if err != nil {
			dialog.ShowError(err, e.Window)
			return
		}
		fmt.Fprintf(&b, "Area %d:\n", area)
		if len(events) == 0 {
			b.WriteString("  (none)\n")
		}
		for _, ev := range events {
			fmt.Fprintf(&b, "  %s %-9s (%d, %d) %s\n", ev.LoggedAt.Format("15:04:05"), ev.Kind, ev.X, ev.Y, ev.Detail)
		}
	}

	text := widget.NewLabel(b.String())
	text.TextStyle = fyne.TextStyle{Monospace: true}
	scroll := container.NewVScroll(text)
	scroll.SetMinSize(fyne.NewSize(420, 300))
	dialog.ShowCustom("Recent Forage Events", "Close", scroll, e.Window)
}
