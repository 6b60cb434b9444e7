package panels

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/immortals-bot/app/reincarnation"
	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/ocr"
)

const reincarnationName = "Reincarnation Bot"

// stopForm holds the stop-condition widgets
type stopForm struct {
	onBloodline *widget.Check
	target      *widget.Select
	onQi        *widget.Check
	targetQi    *widget.Entry
	onNew       *widget.Check
	popup       *widget.Check
}

func newStopForm(s config.ReincarnationSettings, ranking []string) *stopForm {
	f := &stopForm{
		onBloodline: widget.NewCheck("Stop on bloodline rank", nil),
		target:      widget.NewSelect(ranking, nil),
		onQi:        widget.NewCheck("Stop on Qi multi", nil),
		targetQi:    widget.NewEntry(),
		onNew:       widget.NewCheck("Stop on new/unlisted bloodline", nil),
		popup:       widget.NewCheck("Show success popup", nil),
	}
	f.onBloodline.SetChecked(s.StopOnBloodline)
	if s.TargetBloodlineIndex >= 0 && s.TargetBloodlineIndex < len(ranking) {
		f.target.SetSelectedIndex(s.TargetBloodlineIndex)
	}
	f.onQi.SetChecked(s.StopOnQi)
	f.targetQi.SetText(strconv.FormatFloat(s.TargetQiMulti, 'g', -1, 64))
	f.onNew.SetChecked(s.StopOnNew)
	f.popup.SetChecked(s.ShowSuccessPopup)
	return f
}

// apply copies the form values into s
func (f *stopForm) apply(s *config.ReincarnationSettings) error {
	qi, err := strconv.ParseFloat(f.targetQi.Text, 64)
	if err != nil {
		return fmt.Errorf("target Qi multi %q is not a number", f.targetQi.Text)
	}
	s.StopOnBloodline = f.onBloodline.Checked
	s.TargetBloodlineIndex = f.target.SelectedIndex()
	s.StopOnQi = f.onQi.Checked
	s.TargetQiMulti = qi
	s.StopOnNew = f.onNew.Checked
	s.ShowSuccessPopup = f.popup.Checked
	return nil
}

func (f *stopForm) widgets() []fyne.Disableable {
	return []fyne.Disableable{f.onBloodline, f.target, f.onQi, f.targetQi, f.onNew, f.popup}
}

// NewReincarnationPanel creates the UI panel for the reincarnation loop
func NewReincarnationPanel(e *Env) fyne.CanvasObject {
	path := filepath.Join(e.DataDir, config.ReincarnationFile)
	rankPath := filepath.Join(e.DataDir, config.BloodlinesFile)
	log := e.Log.With("reincarnation")

	settings, err := config.LoadReincarnation(path)
	if err != nil {
		log.Error("Could not load reincarnation settings: %v", err)
	}
	bloodlines, err := config.LoadBloodlines(rankPath)
	if err != nil {
		log.Error("Could not load bloodline ranking: %v", err)
	}

	var ranking []string
	for i, b := range bloodlines {
		ranking = append(ranking, fmt.Sprintf("%d. %s (%s)", i, b.Name, b.Qi))
	}
	form := newStopForm(settings, ranking)

	lastReading := widget.NewLabel("")
	refreshReading := func() {
		if e.History == nil {
			return
		}
		readings, err := e.History.RecentReadings(1)
		if err != nil || len(readings) == 0 {
			lastReading.SetText("Last read: -")
			return
		}
		r := readings[0]
		lastReading.SetText(fmt.Sprintf("Last read: %s  Qi=%g  at %s", r.Bloodline, r.QiValue, r.ReadAt.Format("15:04:05")))
	}
	refreshReading()

	// save re-reads the file so calibration done in the meantime is kept
	save := func() (config.ReincarnationSettings, error) {
		s, err := config.LoadReincarnation(path)
		if err != nil {
			return s, err
		}
		if err := form.apply(&s); err != nil {
			return s, err
		}
		return s, config.SaveReincarnation(path, s)
	}

	saveBtn := widget.NewButton("Save Settings", func() {
		if _, err := save(); err != nil {
			log.Error("Could not save settings: %v", err)
			return
		}
		log.Info("Reincarnation settings saved.")
	})

	build := func() (engine.LoopFunc, error) {
		s, err := save()
		if err != nil {
			return nil, err
		}
		var recorder reincarnation.Recorder
		if e.History != nil {
			recorder = e.History
		}

		bot := reincarnation.NewBot(s, bloodlines, reincarnation.Deps{
			Pointer: e.Pointer,
			Readers: func() (reincarnation.StatReader, error) {
				r, err := ocr.NewReader(e.Searcher, log)
				if err != nil {
					return nil, err
				}
				return r, nil
			},
			Pixels:   e.Searcher,
			Recorder: recorder,
			Log:      log,
			Status:   e.setStatus,
		})
		return func(ctx context.Context) error {
			defer fyne.Do(refreshReading)
			return bot.Run(ctx)
		}, nil
	}
	lock := append(form.widgets(), saveBtn)
	controls := e.newControls(reincarnationName, "Start Reincarnation", build, lock...)

	// --- Layout ---
	return container.NewVBox(
		widget.NewLabel("Stop conditions:"),
		form.onBloodline,
		container.NewBorder(nil, nil, widget.NewLabel("Target (or better):"), nil, form.target),
		form.onQi,
		container.NewBorder(nil, nil, widget.NewLabel("Target Qi multi:"), nil, form.targetQi),
		form.onNew,
		form.popup,
		widget.NewSeparator(),
		lastReading,
		container.NewHBox(controls.start, controls.stop, saveBtn),
	)
}
