package tools

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/immortals-bot/app/reincarnation"
	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/screen"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

type targetKind int

const (
	regionTarget   targetKind = iota // [x, y, width, height]
	pointTarget                      // [x, y]
	templateTarget                   // cropped PNG
)

// target is one calibratable setting
type target struct {
	label string
	kind  targetKind
	save  func(v []int) error // absolute screen coordinates
}

// Calibration saves screen selections into the settings files
type Calibration struct {
	dataDir      string
	templatePath string
	log          *logger.AppLogger
	targets      []target
}

// NewCalibration lists every region and point the bots need
func NewCalibration(dataDir, templatePath string, log *logger.AppLogger) *Calibration {
	c := &Calibration{dataDir: dataDir, templatePath: templatePath, log: log}

	forageTarget := func(label string, kind targetKind, set func(*config.ForageSettings, []int)) target {
		return target{label: label, kind: kind, save: func(v []int) error {
			return c.updateForage(func(s *config.ForageSettings) { set(s, v) })
		}}
	}
	reinRegion := func(label string, set func(*config.ReincarnationSettings, []int)) target {
		return target{label: label, kind: regionTarget, save: func(v []int) error {
			return c.updateReincarnation(func(s *config.ReincarnationSettings) { set(s, v) })
		}}
	}
	reinPoint := func(key string) target {
		return target{label: "Reincarnation: " + key, kind: pointTarget, save: func(v []int) error {
			return c.updateReincarnation(func(s *config.ReincarnationSettings) { s.CalibratedPoints[key] = v })
		}}
	}

	c.targets = []target{
		forageTarget("Forage: Search Region", regionTarget, func(s *config.ForageSettings, v []int) { s.SearchRegion = v }),
		forageTarget("Forage: Left Arrow", pointTarget, func(s *config.ForageSettings, v []int) { s.LeftArrowPos = v }),
		forageTarget("Forage: Right Arrow", pointTarget, func(s *config.ForageSettings, v []int) { s.RightArrowPos = v }),
		{label: "Forage: Template", kind: templateTarget},
		reinRegion("Reincarnation: Qi Region", func(s *config.ReincarnationSettings, v []int) { s.QiRegion = v }),
		reinRegion("Reincarnation: Bloodline Region", func(s *config.ReincarnationSettings, v []int) { s.BloodlineRegion = v }),
		reinPoint(reincarnation.StatsButton),
		reinPoint(reincarnation.OptionsButton),
		reinPoint(reincarnation.ReincarnateButton),
		reinPoint(reincarnation.YesConfirmButton),
		reinPoint(reincarnation.SkipAnimationButton),
		reinPoint(reincarnation.ReincarnateFinalButton),
	}
	return c
}

func (c *Calibration) updateForage(fn func(*config.ForageSettings)) error {
	path := filepath.Join(c.dataDir, config.ForageFile)
	s, err := config.LoadForage(path)
	if err != nil {
		return err
	}
	fn(&s)
	return config.SaveForage(path, s)
}

func (c *Calibration) updateReincarnation(fn func(*config.ReincarnationSettings)) error {
	path := filepath.Join(c.dataDir, config.ReincarnationFile)
	s, err := config.LoadReincarnation(path)
	if err != nil {
		return err
	}
	fn(&s)
	return config.SaveReincarnation(path, s)
}

// apply stores a selection made on a capture whose top-left is origin
func (c *Calibration) apply(t target, img image.Image, sel image.Rectangle, origin image.Point) (string, error) {
	switch t.kind {
	case regionTarget:
		abs := sel.Add(origin)
		v := []int{abs.Min.X, abs.Min.Y, abs.Dx(), abs.Dy()}
		return fmt.Sprintf("%v", v), t.save(v)
	case pointTarget:
		p := detect.Center(sel).Add(origin)
		v := []int{p.X, p.Y}
		return fmt.Sprintf("%v", v), t.save(v)
	default:
		return c.templatePath, c.saveTemplate(img, sel)
	}
}

func (c *Calibration) saveTemplate(img image.Image, sel image.Rectangle) error {
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return fmt.Errorf("image type does not support cropping")
	}
	if err := os.MkdirAll(filepath.Dir(c.templatePath), 0755); err != nil {
		return err
	}
	f, err := os.Create(c.templatePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, sub.SubImage(sel))
}

// Summary describes the current calibration state
func (c *Calibration) Summary() string {
	var b strings.Builder
	if s, err := config.LoadForage(filepath.Join(c.dataDir, config.ForageFile)); err == nil {
		fmt.Fprintf(&b, "Forage region %s, arrows %s / %s\n", show(s.SearchRegion), show(s.LeftArrowPos), show(s.RightArrowPos))
	}
	if _, err := os.Stat(c.templatePath); err != nil {
		fmt.Fprintf(&b, "Template %s: missing\n", c.templatePath)
	}
	if s, err := config.LoadReincarnation(filepath.Join(c.dataDir, config.ReincarnationFile)); err == nil {
		fmt.Fprintf(&b, "Qi %s, bloodline %s\n", show(s.QiRegion), show(s.BloodlineRegion))
		var missing []string
		for _, key := range reincarnation.RequiredPoints {
			if _, ok := s.Point(key); !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			fmt.Fprintf(&b, "Uncalibrated: %s", strings.Join(missing, ", "))
		}
	}
	return strings.TrimSpace(b.String())
}

func show(v []int) string {
	if len(v) == 0 {
		return "(not set)"
	}
	return fmt.Sprint(v)
}

// NewCalibrationPanel creates the UI panel for calibrating regions, points and the template
func NewCalibrationPanel(win fyne.Window, dataDir, templatePath string, log *logger.AppLogger) fyne.CanvasObject {
	cal := NewCalibration(dataDir, templatePath, log)
	searcher := screen.NewSearcher()

	// 1. Screen Selector
	names := screen.DisplayNames()
	displaySelect := widget.NewSelect(names, func(selected string) {
		searcher.SetDisplayID(screen.ParseDisplayName(selected))
	})
	displaySelect.SetSelected(names[0])

	// 2. Target Selector
	var labels []string
	for _, t := range cal.targets {
		labels = append(labels, t.label)
	}
	targetSelect := widget.NewSelect(labels, nil)
	targetSelect.SetSelectedIndex(0)

	summary := widget.NewLabel(cal.Summary())

	// 3. Action Buttons
	captureBtn := widget.NewButton("Capture & Select", func() {
		i := targetSelect.SelectedIndex()
		if i < 0 {
			return
		}
		img, err := searcher.CaptureScreen()
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		showCropperWindow(cal, cal.targets[i], img, searcher.DisplayBounds().Min, func() {
			summary.SetText(cal.Summary())
		})
	})
	captureBtn.Importance = widget.HighImportance

	openDirBtn := widget.NewButton("Open Data Folder", func() {
		if err := openDir(dataDir); err != nil {
			log.Error("Could not open %s: %v", dataDir, err)
		}
	})

	return container.NewVBox(
		widget.NewLabel("Screen:"),
		displaySelect,
		widget.NewLabel("Calibrate:"),
		targetSelect,
		captureBtn,
		widget.NewSeparator(),
		summary,
		widget.NewSeparator(),
		openDirBtn,
	)
}

func openDir(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("explorer", absPath)
	default:
		cmd = exec.Command("xdg-open", absPath)
	}
	return cmd.Start()
}

func showCropperWindow(cal *Calibration, t target, img image.Image, origin image.Point, onSaved func()) {
	w := fyne.CurrentApp().NewWindow("Calibrate: " + t.label)
	w.Resize(fyne.NewSize(800, 600))

	hint := "Drag a rectangle around the area..."
	if t.kind == pointTarget {
		hint = "Click the button (or drag a box around it)..."
	}
	lbl := widget.NewLabel(hint)
	lbl.Alignment = fyne.TextAlignCenter

	saveBtn := widget.NewButton("Save Selection", nil)
	saveBtn.Disable()

	var current image.Rectangle
	cropper := NewCropperWidget(img, func(rect image.Rectangle) {
		current = rect
		lbl.SetText(fmt.Sprintf("Selected: %v (click save)", rect.Add(origin)))
		saveBtn.Enable()
	})

	saveBtn.OnTapped = func() {
		if current.Empty() {
			return
		}
		value, err := cal.apply(t, img, current, origin)
		if err != nil {
			cal.log.Error("Calibration of %s failed: %v", t.label, err)
			dialog.ShowError(err, w)
			return
		}
		cal.log.Info("Calibrated %s: %s", t.label, value)
		onSaved()
		w.Close()
	}

	w.SetContent(container.NewBorder(
		nil,
		container.NewVBox(lbl, saveBtn),
		nil, nil,
		cropper,
	))
	w.Show()
}
