package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"

	"github.com/ConserveLee/immortals-bot/app/panels"
	"github.com/ConserveLee/immortals-bot/app/tools"
	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine"
	"github.com/ConserveLee/immortals-bot/internal/engine/input"
	"github.com/ConserveLee/immortals-bot/internal/engine/screen"
	"github.com/ConserveLee/immortals-bot/internal/history"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

func main() {
	dataDir := config.DataDir()

	// --- Preferences & Logging ---
	prefs, prefsErr := config.LoadPreferences(filepath.Join(dataDir, config.PreferencesFile))

	var extra []io.Writer
	if prefs.LogToFile {
		f, err := os.OpenFile(filepath.Join(dataDir, config.ActivityLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer f.Close()
			extra = append(extra, f)
		}
	}
	queue := logger.NewQueue(constants.LogQueueSize)
	appLogger := logger.NewAppLogger("app", queue, logger.NewSink(extra...))
	appLogger.SetQueueLevel(logger.ParseLevel(prefs.LogLevel))
	if prefsErr != nil {
		appLogger.Warn("Using default preferences: %v", prefsErr)
	}

	// --- Run History ---
	store, err := history.Open(filepath.Join(dataDir, config.HistoryFile))
	if err != nil {
		appLogger.Error("Run history disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	// --- Window ---
	myApp := app.New()
	myWindow := myApp.NewWindow("Immortals Bot")
	myWindow.Resize(fyne.NewSize(560, 720))

	searcher := screen.NewSearcher()
	searcher.SetDisplayID(prefs.Display)

	runner := engine.NewRunner()
	env := panels.NewEnv(myWindow, runner, queue, appLogger)
	env.Searcher = searcher
	env.Pointer = input.NewRobot()
	env.History = store
	env.DataDir = dataDir
	env.Prefs = prefs

	tabs := container.NewAppTabs(
		container.NewTabItem("Forage", panels.NewForagePanel(env)),
		container.NewTabItem("Reincarnation", panels.NewReincarnationPanel(env)),
		container.NewTabItem("Calibration", tools.NewCalibrationPanel(myWindow, dataDir, prefs.TemplatePath, appLogger.With("calibration"))),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	logView := panels.NewLogView(queue, myWindow)
	split := container.NewVSplit(tabs, logView.Widget())
	split.Offset = 0.55
	myWindow.SetContent(container.NewBorder(env.StatusLabel(), nil, nil, nil, split))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go logView.Poll(ctx)

	myWindow.SetOnClosed(func() {
		runner.Stop()
	})

	appLogger.Info("Data folder: %s", dataDir)
	myWindow.ShowAndRun()
}
