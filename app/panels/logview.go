package panels

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// LogView renders the log queue. Bots never touch widgets; the view drains
// the queue on a fixed tick instead.
type LogView struct {
	data  binding.StringList
	list  *widget.List
	queue *logger.Queue
	win   fyne.Window
}

// NewLogView creates the list widget bound to the drained log lines
func NewLogView(queue *logger.Queue, win fyne.Window) *LogView {
	v := &LogView{
		data:  binding.NewStringList(),
		queue: queue,
		win:   win,
	}
	v.list = widget.NewListWithData(
		v.data,
		func() fyne.CanvasObject { return widget.NewLabel("Log entry template") },
		func(i binding.DataItem, o fyne.CanvasObject) { o.(*widget.Label).Bind(i.(binding.String)) },
	)
	return v
}

// Widget returns the list to place in a layout
func (v *LogView) Widget() fyne.CanvasObject {
	return v.list
}

// Poll drains the queue every LogPollInterval until ctx is done
func (v *LogView) Poll(ctx context.Context) {
	ticker := time.NewTicker(constants.LogPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := v.queue.Drain()
			if len(events) == 0 {
				continue
			}
			fyne.Do(func() { v.apply(events) })
		}
	}
}

// apply appends events to the view and pops success notifications. UI goroutine only.
func (v *LogView) apply(events []logger.Event) {
	lines, _ := v.data.Get()
	for _, e := range events {
		lines = append(lines, e.Format())
		if e.Level == logger.LevelSuccess {
			dialog.ShowInformation("Success!", e.Message, v.win)
		}
	}
	if over := len(lines) - constants.LogViewLimit; over > 0 {
		lines = lines[over:]
	}
	v.data.Set(lines)
	v.list.ScrollToBottom()
}
