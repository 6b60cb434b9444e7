package reincarnation

import (
	"errors"
	"fmt"

	"github.com/ConserveLee/immortals-bot/internal/config"
)

// ErrUnreadableBloodline means the bloodline OCR returned nothing usable
var ErrUnreadableBloodline = errors.New("bloodline OCR returned empty or invalid string")

// Decision is the outcome of checking a reading against the stop conditions
type Decision struct {
	Stop     bool
	Rank     int    // -1 when unlisted
	Unlisted bool   // a readable name missing from the ranking
	Reason   string // log line for the stop
	Popup    string // success notification, empty when popups are off
}

// Evaluate applies the stop conditions. Rank and qi rules only apply to
// listed bloodlines; an unlisted one stops the run when StopOnNew is set.
func Evaluate(r Reading, ranking Ranking, s config.ReincarnationSettings) (Decision, error) {
	if r.Unreadable() {
		return Decision{Rank: -1}, ErrUnreadableBloodline
	}

	d := Decision{Rank: ranking.Index(r.Key)}
	if d.Rank < 0 {
		d.Unlisted = true
		if s.StopOnNew {
			d.Stop = true
			d.Reason = fmt.Sprintf("STOPPING: Found new or unlisted bloodline: '%s'", r.Bloodline)
			d.popup(s, "Found New Bloodline: %s", r.Bloodline)
		}
		return d, nil
	}

	if s.StopOnBloodline && d.Rank <= s.TargetBloodlineIndex {
		found := ranking.Name(d.Rank)
		d.Stop = true
		d.Reason = fmt.Sprintf("STOPPING: Found %s (Rank %d), which is >= target %s (Rank %d).",
			found, d.Rank, ranking.Name(s.TargetBloodlineIndex), s.TargetBloodlineIndex)
		d.popup(s, "Found Bloodline: %s (Rank %d)", found, d.Rank)
		return d, nil
	}

	if s.StopOnQi && r.Qi >= s.TargetQiMulti {
		d.Stop = true
		d.Reason = fmt.Sprintf("STOPPING: Found Qi Multi %g, which is >= target %g.", r.Qi, s.TargetQiMulti)
		d.popup(s, "Found Qi Multi: %g", r.Qi)
	}
	return d, nil
}

func (d *Decision) popup(s config.ReincarnationSettings, format string, args ...interface{}) {
	if s.ShowSuccessPopup {
		d.Popup = fmt.Sprintf(format, args...)
	}
}
