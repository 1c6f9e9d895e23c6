// Package progress turns raw job progress counters into something a
// human can read. It is a pure mapping over snapshots; it keeps no state.
package progress

import (
	"fmt"
	"math"

	"github.com/aimariscal90-maker/ink-v1/model"
)

// View is a display-ready reading of a job's progress.
type View struct {
	Percent int
	Label   string
}

// Interpret maps a status snapshot to a progress view. It returns nil when
// the snapshot carries no usable signal (progress_total absent or <= 0).
// It never fails: unknown stage names fall into the generic branch.
func Interpret(snap *model.Snapshot) *View {
	if snap == nil || snap.ProgressTotal <= 0 {
		return nil
	}

	total := snap.ProgressTotal
	current := snap.ProgressCurrent
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}

	percent := int(math.Round(100 * float64(current) / float64(total)))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	switch snap.ProgressStage {
	case model.StageImport:
		return &View{Percent: percent, Label: fmt.Sprintf("Importing %d/%d", current, total)}
	case model.StageOCR:
		return &View{Percent: percent, Label: fmt.Sprintf("OCR %d/%d", current, total)}
	case model.StageTranslate:
		return &View{Percent: percent, Label: fmt.Sprintf("Translating %d/%d", current, total)}
	case model.StageRender:
		return &View{Percent: percent, Label: fmt.Sprintf("Rendering %d/%d", current, total)}
	case model.StageExport:
		// Export has no meaningful sub-progress
		return &View{Percent: 100, Label: "Exporting…"}
	case model.StageCompleted:
		return &View{Percent: 100, Label: fmt.Sprintf("Completed %d/%d", total, total)}
	default:
		return &View{Percent: percent, Label: fmt.Sprintf("Processing %d/%d", current, total)}
	}
}
