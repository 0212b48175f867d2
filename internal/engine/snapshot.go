package engine

import (
	"context"

	"github.com/lance13c/replyctl/internal/logging"
)

// NewBaseline summarises a turn list. An empty list yields zero counts.
func NewBaseline(turns []Turn) Baseline {
	b := Baseline{TurnIDs: make(map[int64]struct{}, len(turns))}
	for _, t := range turns {
		b.TurnIDs[t.ID] = struct{}{}
		if t.HasActionMarker {
			b.ActionMarkerCount++
		}
	}
	b.TurnCount = len(b.TurnIDs)
	return b
}

// Snapshot records the page state right before a submission. Adapter
// failures are logged and produce an empty baseline.
func (e *Engine) Snapshot(ctx context.Context) Baseline {
	turns, err := e.adapter.ListTurns(ctx)
	if err != nil {
		logging.Warn("baseline snapshot failed, assuming empty page: %v", err)
		return NewBaseline(nil)
	}
	b := NewBaseline(turns)
	signal, err := e.adapter.DetectRegenerateSignal(ctx)
	if err != nil {
		logging.Debug("baseline regenerate probe failed: %v", err)
	}
	b.RegenerateSignal = err == nil && signal
	logging.Debug("baseline: %d turns, %d action markers, regenerate signal %v",
		b.TurnCount, b.ActionMarkerCount, b.RegenerateSignal)
	return b
}
