package database

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lance13c/replyctl/internal/engine"
	"github.com/lance13c/replyctl/internal/logging"
)

// Recorder stores finished acquisitions. Its Observe method is meant to be
// registered as an engine observer.
type Recorder struct {
	db *DB

	mu      sync.Mutex
	pending map[uuid.UUID][]Event
}

// NewRecorder returns a Recorder writing to db.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db, pending: make(map[uuid.UUID][]Event)}
}

// Observe buffers notable events and saves the acquisition when it is done.
// Polling events are not stored.
func (r *Recorder) Observe(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case engine.EventSubmitted, engine.EventRegenerate, engine.EventFallback:
		r.pending[ev.SessionID] = append(r.pending[ev.SessionID], Event{
			Kind:      ev.Kind.String(),
			Attempt:   ev.Attempt,
			Cycle:     ev.Cycle,
			CreatedAt: time.Now(),
		})

	case engine.EventDone:
		events := r.pending[ev.SessionID]
		delete(r.pending, ev.SessionID)
		if ev.Outcome == nil {
			return
		}
		if _, err := r.db.SaveAcquisition(FromOutcome(*ev.Outcome), events); err != nil {
			logging.Error("failed to record acquisition %s: %v", ev.SessionID, err)
		}
	}
}

// FromOutcome converts an engine outcome into a history row.
func FromOutcome(o engine.Outcome) *Acquisition {
	a := &Acquisition{
		SessionID:      o.SessionID.String(),
		Prompt:         o.Prompt,
		Reply:          o.Text,
		Outcome:        o.Kind.String(),
		Attempts:       o.Attempts,
		FallbackCycles: o.FallbackCycles,
		Location:       o.Location,
		Duration:       o.Duration,
		StartedAt:      time.Now().Add(-o.Duration),
	}
	if o.Degraded() {
		a.Outcome = "fallback_degraded"
	}
	if o.Kind != engine.Success {
		a.Cause = o.Cause.String()
	}
	return a
}
