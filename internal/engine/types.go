package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one reply unit as surfaced by the remote chat UI. IDs are assigned
// by the UI and only ever grow.
type Turn struct {
	ID              int64
	Text            string
	IsGenerating    bool
	HasActionMarker bool
}

// UIAdapter is the set of primitive browser interactions the engine drives.
// Implementations need not be safe for concurrent use.
type UIAdapter interface {
	// Submit enters text and triggers sending. It reports false when no
	// input surface or trigger could be engaged.
	Submit(ctx context.Context, text string) (bool, error)
	// ListTurns returns the reply turns currently on the page. It may be empty.
	ListTurns(ctx context.Context) ([]Turn, error)
	// AcknowledgeRegenerate performs whatever interaction clears an error state.
	AcknowledgeRegenerate(ctx context.Context) (bool, error)
	// DetectRegenerateSignal reports whether a regenerate affordance is visible.
	DetectRegenerateSignal(ctx context.Context) (bool, error)
}

// ResultSink persists a final reply next to the prompt that produced it and
// returns a handle describing where it went.
type ResultSink interface {
	Persist(ctx context.Context, prompt, final string) (string, error)
}

// Baseline is the page state recorded right before a submission.
type Baseline struct {
	TurnIDs           map[int64]struct{}
	TurnCount         int
	ActionMarkerCount int
	// RegenerateSignal is the page-wide probe result before submission.
	RegenerateSignal bool
}

// Contains reports whether id was already on the page before submission.
func (b Baseline) Contains(id int64) bool {
	_, ok := b.TurnIDs[id]
	return ok
}

// Session holds the mutable state of one submit and acquire cycle. The
// fallback controller swaps PromptText and bumps FallbackCycle.
type Session struct {
	ID            uuid.UUID
	PromptText    string
	Baseline      Baseline
	StartedAt     time.Time
	AttemptCount  int
	FallbackCycle int
}

func newSession(prompt string) *Session {
	return &Session{
		ID:         uuid.New(),
		PromptText: prompt,
		StartedAt:  time.Now(),
	}
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	RegenerateExhausted
	SendFailed
	Timeout
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case RegenerateExhausted:
		return "regenerate_exhausted"
	case SendFailed:
		return "send_failed"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the single result of an acquisition. Kind is always Success or
// RegenerateExhausted; Cause keeps the internal kind behind a failure.
type Outcome struct {
	SessionID uuid.UUID
	Prompt    string
	Kind      OutcomeKind
	// Text is the sanitized reply on Success, or the fallback message when
	// every fallback cycle failed.
	Text string
	// Cause keeps the internal classification that led to a failure.
	Cause          OutcomeKind
	Attempts       int
	FallbackCycles int
	Location       string
	Duration       time.Duration
}

// OK reports whether the reply was actually acquired.
func (o Outcome) OK() bool {
	return o.Kind == Success
}

// Degraded reports whether Text is the fallback message rather than a reply.
func (o Outcome) Degraded() bool {
	return o.Kind == RegenerateExhausted && o.Text != ""
}
