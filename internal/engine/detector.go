package engine

import (
	"context"
	"fmt"

	"github.com/lance13c/replyctl/internal/logging"
	"github.com/lance13c/replyctl/internal/sanitize"
)

// Classification is the detector's verdict on the page.
type Classification int

const (
	Generating Classification = iota
	StableCandidate
	ErrorSignal
	TimedOut
)

func (c Classification) String() string {
	switch c {
	case Generating:
		return "generating"
	case StableCandidate:
		return "stable"
	case ErrorSignal:
		return "error"
	case TimedOut:
		return "timeout"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Sample is one observation of the page.
type Sample struct {
	Turns            []Turn
	RegenerateSignal bool
	Err              error
}

// Detection is the result of classifying one sample, or of a whole
// detector pass.
type Detection struct {
	Class  Classification
	Text   string
	TurnID int64
	Polls  int
}

// detector classifies a stream of samples for one prompt. It keeps the
// stability window between samples and nothing else.
type detector struct {
	cfg       Config
	sanitizer *sanitize.Sanitizer
	baseline  Baseline
	prompt    string

	lastID      int64
	lastText    string
	stableCount int
}

func newDetector(cfg Config, s *sanitize.Sanitizer, sess *Session) *detector {
	return &detector{
		cfg:       cfg,
		sanitizer: s,
		baseline:  sess.Baseline,
		prompt:    sess.PromptText,
	}
}

// eligible drops turns that were already on the page and echoes of the prompt.
func (d *detector) eligible(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if d.baseline.Contains(t.ID) {
			continue
		}
		if IsPromptEcho(t.Text, d.prompt) || IsPromptEcho(d.sanitizer.Sanitize(t.Text), d.prompt) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// pick prefers finished turns, then the latest id.
func pick(candidates []Turn) (Turn, bool) {
	var best Turn
	found := false
	for _, t := range candidates {
		if !found {
			best, found = t, true
			continue
		}
		if best.IsGenerating != t.IsGenerating {
			if !t.IsGenerating {
				best = t
			}
			continue
		}
		if t.ID > best.ID {
			best = t
		}
	}
	return best, found
}

func countMarkers(turns []Turn) int {
	n := 0
	for _, t := range turns {
		if t.HasActionMarker {
			n++
		}
	}
	return n
}

func (d *detector) classify(s Sample) Detection {
	if s.Err != nil {
		return Detection{Class: Generating}
	}

	// A regenerate affordance already visible before submission belongs to
	// an earlier turn.
	pageSignal := s.RegenerateSignal && !d.baseline.RegenerateSignal

	candidate, ok := pick(d.eligible(s.Turns))
	if !ok {
		if pageSignal {
			return Detection{Class: ErrorSignal}
		}
		return Detection{Class: Generating}
	}

	if pageSignal || HasRegenerateSignal(candidate.Text, d.cfg.RegenerateKeywords) {
		return Detection{Class: ErrorSignal, TurnID: candidate.ID}
	}

	clean := d.sanitizer.Sanitize(candidate.Text)

	if candidate.HasActionMarker &&
		countMarkers(s.Turns) > d.baseline.ActionMarkerCount &&
		LongEnough(clean, d.cfg.MarkerMinLength) {
		return Detection{Class: StableCandidate, Text: clean, TurnID: candidate.ID}
	}

	if candidate.ID == d.lastID && candidate.Text == d.lastText {
		d.stableCount++
	} else {
		d.lastID, d.lastText, d.stableCount = candidate.ID, candidate.Text, 1
	}

	if d.stableCount >= d.cfg.StablePolls &&
		!candidate.IsGenerating &&
		!IsGeneratingPlaceholder(candidate.Text, d.cfg.GeneratingIndicators) &&
		LongEnough(clean, d.cfg.StableMinLength) {
		return Detection{Class: StableCandidate, Text: clean, TurnID: candidate.ID}
	}

	return Detection{Class: Generating, TurnID: candidate.ID}
}

// sample reads the page once. A failed turn listing becomes a failed sample;
// a failed probe is read as "no signal".
func (e *Engine) sample(ctx context.Context) Sample {
	turns, err := e.adapter.ListTurns(ctx)
	if err != nil {
		metricFailedSamples.Inc()
		logging.Debug("sample failed: %v", err)
		return Sample{Err: err}
	}

	signal, err := e.adapter.DetectRegenerateSignal(ctx)
	if err != nil {
		logging.Debug("regenerate probe failed: %v", err)
		signal = false
	}
	return Sample{Turns: turns, RegenerateSignal: signal}
}

// detect polls until the page resolves or MaxPolls samples were taken. It
// only returns an error when ctx is done.
func (e *Engine) detect(ctx context.Context, sess *Session) (Detection, error) {
	d := newDetector(e.cfg, e.sanitizer, sess)

	for poll := 1; poll <= e.cfg.MaxPolls; poll++ {
		if err := ctx.Err(); err != nil {
			return Detection{Polls: poll - 1}, err
		}

		metricPolls.Inc()
		det := d.classify(e.sample(ctx))
		det.Polls = poll

		e.emit(Event{Kind: EventPolling, SessionID: sess.ID, Poll: poll, Attempt: sess.AttemptCount, Cycle: sess.FallbackCycle})

		if det.Class != Generating {
			logging.Debug("poll %d/%d: %s (turn %d)", poll, e.cfg.MaxPolls, det.Class, det.TurnID)
			return det, nil
		}

		if poll < e.cfg.MaxPolls {
			if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
				return Detection{Polls: poll}, err
			}
		}
	}

	logging.Warn("no reply after %d polls", e.cfg.MaxPolls)
	return Detection{Class: TimedOut, Polls: e.cfg.MaxPolls}, nil
}
