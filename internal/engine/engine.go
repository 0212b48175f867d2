// Package engine acquires a finished reply from a remote chat UI. It submits a
// prompt, polls the page until the reply settles or fails, acknowledges
// regenerate errors with randomized backoff, and falls back to a substitute
// message when retries run out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lance13c/replyctl/internal/logging"
	"github.com/lance13c/replyctl/internal/sanitize"
)

// EventKind identifies a status event.
type EventKind int

const (
	EventSubmitted EventKind = iota
	EventPolling
	EventRegenerate
	EventFallback
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventSubmitted:
		return "submitted"
	case EventPolling:
		return "polling"
	case EventRegenerate:
		return "regenerate"
	case EventFallback:
		return "fallback"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is a progress notification for front ends.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID
	Poll      int
	Attempt   int
	Cycle     int
	// Outcome is set on EventDone unless the acquisition was cancelled.
	Outcome *Outcome
}

// Describe renders the event as a short status line.
func (ev Event) Describe() string {
	switch ev.Kind {
	case EventSubmitted:
		if ev.Cycle > 0 {
			return fmt.Sprintf("fallback message sent (cycle %d)", ev.Cycle)
		}
		return "prompt sent"
	case EventPolling:
		return fmt.Sprintf("waiting for reply (poll %d)", ev.Poll)
	case EventRegenerate:
		return fmt.Sprintf("regenerate requested (attempt %d)", ev.Attempt)
	case EventFallback:
		return fmt.Sprintf("starting fallback cycle %d", ev.Cycle)
	case EventDone:
		if ev.Outcome != nil {
			return "done: " + ev.Outcome.Kind.String()
		}
		return "done"
	}
	return ev.Kind.String()
}

// Observer receives status events synchronously on the acquiring goroutine.
type Observer func(Event)

// Observers fans one event out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	return func(ev Event) {
		for _, o := range obs {
			if o != nil {
				o(ev)
			}
		}
	}
}

// Engine runs acquisitions against a single browser session. Only one
// acquisition may be active at a time.
type Engine struct {
	adapter   UIAdapter
	sink      ResultSink
	sanitizer *sanitize.Sanitizer
	cfg       Config
	observer  Observer
	sleep     func(context.Context, time.Duration) error

	randMu sync.Mutex
	rand   *rand.Rand

	busy atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink persists every outcome that carries text.
func WithSink(s ResultSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(e *Engine) {
		if s != nil {
			e.sanitizer = s
		}
	}
}

// WithObserver registers a status callback.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRandSource makes backoff durations reproducible.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rand = rand.New(src) }
}

// WithSleep replaces the cancellable sleep used between polls and backoffs.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// New creates an Engine. Zero counts in cfg fall back to defaults.
func New(adapter UIAdapter, cfg Config, opts ...Option) (*Engine, error) {
	if adapter == nil {
		return nil, errors.New("engine needs a ui adapter")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid acquisition config: %w", err)
	}

	e := &Engine{
		adapter:   adapter,
		sanitizer: sanitize.New(),
		cfg:       cfg.withDefaults(),
		sleep:     sleep,
		rand:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Busy reports whether an acquisition is running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// Acquire submits prompt and returns the final reply. Failures inside the
// loop are reported through Outcome.Kind; the returned error is only set
// when another acquisition is running, the prompt is empty, or ctx is done.
func (e *Engine) Acquire(ctx context.Context, prompt string) (Outcome, error) {
	if strings.TrimSpace(prompt) == "" {
		return Outcome{}, errors.New("prompt is empty")
	}
	if !e.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrSessionActive
	}
	defer e.busy.Store(false)

	sess := newSession(prompt)
	out := Outcome{SessionID: sess.ID, Prompt: prompt}
	logging.Info("acquisition %s started: %s", sess.ID, logging.Mask(prompt))

	err := e.acquire(ctx, sess, &out)
	out.Duration = time.Since(sess.StartedAt)
	if err != nil {
		logging.Warn("acquisition %s stopped: %v", sess.ID, err)
		e.emit(Event{Kind: EventDone, SessionID: sess.ID, Attempt: out.Attempts, Cycle: out.FallbackCycles})
		return out, err
	}

	recordOutcome(out)
	e.persist(ctx, prompt, &out)

	logging.Info("acquisition %s finished: %s after %d attempts, %d fallback cycles, %s",
		sess.ID, out.Kind, out.Attempts, out.FallbackCycles, logging.Mask(out.Text))
	e.emit(Event{Kind: EventDone, SessionID: sess.ID, Attempt: out.Attempts, Cycle: out.FallbackCycles, Outcome: &out})
	return out, nil
}

func (e *Engine) acquire(ctx context.Context, sess *Session, out *Outcome) error {
	res := e.runCycle(ctx, sess)
	out.Attempts = sess.AttemptCount
	if res.err != nil {
		return res.err
	}

	if res.kind == Success {
		out.Kind = Success
		out.Text = res.text
		return nil
	}

	out.Cause = res.kind
	out.Kind = RegenerateExhausted
	if strings.TrimSpace(e.cfg.FallbackMessage) == "" {
		return nil
	}
	if res.kind == SendFailed {
		logging.Warn("prompt was never sent, skipping the fallback message")
		return nil
	}

	logging.Warn("primary prompt ended in %s, switching to the fallback message", res.kind)
	return e.runFallback(ctx, sess, out)
}

// persist hands the text to the sink. Failures are logged and not retried.
func (e *Engine) persist(ctx context.Context, prompt string, out *Outcome) {
	if e.sink == nil || out.Text == "" {
		return
	}
	loc, err := e.sink.Persist(ctx, prompt, out.Text)
	if err != nil {
		logging.Error("failed to persist reply: %v", err)
		return
	}
	out.Location = loc
}
