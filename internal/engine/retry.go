package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lance13c/replyctl/internal/logging"
)

// cycleResult is how one submit and acquire cycle ended. err is only set when
// the context was cancelled.
type cycleResult struct {
	kind OutcomeKind
	text string
	err  error
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff picks a uniformly random wait in [BackoffMin, BackoffMax].
func (e *Engine) backoff() time.Duration {
	lo, hi := e.cfg.BackoffMin, e.cfg.BackoffMax
	if hi <= lo {
		return lo
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return lo + time.Duration(e.rand.Int64N(int64(hi-lo)+1))
}

// submit hands text to the adapter, retrying SubmitRetries times.
func (e *Engine) submit(ctx context.Context, sess *Session) error {
	tries := e.cfg.SubmitRetries + 1
	for i := 1; i <= tries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := e.adapter.Submit(ctx, sess.PromptText)
		if err == nil && ok {
			logging.Info("submitted %s (session %s)", logging.Mask(sess.PromptText), sess.ID)
			e.emit(Event{Kind: EventSubmitted, SessionID: sess.ID, Cycle: sess.FallbackCycle})
			return e.sleep(ctx, e.cfg.SettleDelay)
		}
		logging.Warn("submit attempt %d/%d failed (ok=%v): %v", i, tries, ok, err)

		if i < tries {
			if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrSendFailed, tries)
}

// runCycle snapshots, submits sess.PromptText and polls for a reply,
// acknowledging regenerate errors until RetryCeiling is reached.
func (e *Engine) runCycle(ctx context.Context, sess *Session) cycleResult {
	sess.Baseline = e.Snapshot(ctx)

	if err := e.submit(ctx, sess); err != nil {
		if ctx.Err() != nil {
			return cycleResult{kind: SendFailed, err: ctx.Err()}
		}
		logging.Error("%v", err)
		return cycleResult{kind: SendFailed}
	}

	timeouts := 0
	for {
		det, err := e.detect(ctx, sess)
		if err != nil {
			return cycleResult{kind: Timeout, err: err}
		}

		switch det.Class {
		case StableCandidate:
			return cycleResult{kind: Success, text: det.Text}

		case ErrorSignal:
			sess.AttemptCount++
			logging.Warn("%v: attempt %d/%d (session %s)", ErrRegenerateDetected, sess.AttemptCount, e.cfg.RetryCeiling, sess.ID)
			e.emit(Event{Kind: EventRegenerate, SessionID: sess.ID, Attempt: sess.AttemptCount, Cycle: sess.FallbackCycle})

			if err := e.sleep(ctx, e.backoff()); err != nil {
				return cycleResult{kind: RegenerateExhausted, err: err}
			}
			if err := e.acknowledge(ctx); err != nil {
				return cycleResult{kind: RegenerateExhausted, err: err}
			}
			if sess.AttemptCount >= e.cfg.RetryCeiling {
				logging.Warn("%v after %d attempts", ErrRegenerateExhausted, sess.AttemptCount)
				return cycleResult{kind: RegenerateExhausted}
			}
			if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
				return cycleResult{kind: RegenerateExhausted, err: err}
			}

		case TimedOut:
			if timeouts >= e.cfg.TimeoutRetries {
				return cycleResult{kind: Timeout}
			}
			timeouts++
			logging.Info("re-polling after timeout (%d/%d)", timeouts, e.cfg.TimeoutRetries)
		}
	}
}

// acknowledge clicks the regenerate affordance. A failed click is logged and
// polling continues; only cancellation is returned.
func (e *Engine) acknowledge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metricRegenerateAcks.Inc()
	ok, err := e.adapter.AcknowledgeRegenerate(ctx)
	if err != nil || !ok {
		logging.Warn("regenerate acknowledgment failed (ok=%v): %v", ok, err)
	}
	return nil
}
