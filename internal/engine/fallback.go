package engine

import (
	"context"

	"github.com/lance13c/replyctl/internal/logging"
)

// acceptFallback applies the stricter acceptance policy for replies to the
// fallback message. It returns the rejection reason, or "" when accepted.
func (e *Engine) acceptFallback(text string) string {
	switch {
	case EchoesPrompt(text, e.cfg.FallbackMessage, e.cfg.EchoPrefixLength):
		return "echoes the fallback message"
	case HasRegenerateSignal(text, e.cfg.RegenerateKeywords):
		return "carries an error notice"
	case !LongEnough(text, e.cfg.FallbackMinLength):
		return "too short"
	case IsTrivialResponse(text, e.cfg.TrivialResponses, e.cfg.TrivialWholeWord):
		return "trivial response"
	}
	return ""
}

// runFallback submits the fallback message for up to MaxFallbackCycles full
// cycles. When every cycle fails the outcome text is the fallback message
// itself. A cycle that cannot submit ends the loop with no text.
func (e *Engine) runFallback(ctx context.Context, sess *Session, out *Outcome) error {
	msg := e.cfg.FallbackMessage

	for cycle := 1; cycle <= e.cfg.MaxFallbackCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess.PromptText = msg
		sess.FallbackCycle = cycle
		sess.AttemptCount = 0
		out.FallbackCycles = cycle

		metricFallbackCycles.Inc()
		logging.Info("fallback cycle %d/%d", cycle, e.cfg.MaxFallbackCycles)
		e.emit(Event{Kind: EventFallback, SessionID: sess.ID, Cycle: cycle})

		res := e.runCycle(ctx, sess)
		out.Attempts += sess.AttemptCount
		if res.err != nil {
			return res.err
		}

		if res.kind == SendFailed {
			out.Cause = SendFailed
			out.Kind = RegenerateExhausted
			logging.Error("fallback cycle %d could not submit, giving up", cycle)
			return nil
		}

		if res.kind != Success {
			out.Cause = res.kind
			logging.Warn("fallback cycle %d ended in %s", cycle, res.kind)
			continue
		}

		if reason := e.acceptFallback(res.text); reason != "" {
			out.Cause = RegenerateExhausted
			logging.Warn("fallback cycle %d rejected: %s %s", cycle, reason, logging.Mask(res.text))
			continue
		}

		out.Kind = Success
		out.Text = res.text
		return nil
	}

	logging.Error("%v: %d fallback cycles failed, returning the fallback message", ErrRegenerateExhausted, e.cfg.MaxFallbackCycles)
	out.Kind = RegenerateExhausted
	out.Text = msg
	return nil
}
