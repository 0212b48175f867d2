package engine

import (
	"errors"
	"fmt"
)

var (
	ErrSendFailed          = errors.New("prompt could not be submitted")
	ErrRegenerateDetected  = errors.New("remote ui signalled a failed reply")
	ErrRegenerateExhausted = errors.New("regenerate retries exhausted")
	ErrSessionActive       = errors.New("an acquisition is already running on this session")
)

// Err returns nil on Success and wraps ErrRegenerateExhausted otherwise,
// naming the cause when it differs. A degraded outcome still carries the
// fallback text in o.Text.
func (o Outcome) Err() error {
	if o.Kind == Success {
		return nil
	}
	if o.Cause != Success && o.Cause != RegenerateExhausted {
		return fmt.Errorf("%w (last failure: %s)", ErrRegenerateExhausted, o.Cause)
	}
	return ErrRegenerateExhausted
}
