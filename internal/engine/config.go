package engine

import (
	"fmt"
	"time"
)

// Config holds every threshold the acquisition loop uses. Zero counts are
// replaced by defaults; zero durations are honoured so tests can run without
// sleeping.
type Config struct {
	// Completion detection
	PollInterval    time.Duration
	MaxPolls        int
	StablePolls     int
	MarkerMinLength int
	StableMinLength int
	SettleDelay     time.Duration

	// Retry
	RetryCeiling   int
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	TimeoutRetries int
	SubmitRetries  int

	// Fallback
	FallbackMessage   string
	MaxFallbackCycles int
	FallbackMinLength int
	EchoPrefixLength  int
	TrivialResponses  []string
	TrivialWholeWord  bool

	// Heuristics
	RegenerateKeywords   []string
	GeneratingIndicators []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    time.Second,
		MaxPolls:        60,
		StablePolls:     3,
		MarkerMinLength: 100,
		StableMinLength: 0,
		SettleDelay:     2 * time.Second,

		RetryCeiling:   5,
		BackoffMin:     time.Second,
		BackoffMax:     5 * time.Second,
		TimeoutRetries: 1,
		SubmitRetries:  2,

		MaxFallbackCycles: 20,
		FallbackMinLength: 100,
		EchoPrefixLength:  20,
		TrivialResponses:  DefaultTrivialResponses,

		RegenerateKeywords:   DefaultRegenerateKeywords,
		GeneratingIndicators: DefaultGeneratingIndicators,
	}
}

// Validate rejects settings the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.PollInterval < 0, c.SettleDelay < 0, c.BackoffMin < 0:
		return fmt.Errorf("durations must not be negative")
	case c.BackoffMax < c.BackoffMin:
		return fmt.Errorf("backoff max %s is below backoff min %s", c.BackoffMax, c.BackoffMin)
	case c.MaxPolls < 0, c.StablePolls < 0, c.RetryCeiling < 0, c.MaxFallbackCycles < 0:
		return fmt.Errorf("counts must not be negative")
	case c.TimeoutRetries < 0, c.SubmitRetries < 0:
		return fmt.Errorf("retry counts must not be negative")
	case c.MarkerMinLength < 0, c.StableMinLength < 0, c.FallbackMinLength < 0, c.EchoPrefixLength < 0:
		return fmt.Errorf("length thresholds must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPolls <= 0 {
		c.MaxPolls = d.MaxPolls
	}
	if c.StablePolls <= 0 {
		c.StablePolls = d.StablePolls
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = d.RetryCeiling
	}
	if c.MaxFallbackCycles <= 0 {
		c.MaxFallbackCycles = d.MaxFallbackCycles
	}
	if c.EchoPrefixLength <= 0 {
		c.EchoPrefixLength = d.EchoPrefixLength
	}
	if c.TrivialResponses == nil {
		c.TrivialResponses = d.TrivialResponses
	}
	if c.RegenerateKeywords == nil {
		c.RegenerateKeywords = d.RegenerateKeywords
	}
	if c.GeneratingIndicators == nil {
		c.GeneratingIndicators = d.GeneratingIndicators
	}
	return c
}
