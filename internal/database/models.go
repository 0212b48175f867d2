package database

import (
	"time"
)

// Acquisition is one finished Acquire call.
type Acquisition struct {
	ID             int64         `db:"id"`
	SessionID      string        `db:"session_id"`
	Prompt         string        `db:"prompt"`
	Reply          string        `db:"reply"`
	Outcome        string        `db:"outcome"`
	Cause          string        `db:"cause"`
	Attempts       int           `db:"attempts"`
	FallbackCycles int           `db:"fallback_cycles"`
	Location       string        `db:"location"`
	Duration       time.Duration `db:"duration_ms"`
	StartedAt      time.Time     `db:"started_at"`
}

// Event is a notable step inside an acquisition (submit, regenerate,
// fallback cycle).
type Event struct {
	ID            int64     `db:"id"`
	AcquisitionID int64     `db:"acquisition_id"`
	Kind          string    `db:"kind"`
	Attempt       int       `db:"attempt"`
	Cycle         int       `db:"cycle"`
	CreatedAt     time.Time `db:"created_at"`
}

// Stats summarises the history table.
type Stats struct {
	Total          int
	ByOutcome      map[string]int
	Regenerates    int
	FallbackCycles int
	LastStartedAt  *time.Time
}
