package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pyheal/internal/logging"
)

// Session tracks the repair history of one file. Each session owns its own
// controller, so sessions for different files never share parser state and
// may run on separate goroutines.
type Session struct {
	ID        uuid.UUID
	Filename  string
	StartedAt time.Time

	ctrl    *Controller
	code    string
	records []CycleRecord
}

// NewSession starts a session over the given text. Filename is a label for
// diagnostics and history; the session never touches the filesystem.
func NewSession(filename, code string, opts Options) *Session {
	s := &Session{
		ID:        uuid.New(),
		Filename:  filename,
		StartedAt: time.Now(),
		ctrl:      NewController(opts),
		code:      code,
	}
	logging.SessionDebug("session %s started for %s", s.ID, filename)
	return s
}

// Code returns the current text, reflecting every cycle run so far.
func (s *Session) Code() string {
	return s.code
}

// Records returns a copy of the cycle history in run order.
func (s *Session) Records() []CycleRecord {
	out := make([]CycleRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Latest returns the most recent cycle record, or false when no cycle has
// run yet.
func (s *Session) Latest() (CycleRecord, bool) {
	if len(s.records) == 0 {
		return CycleRecord{}, false
	}
	return s.records[len(s.records)-1], true
}

// Stable reports whether the last cycle reached a fixed point. A fresh
// session is not stable; it has not been examined yet.
func (s *Session) Stable() bool {
	last, ok := s.Latest()
	return ok && s.ctrl.IsStable(last)
}

// RunCycle runs one repair cycle over the session's current text and
// appends its record. The session advances to the cycle's After snapshot.
func (s *Session) RunCycle() (CycleRecord, error) {
	rec, err := s.ctrl.RunCycle(s.code)
	if err != nil {
		return rec, fmt.Errorf("session %s cycle %d: %w", s.ID, len(s.records)+1, err)
	}
	rec.Index = len(s.records) + 1
	s.code = rec.After
	s.records = append(s.records, rec)
	return rec, nil
}

// Heal runs up to maxCycles cycles, stopping early once a cycle is stable.
// It returns the records of the cycles it ran.
func (s *Session) Heal(maxCycles int) ([]CycleRecord, error) {
	if maxCycles < 1 {
		maxCycles = 1
	}
	start := len(s.records)
	for i := 0; i < maxCycles; i++ {
		rec, err := s.RunCycle()
		if err != nil {
			return s.records[start:], err
		}
		if rec.Stable {
			logging.SessionDebug("session %s stable after cycle %d", s.ID, rec.Index)
			break
		}
	}
	return s.records[start:], nil
}
