package store

import (
	"path/filepath"
	"testing"
	"time"

	"pyheal/internal/engine"
	"pyheal/internal/scan"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(index, before, after int, stable bool) engine.CycleRecord {
	return engine.CycleRecord{
		Index:         index,
		DefectsBefore: make([]scan.Defect, before),
		DefectsAfter:  make([]scan.Defect, after),
		WeightBefore:  float64(before) * 0.5,
		WeightAfter:   float64(after) * 0.5,
		FixesPlanned:  before,
		FixesApplied:  before - after,
		Duration:      42 * time.Millisecond,
		Stable:        stable,
	}
}

func TestSaveAndQueryCycles(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveSession("sess-1", "demo.py", time.Now()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveCycle("sess-1", sampleRecord(1, 4, 1, false)); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
	if err := s.SaveCycle("sess-1", sampleRecord(2, 1, 0, true)); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}

	cycles, err := s.Cycles("sess-1")
	if err != nil {
		t.Fatalf("Cycles: %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("got %d cycles, want 2", len(cycles))
	}
	first := cycles[0]
	if first.Index != 1 || first.DefectsBefore != 4 || first.DefectsAfter != 1 {
		t.Errorf("first cycle = %+v", first)
	}
	if first.Duration != 42*time.Millisecond {
		t.Errorf("duration = %v", first.Duration)
	}
	if !cycles[1].Stable {
		t.Errorf("second cycle not stable")
	}
}

func TestSaveSessionIdempotent(t *testing.T) {
	s := openTestStore(t)
	started := time.Now()
	if err := s.SaveSession("sess-1", "demo.py", started); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveSession("sess-1", "demo.py", started); err != nil {
		t.Fatalf("second SaveSession: %v", err)
	}

	sessions, err := s.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions, want 1", len(sessions))
	}
}

func TestRecentSessionsAggregates(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveSession("sess-1", "a.py", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveSession("sess-2", "b.py", time.Now()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveCycle("sess-1", sampleRecord(1, 3, 1, false)); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}
	if err := s.SaveCycle("sess-1", sampleRecord(2, 1, 0, true)); err != nil {
		t.Fatalf("SaveCycle: %v", err)
	}

	sessions, err := s.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	// Newest first.
	if sessions[0].Filename != "b.py" {
		t.Errorf("order wrong: first = %s", sessions[0].Filename)
	}
	healed := sessions[1]
	if healed.Cycles != 2 || healed.FixesApplied != 3 || healed.FinalDefects != 0 {
		t.Errorf("aggregate = %+v", healed)
	}
	if !healed.Stable {
		t.Errorf("healed session not marked stable")
	}
}

func TestCyclesUnknownSessionEmpty(t *testing.T) {
	s := openTestStore(t)
	cycles, err := s.Cycles("missing")
	if err != nil {
		t.Fatalf("Cycles: %v", err)
	}
	if len(cycles) != 0 {
		t.Errorf("got %d cycles for unknown session", len(cycles))
	}
}
