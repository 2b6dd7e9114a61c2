package engine

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestSessionRunCycleAdvances(t *testing.T) {
	s := NewSession("demo.py", "def f()\n    pass\n", Options{})
	if s.Stable() {
		t.Errorf("fresh session reports stable")
	}

	rec, err := s.RunCycle()
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if rec.Index != 1 {
		t.Errorf("index = %d, want 1", rec.Index)
	}
	if s.Code() != rec.After {
		t.Errorf("session code did not advance to cycle output")
	}
	if got := len(s.Records()); got != 1 {
		t.Errorf("records = %d, want 1", got)
	}
}

func TestSessionHealStopsWhenStable(t *testing.T) {
	s := NewSession("clean.py", "x = 1\n", Options{})
	records, err := s.Heal(5)
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("ran %d cycles on clean input, want 1", len(records))
	}
	if !s.Stable() {
		t.Errorf("session not stable after healing clean input")
	}
}

func TestSessionHealConverges(t *testing.T) {
	code := strings.Join([]string{
		"def f(a, b)",
		"    try:",
		"        return a + b",
		"    except:",
		"        pass",
		"",
	}, "\n")
	s := NewSession("broken.py", code, Options{})
	records, err := s.Heal(5)
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("no cycles ran")
	}
	last := records[len(records)-1]
	if !last.Stable {
		t.Errorf("did not reach a fixed point in %d cycles", len(records))
	}
	if strings.Contains(s.Code(), "except:") {
		t.Errorf("bare except survived healing:\n%s", s.Code())
	}
	if !strings.Contains(s.Code(), "def f(a, b):") {
		t.Errorf("colon not restored:\n%s", s.Code())
	}
}

func TestSessionLatest(t *testing.T) {
	s := NewSession("demo.py", "x = 1  \n", Options{})
	if _, ok := s.Latest(); ok {
		t.Errorf("fresh session has a latest record")
	}
	if _, err := s.RunCycle(); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	last, ok := s.Latest()
	if !ok || last.Index != 1 {
		t.Errorf("latest = (%v, %v)", last.Index, ok)
	}
}

func TestSessionsRunIndependently(t *testing.T) {
	// Each session owns its controller, so concurrent sessions over
	// different texts must not interfere.
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			code := fmt.Sprintf("def f%d(x)\n    return x\n", i)
			s := NewSession(fmt.Sprintf("file%d.py", i), code, Options{})
			if _, err := s.Heal(3); err != nil {
				return err
			}
			want := fmt.Sprintf("def f%d(x):", i)
			if !strings.Contains(s.Code(), want) {
				return fmt.Errorf("session %d lost its own text: %q", i, s.Code())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	a := NewSession("a.py", "x = 1\n", Options{})
	b := NewSession("b.py", "y = 2\n", Options{})
	if a.ID == b.ID {
		t.Errorf("two sessions share an ID: %s", a.ID)
	}
}
