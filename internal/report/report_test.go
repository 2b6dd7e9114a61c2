package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"pyheal/internal/diff"
	"pyheal/internal/engine"
	"pyheal/internal/scan"
)

func TestDefectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Defects("clean.py", nil)
	out := buf.String()
	assert.Contains(t, out, "clean.py")
	assert.Contains(t, out, "no defects")
}

func TestDefectsListing(t *testing.T) {
	var buf bytes.Buffer
	defects := []scan.Defect{
		{Kind: scan.KindBareExcept, Severity: scan.SeverityWarning, Line: 4,
			Message: "bare except swallows every error"},
		{Kind: scan.KindMixedIndentation, Severity: scan.SeverityError, Line: 2, EndLine: 6,
			Message: "block mixes tab and space indentation"},
	}
	New(&buf).Defects("bad.py", defects)
	out := buf.String()
	assert.Contains(t, out, "bad.py")
	assert.Contains(t, out, "bare except swallows every error")
	assert.Contains(t, out, "2-6")
	assert.Contains(t, out, "2 defects")
}

func TestCycleSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	rec := engine.CycleRecord{
		Index:         2,
		DefectsBefore: make([]scan.Defect, 5),
		DefectsAfter:  make([]scan.Defect, 1),
		FixesApplied:  4,
		FixesDeferred: 1,
		Stable:        false,
	}
	New(&buf).Cycle(rec)
	out := buf.String()
	assert.Contains(t, out, "cycle 2")
	assert.Contains(t, out, "5 -> 1")
	assert.Contains(t, out, "4 fixed")
	assert.Contains(t, out, "1 deferred")
	assert.NotContains(t, out, "stable")
}

func TestCycleStableMarker(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Cycle(engine.CycleRecord{Index: 3, Stable: true})
	assert.Contains(t, buf.String(), "stable")
}

func TestDiffRendering(t *testing.T) {
	var buf bytes.Buffer
	p := diff.Compute("fix.py", "def f()\n    pass\n", "def f():\n    pass\n")
	New(&buf).Diff(p)
	out := buf.String()
	assert.Contains(t, out, "fix.py")
	assert.Contains(t, out, "-def f()")
	assert.Contains(t, out, "+def f():")
	assert.Contains(t, out, "@@")
}

func TestDiffEmptySilent(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Diff(diff.Patch{Name: "same.py"})
	assert.Empty(t, buf.String())
}

func TestSummaryClean(t *testing.T) {
	var buf bytes.Buffer
	records := []engine.CycleRecord{
		{Index: 1, DefectsBefore: make([]scan.Defect, 3), FixesApplied: 3, Stable: true},
	}
	New(&buf).Summary("healed.py", records)
	out := buf.String()
	assert.Contains(t, out, "healed.py")
	assert.Contains(t, out, "1 cycles")
	assert.Contains(t, out, "3 -> 0")
	assert.Contains(t, out, "clean")
}

func TestSummaryUnfixableRemain(t *testing.T) {
	var buf bytes.Buffer
	leftover := []scan.Defect{{Kind: scan.KindHighComplexity, Line: 1}}
	records := []engine.CycleRecord{
		{Index: 1, DefectsBefore: leftover, DefectsAfter: leftover, Stable: true},
	}
	New(&buf).Summary("hairy.py", records)
	assert.Contains(t, buf.String(), "unfixable")
}

func TestSummaryNoRecords(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Summary("nothing.py", nil)
	assert.Empty(t, buf.String())
}
