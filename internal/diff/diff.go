// Package diff renders the change between a cycle's before and after
// snapshots as unified-style hunks.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op classifies one diff line.
type Op int

const (
	OpContext Op = iota
	OpAdd
	OpDelete
)

// Line is one line of a hunk. Old and New are 1-based positions in the
// respective snapshot; an add has no Old, a delete has no New.
type Line struct {
	Old  int
	New  int
	Text string
	Op   Op
}

// Hunk is one contiguous change region with surrounding context.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Lines              []Line
}

// Header renders the hunk range in unified-diff form.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// Patch is the full diff for one named text.
type Patch struct {
	Name  string
	Hunks []Hunk
}

// Empty reports whether the two snapshots were identical.
func (p Patch) Empty() bool {
	return len(p.Hunks) == 0
}

// Stats returns the total added and removed line counts.
func (p Patch) Stats() (added, removed int) {
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			switch l.Op {
			case OpAdd:
				added++
			case OpDelete:
				removed++
			}
		}
	}
	return added, removed
}

const contextLines = 3

// Compute diffs two snapshots at line granularity. The line-level
// reduction keeps diffmatchpatch from splitting inside a line.
func Compute(name, before, after string) Patch {
	p := Patch{Name: name}
	if before == after {
		return p
	}

	dmp := diffmatchpatch.New()
	a, b, lineText := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineText)

	ops := flatten(diffs)
	p.Hunks = group(ops)
	return p
}

// flatten expands the diff segments into one record per line, tracking
// both coordinate spaces.
func flatten(diffs []diffmatchpatch.Diff) []Line {
	var out []Line
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" && d.Text != "\n" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldLine++
				newLine++
				out = append(out, Line{Old: oldLine, New: newLine, Text: line, Op: OpContext})
			case diffmatchpatch.DiffDelete:
				oldLine++
				out = append(out, Line{Old: oldLine, Text: line, Op: OpDelete})
			case diffmatchpatch.DiffInsert:
				newLine++
				out = append(out, Line{New: newLine, Text: line, Op: OpAdd})
			}
		}
	}
	return out
}

// group slices the flat line list into hunks, keeping contextLines of
// unchanged text around each change run and merging runs whose context
// would touch.
func group(ops []Line) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].Op == OpContext {
			i++
			continue
		}

		// Extend this hunk until a gap of more than 2*contextLines of
		// unchanged lines separates it from the next change.
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i
		for j := i; j < len(ops); j++ {
			if ops[j].Op != OpContext {
				end = j
				continue
			}
			if j-end > 2*contextLines {
				break
			}
		}
		stop := end + contextLines + 1
		if stop > len(ops) {
			stop = len(ops)
		}

		hunks = append(hunks, makeHunk(ops[start:stop]))
		i = stop
	}
	return hunks
}

func makeHunk(lines []Line) Hunk {
	h := Hunk{Lines: lines}
	for _, l := range lines {
		switch l.Op {
		case OpContext:
			h.OldLines++
			h.NewLines++
		case OpDelete:
			h.OldLines++
		case OpAdd:
			h.NewLines++
		}
	}
	for _, l := range lines {
		if l.Old > 0 {
			h.OldStart = l.Old
			break
		}
	}
	for _, l := range lines {
		if l.New > 0 {
			h.NewStart = l.New
			break
		}
	}
	if h.OldStart == 0 {
		h.OldStart = 1
	}
	if h.NewStart == 0 {
		h.NewStart = 1
	}
	return h
}
