package plan

import (
	"sort"
	"strings"

	"pyheal/internal/logging"
	"pyheal/internal/scan"
)

// Options tunes the planner. Zero values fall back to defaults.
type Options struct {
	IndentUnit        int     // spaces per indentation level, default 4
	TabWidth          int     // tab expansion width, default 8
	LongLineThreshold int     // target for split lines, default 100
	MaxFixesPerCycle  int     // budget: fixes per cycle, default 10
	WeightBudget      float64 // budget: total defect weight per cycle, default 2.0
}

func (o Options) withDefaults() Options {
	if o.IndentUnit <= 0 {
		o.IndentUnit = 4
	}
	if o.TabWidth <= 0 {
		o.TabWidth = 8
	}
	if o.LongLineThreshold <= 0 {
		o.LongLineThreshold = 100
	}
	if o.MaxFixesPerCycle <= 0 {
		o.MaxFixesPerCycle = 10
	}
	if o.WeightBudget <= 0 {
		o.WeightBudget = 2.0
	}
	return o
}

// Planner turns a scan's defect list into an ordered fix list.
type Planner struct {
	opts Options
}

// NewPlanner creates a planner.
func NewPlanner(opts Options) *Planner {
	return &Planner{opts: opts.withDefaults()}
}

// Options returns the resolved planner options.
func (p *Planner) Options() Options {
	return p.opts
}

// Plan maps each defect to a fix against the given text snapshot.
//
// Defects must be in scanner order. When two fixes overlap, only the
// earlier-discovered defect's fix is kept; the loser is deferred to the
// next cycle, which re-plans against fresh text. The cycle budget is then
// spent on the surviving fixes most severe first, so a late critical fix
// is never crowded out by minor defects discovered above it. The result is
// sorted by descending line so the rewriter can apply bottom-to-top
// without invalidating the spans of fixes not yet applied.
func (p *Planner) Plan(code string, defects []scan.Defect) []Fix {
	lines := strings.Split(code, "\n")

	var candidates []Fix
	for _, d := range defects {
		if !d.Kind.Fixable() {
			continue
		}
		fix := p.buildFix(lines, d)
		if fix == nil {
			continue
		}
		if conflicts(candidates, *fix) {
			logging.PlanDebug("deferring overlapping fix %s", fix)
			continue
		}
		candidates = append(candidates, *fix)
	}

	// Severity decides who gets the budget; discovery order breaks ties.
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Defect.Severity > candidates[order[b]].Defect.Severity
	})

	var fixes []Fix
	spent := 0.0
	for _, idx := range order {
		if len(fixes) >= p.opts.MaxFixesPerCycle {
			break
		}
		f := candidates[idx]
		w := f.Defect.Kind.Weight()
		if spent+w > p.opts.WeightBudget && len(fixes) > 0 {
			// Over budget; remaining fixes wait for the next cycle.
			break
		}
		fixes = append(fixes, f)
		spent += w
	}

	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].Span.Start > fixes[j].Span.Start
	})
	logging.PlanDebug("planned %d fixes from %d defects", len(fixes), len(defects))
	return fixes
}

// buildFix is the dispatch table: one strategy per defect kind. Returns
// nil when no safe local fix exists; such defects surface in diagnostics
// unresolved.
func (p *Planner) buildFix(lines []string, d scan.Defect) *Fix {
	switch d.Kind {
	case scan.KindMissingBlockColon:
		return insertColon(lines, d)
	case scan.KindMixedIndentation:
		return p.reindentBlock(lines, d)
	case scan.KindExcessiveLineLength:
		return p.splitLongString(lines, d)
	case scan.KindBareExcept:
		return qualifyExcept(lines, d)
	case scan.KindParseFailure:
		return p.localParseRepair(lines, d)
	case scan.KindTrailingWhitespace:
		return stripTrailingSpace(lines, d)
	case scan.KindMissingDocstring:
		return p.insertDocstring(lines, d)
	case scan.KindUnusedImport:
		return commentImport(lines, d)
	case scan.KindNamingViolation:
		return renameDefinition(lines, d)
	default:
		return nil
	}
}

func conflicts(kept []Fix, cand Fix) bool {
	for _, f := range kept {
		if f.Span.Overlaps(cand.Span) {
			return true
		}
	}
	return false
}

// lineAt returns the 0-indexed line for a 1-based defect line, or false
// when the defect points outside the snapshot.
func lineAt(lines []string, n int) (string, bool) {
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

// singleLineFix builds a fix replacing exactly the defect's line.
func singleLineFix(d scan.Defect, strategy Strategy, replacement ...string) *Fix {
	return &Fix{
		Defect:   d,
		Strategy: strategy,
		Span:     Span{Start: d.Line, End: d.Line},
		Lines:    replacement,
	}
}
