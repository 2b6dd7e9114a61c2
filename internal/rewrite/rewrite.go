// Package rewrite applies planned fixes to source text. It is purely
// textual: it never parses, and it trusts the planner's ordering.
package rewrite

import (
	"strings"

	"pyheal/internal/logging"
	"pyheal/internal/plan"
)

// Result reports one application pass.
type Result struct {
	Code    string     // rewritten text
	Applied []plan.Fix // fixes spliced in, in application order
	Skipped []plan.Fix // fixes rejected as stale or out of order
}

// Changed reports whether the pass altered the text.
func (r Result) Changed() bool {
	return len(r.Applied) > 0
}

// Apply splices each fix's replacement lines over its span, bottom to top.
// Fixes must arrive sorted by descending start line, the order the planner
// emits; applying from the bottom up keeps every remaining span valid
// because edits never move lines above themselves.
//
// A fix whose span falls outside the current text, or that arrives out of
// order, is skipped rather than applied at a wrong location. Skips are
// reported so the engine can re-plan them next cycle.
func Apply(code string, fixes []plan.Fix) Result {
	if len(fixes) == 0 {
		return Result{Code: code}
	}

	lines := strings.Split(code, "\n")
	res := Result{}
	floor := len(lines) + 1 // applied spans must stay strictly below this

	for _, f := range fixes {
		start, end := f.Span.Start, f.Span.End
		if end < start {
			end = start
		}
		if start < 1 || end > len(lines) || end >= floor {
			logging.RewriteDebug("skipping stale fix %s", f)
			res.Skipped = append(res.Skipped, f)
			continue
		}

		replaced := make([]string, 0, len(lines)-(end-start+1)+len(f.Lines))
		replaced = append(replaced, lines[:start-1]...)
		replaced = append(replaced, f.Lines...)
		replaced = append(replaced, lines[end:]...)
		lines = replaced
		floor = start
		res.Applied = append(res.Applied, f)
	}

	res.Code = strings.Join(lines, "\n")
	logging.RewriteDebug("applied %d fixes, skipped %d", len(res.Applied), len(res.Skipped))
	return res
}
