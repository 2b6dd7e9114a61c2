// Package engine drives the identify-correct-evolve loop: scan the text,
// plan fixes within the cycle budget, rewrite, and verify that the rewrite
// did not make things worse before accepting it.
package engine

import (
	"time"

	"pyheal/internal/logging"
	"pyheal/internal/plan"
	"pyheal/internal/rewrite"
	"pyheal/internal/scan"
)

// Phase is the controller's position in the current cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhasePlanning
	PhaseRewriting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhasePlanning:
		return "planning"
	case PhaseRewriting:
		return "rewriting"
	default:
		return "unknown"
	}
}

// Options tunes the controller and its scanner and planner.
type Options struct {
	Scan scan.Options
	Plan plan.Options
	// MaxRepairAttempts bounds the in-cycle chain of local parse repairs.
	// Zero means the default of 5.
	MaxRepairAttempts int
}

// withDefaults fills the gaps a caller left open. A caller who tunes only
// the scanner's thresholds gets a planner that agrees with them: a planner
// splitting to a different limit than the scanner flags would re-report the
// same line every cycle.
func (o Options) withDefaults() Options {
	if o.Plan.LongLineThreshold == 0 {
		o.Plan.LongLineThreshold = o.Scan.LongLineThreshold
	}
	if o.Plan.TabWidth == 0 {
		o.Plan.TabWidth = o.Scan.TabWidth
	}
	if o.MaxRepairAttempts <= 0 {
		o.MaxRepairAttempts = 5
	}
	return o
}

// CycleRecord is the full account of one repair cycle: both text
// snapshots, both defect lists, and what the planner and rewriter did in
// between.
type CycleRecord struct {
	Index         int
	Before        string
	After         string
	DefectsBefore []scan.Defect
	DefectsAfter  []scan.Defect
	WeightBefore  float64
	WeightAfter   float64
	FixesPlanned  int
	FixesApplied  int
	FixesDeferred int
	Duration      time.Duration
	Stable        bool
}

// Changed reports whether the cycle altered the text.
func (r CycleRecord) Changed() bool {
	return r.Before != r.After
}

// Clean reports whether the cycle ended with no defects at all.
func (r CycleRecord) Clean() bool {
	return len(r.DefectsAfter) == 0
}

// Controller runs repair cycles. It owns a scanner and a planner and is
// not safe for concurrent use; run one controller per goroutine.
type Controller struct {
	opts    Options
	scanner *scan.Scanner
	planner *plan.Planner
	phase   Phase
}

// NewController creates a controller with the given options.
func NewController(opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts:    opts,
		scanner: scan.NewScanner(opts.Scan),
		planner: plan.NewPlanner(opts.Plan),
		phase:   PhaseIdle,
	}
}

// Phase returns the controller's current phase. Outside RunCycle it is
// always PhaseIdle.
func (c *Controller) Phase() Phase {
	return c.phase
}

// IsStable reports whether a cycle reached a fixed point: either the text
// no longer changed, or nothing fixable remains.
func (c *Controller) IsStable(rec CycleRecord) bool {
	return rec.Stable
}

// IsStableText reports whether code is already at a fixed point without
// running a cycle: scanning it finds nothing fixable. The only error is
// scan.ErrNotText.
func (c *Controller) IsStableText(code string) (bool, error) {
	defects, err := c.scanner.Scan(code)
	if err != nil {
		return false, err
	}
	return !anyFixable(defects), nil
}

// RunCycle executes one full identify-correct-evolve pass over code and
// returns its record. The input text is never mutated; the record's After
// snapshot carries the result. The only error is scan.ErrNotText.
func (c *Controller) RunCycle(code string) (CycleRecord, error) {
	started := time.Now()
	rec := CycleRecord{Before: code, After: code}
	defer func() { c.phase = PhaseIdle }()

	c.phase = PhaseScanning
	defects, err := c.scanner.Scan(code)
	if err != nil {
		return rec, err
	}
	rec.DefectsBefore = defects
	rec.WeightBefore = scan.TotalWeight(defects)

	if !anyFixable(defects) {
		rec.DefectsAfter = defects
		rec.WeightAfter = rec.WeightBefore
		rec.Duration = time.Since(started)
		rec.Stable = true
		logging.EngineDebug("cycle: nothing fixable among %d defects", len(defects))
		return rec, nil
	}

	c.phase = PhasePlanning
	fixes := c.planner.Plan(code, defects)
	rec.FixesPlanned = len(fixes)

	c.phase = PhaseRewriting
	after, applied, deferred := c.guardedApply(code, rec.WeightBefore, fixes)
	if repaired, extra := c.iterativeParseRepair(after); extra > 0 {
		after = repaired
		applied += extra
	}
	rec.After = after
	rec.FixesApplied = applied
	rec.FixesDeferred = deferred

	defectsAfter, err := c.scanner.Scan(after)
	if err != nil {
		return rec, err
	}
	rec.DefectsAfter = defectsAfter
	rec.WeightAfter = scan.TotalWeight(defectsAfter)
	rec.Duration = time.Since(started)
	rec.Stable = rec.Before == rec.After || len(defectsAfter) == 0

	logging.EngineDebug("cycle: weight %.2f -> %.2f, %d applied, %d deferred, stable=%v",
		rec.WeightBefore, rec.WeightAfter, applied, deferred, rec.Stable)
	return rec, nil
}

// guardedApply applies the planned fixes and verifies the result did not
// raise the total defect weight. On a regression it falls back to applying
// fixes one at a time, keeping only those that lower the weight; the rest
// are deferred. Fixes arrive in descending line order, so cumulative
// single-fix application never invalidates the spans still pending.
func (c *Controller) guardedApply(code string, weightBefore float64, fixes []plan.Fix) (string, int, int) {
	if len(fixes) == 0 {
		return code, 0, 0
	}

	res := rewrite.Apply(code, fixes)
	weight, ok := c.weightOf(res.Code)
	if ok && weight <= weightBefore {
		return res.Code, len(res.Applied), len(res.Skipped)
	}
	logging.EngineDebug("batch regressed weight %.2f -> %.2f, retrying per fix",
		weightBefore, weight)

	current := code
	currentWeight := weightBefore
	applied, deferred := 0, 0
	for _, f := range fixes {
		cand := rewrite.Apply(current, []plan.Fix{f})
		if len(cand.Applied) == 0 {
			deferred++
			continue
		}
		candWeight, ok := c.weightOf(cand.Code)
		if !ok || candWeight >= currentWeight {
			logging.EngineDebug("deferring regressing fix %s", f)
			deferred++
			continue
		}
		current = cand.Code
		currentWeight = candWeight
		applied++
	}
	return current, applied, deferred
}

// iterativeParseRepair chains narrow local repairs while the text still
// fails to parse: fixing one syntax error routinely uncovers the next on
// the same statement, and each uncovered error needs its own pass. The
// chain is bounded by MaxRepairAttempts, and its result is kept only when
// it ends with fewer parse failures than it started with.
func (c *Controller) iterativeParseRepair(code string) (string, int) {
	start := c.parseFailureCount(code)
	if start == 0 {
		return code, 0
	}

	current := code
	applied := 0
	for attempt := 0; attempt < c.opts.MaxRepairAttempts; attempt++ {
		defects, err := c.scanner.Scan(current)
		if err != nil || len(defects) == 0 || defects[0].Kind != scan.KindParseFailure {
			break
		}
		fixes := c.planner.Plan(current, defects[:1])
		if len(fixes) == 0 {
			break
		}
		res := rewrite.Apply(current, fixes)
		if !res.Changed() {
			break
		}
		current = res.Code
		applied++
		logging.EngineDebug("parse repair attempt %d applied", attempt+1)
	}

	if applied == 0 || c.parseFailureCount(current) >= start {
		return code, 0
	}
	return current, applied
}

func (c *Controller) parseFailureCount(code string) int {
	defects, err := c.scanner.Scan(code)
	if err != nil {
		return 0
	}
	return scan.CountByKind(defects)[scan.KindParseFailure]
}

func (c *Controller) weightOf(code string) (float64, bool) {
	defects, err := c.scanner.Scan(code)
	if err != nil {
		return 0, false
	}
	return scan.TotalWeight(defects), true
}

func anyFixable(defects []scan.Defect) bool {
	for _, d := range defects {
		if d.Kind.Fixable() {
			return true
		}
	}
	return false
}
