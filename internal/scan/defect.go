// Package scan implements the defect scanner: syntax-tolerant analysis of
// Python source text. It parses with Tree-sitter, which produces a usable
// tree even for broken input, and runs a line-oriented heuristic pass that
// works on text the parser cannot make sense of at all.
package scan

import "fmt"

// Kind categorizes a detected defect. The declaration order is the fixed
// precedence used to break ties between defects on the same line.
type Kind int

const (
	// KindParseFailure means the text does not parse. It blocks all
	// tree-based analysis downstream and always sorts first.
	KindParseFailure Kind = iota
	// KindMissingBlockColon is a suite-opening statement without its
	// trailing colon.
	KindMissingBlockColon
	// KindMixedIndentation is a block that mixes tab and space
	// indentation inconsistently.
	KindMixedIndentation
	// KindExcessiveLineLength is a line over the configured threshold.
	KindExcessiveLineLength
	// KindBareExcept is an exception handler that catches everything
	// and discards it silently.
	KindBareExcept
	KindTrailingWhitespace
	KindMissingDocstring
	KindUnusedImport
	KindNamingViolation
	KindHighComplexity
)

func (k Kind) String() string {
	switch k {
	case KindParseFailure:
		return "parse_failure"
	case KindMissingBlockColon:
		return "missing_block_colon"
	case KindMixedIndentation:
		return "mixed_indentation"
	case KindExcessiveLineLength:
		return "excessive_line_length"
	case KindBareExcept:
		return "bare_except"
	case KindTrailingWhitespace:
		return "trailing_whitespace"
	case KindMissingDocstring:
		return "missing_docstring"
	case KindUnusedImport:
		return "unused_import"
	case KindNamingViolation:
		return "naming_violation"
	case KindHighComplexity:
		return "high_complexity"
	default:
		return "unknown"
	}
}

// Severity indicates how serious a defect is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// severityOf maps each kind to its fixed severity.
func severityOf(k Kind) Severity {
	switch k {
	case KindParseFailure:
		return SeverityCritical
	case KindMissingBlockColon, KindMixedIndentation:
		return SeverityError
	case KindExcessiveLineLength, KindBareExcept, KindHighComplexity:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Weight returns the repair fuel a defect of this kind contributes. The
// weighted sum over a scan is what the cycle controller compares before and
// after a rewrite.
func (k Kind) Weight() float64 {
	switch k {
	case KindParseFailure:
		return 1.0
	case KindMissingBlockColon:
		return 0.9
	case KindBareExcept:
		return 0.7
	case KindMixedIndentation:
		return 0.6
	case KindHighComplexity:
		return 0.5
	case KindMissingDocstring:
		return 0.4
	case KindUnusedImport, KindNamingViolation:
		return 0.3
	case KindExcessiveLineLength:
		return 0.2
	case KindTrailingWhitespace:
		return 0.1
	default:
		return 0.1
	}
}

// Fixable reports whether the planner has a rewrite strategy for this kind.
// Unfixable kinds still surface in diagnostics.
func (k Kind) Fixable() bool {
	return k != KindHighComplexity
}

// Defect is one detected deviation from structural or stylistic
// correctness. Defects are value objects: created by the scanner, read by
// the planner, and discarded at the end of the cycle.
type Defect struct {
	Kind     Kind
	Severity Severity
	Line     int // 1-based first line
	EndLine  int // 1-based last line, inclusive; 0 means same as Line
	Col      int // 0-based byte column, -1 when unknown
	EndCol   int // 0-based exclusive, -1 when unknown
	Message  string
	// Hint carries an optional machine-readable repair hint, such as a
	// suggested replacement name or the token the parser reported
	// missing. Empty when the scanner has nothing concrete to offer.
	Hint string
}

// LastLine returns the inclusive end of the defect's line range.
func (d Defect) LastLine() int {
	if d.EndLine > d.Line {
		return d.EndLine
	}
	return d.Line
}

func (d Defect) String() string {
	return fmt.Sprintf("%s:%d %s: %s", d.Severity, d.Line, d.Kind, d.Message)
}

// TotalWeight sums the fuel weight of a defect list.
func TotalWeight(defects []Defect) float64 {
	total := 0.0
	for _, d := range defects {
		total += d.Kind.Weight()
	}
	return total
}

// CountByKind tallies defects per kind, for diagnostics output.
func CountByKind(defects []Defect) map[Kind]int {
	counts := make(map[Kind]int, len(defects))
	for _, d := range defects {
		counts[d.Kind]++
	}
	return counts
}

// newDefect builds a single-line defect with the kind's fixed severity.
func newDefect(kind Kind, line, col int, msg string) Defect {
	return Defect{
		Kind:     kind,
		Severity: severityOf(kind),
		Line:     line,
		Col:      col,
		EndCol:   -1,
		Message:  msg,
	}
}
