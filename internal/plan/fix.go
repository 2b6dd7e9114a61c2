// Package plan maps defects to concrete fixes. Dispatch is a closed
// tagged-variant match over defect kinds, so the set of behaviors stays
// auditable and total.
package plan

import (
	"fmt"

	"pyheal/internal/scan"
)

// Strategy tags the repair technique a fix uses.
type Strategy int

const (
	StrategyInsertColon Strategy = iota
	StrategyReindentBlock
	StrategySplitLongString
	StrategyQualifyExcept
	StrategyLocalParseRepair
	StrategyStripTrailingSpace
	StrategyInsertDocstring
	StrategyCommentImport
	StrategyRenameDefinition
)

func (s Strategy) String() string {
	switch s {
	case StrategyInsertColon:
		return "insert_colon"
	case StrategyReindentBlock:
		return "reindent_block"
	case StrategySplitLongString:
		return "split_long_string"
	case StrategyQualifyExcept:
		return "qualify_except"
	case StrategyLocalParseRepair:
		return "local_parse_repair"
	case StrategyStripTrailingSpace:
		return "strip_trailing_space"
	case StrategyInsertDocstring:
		return "insert_docstring"
	case StrategyCommentImport:
		return "comment_import"
	case StrategyRenameDefinition:
		return "rename_definition"
	default:
		return "unknown"
	}
}

// Span is a 1-based inclusive line range in the text a fix was planned
// against.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string {
	if s.End <= s.Start {
		return fmt.Sprintf("line %d", s.Start)
	}
	return fmt.Sprintf("lines %d-%d", s.Start, s.End)
}

// Overlaps reports whether two line spans share any line.
func (s Span) Overlaps(other Span) bool {
	aEnd, bEnd := s.End, other.End
	if aEnd < s.Start {
		aEnd = s.Start
	}
	if bEnd < other.Start {
		bEnd = other.Start
	}
	return s.Start <= bEnd && other.Start <= aEnd
}

// Fix is one concrete corrective edit: the lines in Span are replaced by
// Lines. A fix is planned against a specific text snapshot and consumed
// exactly once by the rewriter.
type Fix struct {
	Defect   scan.Defect
	Strategy Strategy
	Span     Span
	Lines    []string
}

func (f Fix) String() string {
	return fmt.Sprintf("%s @ %s (%s)", f.Strategy, f.Span, f.Defect.Kind)
}
