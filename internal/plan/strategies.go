package plan

import (
	"regexp"
	"sort"
	"strings"

	"pyheal/internal/scan"
)

// insertColon appends the missing colon to a suite header line.
func insertColon(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}
	body := strings.TrimRight(line, " \t")
	if body == "" || strings.HasSuffix(body, ":") {
		return nil
	}
	return singleLineFix(d, StrategyInsertColon, body+":")
}

// reindentBlock rewrites the defect's block with one consistent unit,
// preserving relative nesting depth. Distinct visual widths in the block
// are ranked; each rank maps to one more indentation level.
func (p *Planner) reindentBlock(lines []string, d scan.Defect) *Fix {
	start, end := d.Line, d.LastLine()
	if start < 1 || end > len(lines) || start > end {
		return nil
	}

	widths := make(map[int]bool)
	for i := start - 1; i < end; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		widths[indentWidth(lines[i], p.opts.TabWidth)] = true
	}
	if len(widths) == 0 {
		return nil
	}

	ordered := make([]int, 0, len(widths))
	for w := range widths {
		ordered = append(ordered, w)
	}
	sort.Ints(ordered)

	// The shallowest width keeps its approximate absolute depth; deeper
	// widths each step one level further in.
	unit := p.opts.IndentUnit
	baseDepth := (ordered[0] + unit/2) / unit
	if baseDepth < 1 {
		baseDepth = 1
	}
	depthOf := make(map[int]int, len(ordered))
	for rank, w := range ordered {
		depthOf[w] = baseDepth + rank
	}

	replacement := make([]string, 0, end-start+1)
	changed := false
	for i := start - 1; i < end; i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			replacement = append(replacement, line)
			continue
		}
		depth := depthOf[indentWidth(line, p.opts.TabWidth)]
		fixed := strings.Repeat(" ", depth*unit) + strings.TrimLeft(line, " \t")
		if fixed != line {
			changed = true
		}
		replacement = append(replacement, fixed)
	}
	if !changed {
		return nil
	}
	return &Fix{
		Defect:   d,
		Strategy: StrategyReindentBlock,
		Span:     Span{Start: start, End: end},
		Lines:    replacement,
	}
}

// stringLiteralRe matches a simple single-line string literal with no
// escapes. Literals with escapes or triple quotes are left alone; a wrong
// split there could change meaning.
var stringLiteralRe = regexp.MustCompile(`"[^"\\]*"|'[^'\\]*'`)

// splitLongString splits an over-long string literal at whitespace
// boundaries into adjacent literals joined by implicit concatenation,
// wrapped in parentheses. Concatenating the pieces reproduces the original
// string exactly.
func (p *Planner) splitLongString(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok || len(line) <= p.opts.LongLineThreshold {
		return nil
	}
	if strings.Contains(line, `"""`) || strings.Contains(line, `'''`) {
		return nil
	}

	loc := longestLiteral(line)
	if loc == nil {
		return nil // not a string-literal line; no safe split
	}
	literal := line[loc[0]:loc[1]]
	quote := literal[:1]
	content := literal[1 : len(literal)-1]

	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	contIndent := indent + strings.Repeat(" ", p.opts.IndentUnit)
	budget := p.opts.LongLineThreshold - len(contIndent) - 2
	if budget < 8 || len(content) <= budget {
		return nil
	}

	chunks := chunkAtWhitespace(content, budget)
	if len(chunks) < 2 {
		return nil
	}

	prefix := line[:loc[0]]
	suffix := line[loc[1]:]
	if len(prefix)+1 > p.opts.LongLineThreshold {
		return nil // the code before the literal is the long part, not the string
	}
	replacement := make([]string, 0, len(chunks)+2)
	replacement = append(replacement, prefix+"(")
	for _, chunk := range chunks {
		replacement = append(replacement, contIndent+quote+chunk+quote)
	}
	closer := ")" + suffix
	last := len(replacement) - 1
	switch {
	case len(replacement[last])+len(closer) <= p.opts.LongLineThreshold:
		replacement[last] += closer
	case len(indent)+len(closer) <= p.opts.LongLineThreshold:
		replacement = append(replacement, indent+closer)
	default:
		return nil // a trailing expression this long defeats the split
	}
	return &Fix{
		Defect:   d,
		Strategy: StrategySplitLongString,
		Span:     Span{Start: d.Line, End: d.Line},
		Lines:    replacement,
	}
}

// longestLiteral returns the byte range of the longest simple string
// literal on the line, or nil.
func longestLiteral(line string) []int {
	var best []int
	for _, loc := range stringLiteralRe.FindAllStringIndex(line, -1) {
		if best == nil || loc[1]-loc[0] > best[1]-best[0] {
			best = loc
		}
	}
	if best == nil || best[1]-best[0] < 20 {
		return nil
	}
	return best
}

// chunkAtWhitespace packs the content into chunks no longer than budget,
// breaking at whitespace boundaries with the whitespace attached to the
// preceding chunk. Concatenating the chunks reproduces content exactly. A
// single word longer than the budget is hard-split.
func chunkAtWhitespace(content string, budget int) []string {
	var words []string
	start := 0
	for i := 1; i < len(content); i++ {
		if content[i-1] == ' ' && content[i] != ' ' {
			words = append(words, content[start:i])
			start = i
		}
	}
	words = append(words, content[start:])

	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}
	for _, word := range words {
		for len(word) > budget {
			flush()
			chunks = append(chunks, word[:budget])
			word = word[budget:]
		}
		if len(current)+len(word) > budget {
			flush()
		}
		current += word
	}
	flush()
	return chunks
}

var bareExceptRe = regexp.MustCompile(`\bexcept\s*:`)

// qualifyExcept rewrites `except:` to name the base exception type
// explicitly. The handler body is untouched.
func qualifyExcept(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}
	fixed := bareExceptRe.ReplaceAllString(line, "except Exception:")
	if fixed == line {
		return nil
	}
	return singleLineFix(d, StrategyQualifyExcept, fixed)
}

// localParseRepair attempts the narrowest fix implied by the parser's
// report, carried in the defect hint: a missing colon, an unbalanced
// bracket, or an unterminated string. With no usable hint the defect stays
// unresolved and is surfaced in diagnostics.
func (p *Planner) localParseRepair(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}

	switch d.Hint {
	case ":":
		fix := insertColon(lines, d)
		if fix != nil {
			fix.Strategy = StrategyLocalParseRepair
		}
		return fix
	case ")", "]", "}":
		open := map[string]string{")": "(", "]": "[", "}": "{"}[d.Hint]
		n := strings.Count(line, open) - strings.Count(line, d.Hint)
		if n <= 0 {
			n = 1
		}
		return singleLineFix(d, StrategyLocalParseRepair,
			strings.TrimRight(line, " \t")+strings.Repeat(d.Hint, n))
	case `"`, `'`:
		if strings.Count(line, d.Hint)%2 == 1 {
			return singleLineFix(d, StrategyLocalParseRepair, line+d.Hint)
		}
		return nil
	}

	// Tab/space conflicts surface as generic parse errors; normalizing
	// tabs on the offending line is the one repair cheap enough to try.
	if strings.Contains(line, "\t") {
		return singleLineFix(d, StrategyLocalParseRepair,
			strings.ReplaceAll(line, "\t", strings.Repeat(" ", p.opts.IndentUnit)))
	}
	return nil
}

func stripTrailingSpace(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}
	fixed := strings.TrimRight(line, " \t")
	if fixed == line {
		return nil
	}
	return singleLineFix(d, StrategyStripTrailingSpace, fixed)
}

// insertDocstring places a placeholder docstring directly under the
// def/class header, at the body's own visual depth so the insertion cannot
// break the suite. The indent is rebuilt from spaces: copying a tab from
// the body would plant the tab right back into a block that a reindent fix
// from the same cycle is converting to spaces. Raw body whitespace is
// reused only when the whole suite indents with tabs alone.
func (p *Planner) insertDocstring(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}
	if !strings.HasSuffix(strings.TrimRight(line, " \t"), ":") {
		return nil // header is incomplete; other fixes go first
	}
	headerWidth := indentWidth(line, p.opts.TabWidth)
	inner := strings.Repeat(" ", headerWidth+p.opts.IndentUnit)
	for i := d.Line; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if w := indentWidth(lines[i], p.opts.TabWidth); w > headerWidth {
			inner = strings.Repeat(" ", w)
			if ind := leadingWhitespace(lines[i]); strings.Contains(ind, "\t") &&
				suiteTabsOnly(lines, i, headerWidth, p.opts.TabWidth) {
				inner = ind
			}
		}
		break
	}
	return &Fix{
		Defect:   d,
		Strategy: StrategyInsertDocstring,
		Span:     Span{Start: d.Line, End: d.Line},
		Lines:    []string{line, inner + `"""TODO: Add documentation."""`},
	}
}

// commentImport comments an unused import out rather than deleting it,
// preserving the author's intent for review.
func commentImport(lines []string, d scan.Defect) *Fix {
	line, ok := lineAt(lines, d.Line)
	if !ok || strings.HasPrefix(strings.TrimSpace(line), "#") {
		return nil
	}
	return singleLineFix(d, StrategyCommentImport, "# "+line+"  # unused import")
}

var quotedNameRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)

// renameDefinition renames a badly-cased def/class on its definition line
// only; usages are out of reach without scope analysis.
func renameDefinition(lines []string, d scan.Defect) *Fix {
	if d.Hint == "" {
		return nil
	}
	line, ok := lineAt(lines, d.Line)
	if !ok {
		return nil
	}
	m := quotedNameRe.FindStringSubmatch(d.Message)
	if m == nil {
		return nil
	}
	oldName := m[1]
	if oldName == d.Hint {
		return nil
	}
	defRe, err := regexp.Compile(`\b(class|def)(\s+)` + regexp.QuoteMeta(oldName) + `\b`)
	if err != nil {
		return nil
	}
	fixed := defRe.ReplaceAllString(line, "${1}${2}"+d.Hint)
	if fixed == line {
		return nil
	}
	return singleLineFix(d, StrategyRenameDefinition, fixed)
}

// suiteTabsOnly reports whether every line of the suite starting at body
// index i, up to the first dedent back to the header's depth, indents with
// tabs and nothing else.
func suiteTabsOnly(lines []string, i, headerWidth, tabWidth int) bool {
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentWidth(lines[i], tabWidth) <= headerWidth {
			return true
		}
		if strings.Contains(leadingWhitespace(lines[i]), " ") {
			return false
		}
	}
	return true
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// indentWidth expands tabs to the next tab stop and returns the visual
// indent width of a line.
func indentWidth(line string, tabWidth int) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth - width%tabWidth
		default:
			return width
		}
	}
	return width
}
