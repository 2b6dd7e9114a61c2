package scan

import (
	"fmt"
	"strings"
)

// suiteKeywords are the statement-introducing keywords that open an
// indented suite and therefore require a trailing colon.
var suiteKeywords = []string{
	"def", "class", "if", "elif", "else", "for", "while",
	"try", "except", "finally", "with",
}

// lineDefects is the heuristic pass. It is tolerant of unparseable text by
// construction: it only ever looks at raw lines.
func (s *Scanner) lineDefects(lines []string) []Defect {
	var defects []Defect
	defects = append(defects, s.checkLineLengths(lines)...)
	defects = append(defects, checkTrailingWhitespace(lines)...)
	defects = append(defects, checkMissingColons(lines)...)
	defects = append(defects, checkMixedIndentation(lines)...)
	return defects
}

func (s *Scanner) checkLineLengths(lines []string) []Defect {
	var out []Defect
	for i, line := range lines {
		if len(line) > s.opts.LongLineThreshold {
			d := newDefect(KindExcessiveLineLength, i+1, s.opts.LongLineThreshold,
				fmt.Sprintf("line too long (%d > %d)", len(line), s.opts.LongLineThreshold))
			out = append(out, d)
		}
	}
	return out
}

func checkTrailingWhitespace(lines []string) []Defect {
	var out []Defect
	for i, line := range lines {
		stripped := strings.TrimRight(line, " \t")
		if stripped != line && strings.TrimSpace(line) != "" {
			out = append(out, newDefect(KindTrailingWhitespace, i+1, len(stripped),
				"trailing whitespace"))
		}
	}
	return out
}

// checkMissingColons flags a suite-opening statement whose following line
// indents deeper without the statement ending in a colon.
func checkMissingColons(lines []string) []Defect {
	var out []Defect
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !startsSuiteKeyword(trimmed) {
			continue
		}
		body := strings.TrimRight(line, " \t")
		if strings.HasSuffix(body, ":") || strings.HasSuffix(body, "\\") {
			continue
		}
		// An open bracket or trailing comma means the statement
		// continues on the next line.
		if r := lastRune(body); r == '(' || r == '[' || r == '{' || r == ',' {
			continue
		}
		if bracketBalance(body) > 0 {
			continue
		}
		next, ok := nextNonBlank(lines, i+1)
		if !ok {
			continue
		}
		if indentWidth(lines[next], 8) > indentWidth(line, 8) {
			out = append(out, newDefect(KindMissingBlockColon, i+1, len(body),
				fmt.Sprintf("statement opening a block is missing its trailing ':' (%s)",
					firstWord(trimmed))))
		}
	}
	return out
}

// checkMixedIndentation groups consecutive indented lines into blocks and
// flags any block whose indentation mixes tabs and spaces, either across
// lines or within a single line's leading whitespace.
func checkMixedIndentation(lines []string) []Defect {
	i := 0
	var out []Defect
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" || leadingWhitespace(lines[i]) == "" {
			i++
			continue
		}
		// Start of an indented block; extend through blank lines.
		start := i
		sawTab, sawSpace := false, false
		for i < len(lines) {
			if strings.TrimSpace(lines[i]) == "" {
				i++
				continue
			}
			lead := leadingWhitespace(lines[i])
			if lead == "" {
				break
			}
			if strings.Contains(lead, "\t") {
				sawTab = true
			}
			if strings.Contains(lead, " ") {
				sawSpace = true
			}
			i++
		}
		end := i - 1
		for end > start && strings.TrimSpace(lines[end]) == "" {
			end--
		}
		if sawTab && sawSpace {
			d := newDefect(KindMixedIndentation, start+1, 0,
				"block mixes tab and space indentation")
			d.EndLine = end + 1
			out = append(out, d)
		}
	}
	return out
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

func startsSuiteKeyword(trimmed string) bool {
	word := firstWord(trimmed)
	word = strings.TrimSuffix(word, ":")
	for _, kw := range suiteKeywords {
		if word == kw {
			return true
		}
	}
	// `async def`, `async for`, `async with`
	if word == "async" {
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "async"))
		return startsSuiteKeyword(rest)
	}
	return false
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '(' || r == ':' {
			return s[:i]
		}
	}
	return s
}

func lastRune(s string) rune {
	r := rune(0)
	for _, c := range s {
		r = c
	}
	return r
}

// bracketBalance counts unclosed brackets on one line. String contents are
// skipped so that bracket characters inside literals do not count.
func bracketBalance(line string) int {
	balance := 0
	var quote rune
	escaped := false
	for _, r := range line {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '#':
			return balance
		case '(', '[', '{':
			balance++
		case ')', ']', '}':
			balance--
		}
	}
	return balance
}

func nextNonBlank(lines []string, from int) (int, bool) {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i, true
		}
	}
	return 0, false
}
