package scan

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"pyheal/internal/logging"
)

// ErrNotText is the single fatal scanner error, reserved for input that is
// not text at all. Source that merely fails to parse is a defect, never an
// error.
var ErrNotText = errors.New("scan: input is not text")

// Options tunes the scanner. Zero values fall back to defaults.
type Options struct {
	LongLineThreshold int // max line length, default 100
	TabWidth          int // tab expansion width for depth math, default 8
	MaxComplexity     int // cyclomatic estimate ceiling, default 10
	MaxDefects        int // cap on defects per scan, default 256
}

func (o Options) withDefaults() Options {
	if o.LongLineThreshold <= 0 {
		o.LongLineThreshold = 100
	}
	if o.TabWidth <= 0 {
		o.TabWidth = 8
	}
	if o.MaxComplexity <= 0 {
		o.MaxComplexity = 10
	}
	if o.MaxDefects <= 0 {
		o.MaxDefects = 256
	}
	return o
}

// Naming conventions, per PEP 8.
var (
	snakeCaseRe  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	pascalCaseRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
)

// Scanner inspects Python source text and produces an ordered defect list.
// Scanning is deterministic: identical input yields an identical list,
// independent of call order or prior scans.
//
// A Scanner owns one Tree-sitter parser and is not safe for concurrent use;
// give each goroutine its own instance.
type Scanner struct {
	opts   Options
	parser *sitter.Parser
}

// NewScanner creates a scanner for Python source.
func NewScanner(opts Options) *Scanner {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Scanner{
		opts:   opts.withDefaults(),
		parser: parser,
	}
}

// Options returns the resolved scanner options.
func (s *Scanner) Options() Options {
	return s.opts
}

// Scan inspects code and returns every detected defect, ordered with parse
// failures first, then ascending line, ties broken by kind precedence.
// It never fails on malformed source; the only error is ErrNotText.
func (s *Scanner) Scan(code string) ([]Defect, error) {
	if strings.ContainsRune(code, 0) || !utf8.ValidString(code) {
		return nil, ErrNotText
	}

	lines := strings.Split(code, "\n")
	var defects []Defect

	content := []byte(code)
	tree, err := s.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		// The parser itself gave up; convert, never propagate.
		defects = append(defects, newDefect(KindParseFailure, 1, 0,
			fmt.Sprintf("parser error: %v", err)))
	} else {
		defer tree.Close()
		root := tree.RootNode()
		if root.HasError() {
			defects = append(defects, s.parseFailures(root, content, lines)...)
			logging.ScanDebug("parse failure in %d-line input", len(lines))
		} else {
			// Tree-based checks only run on a clean parse; a parse
			// failure blocks everything downstream.
			defects = append(defects, s.treeDefects(root, content)...)
		}
	}

	defects = append(defects, s.lineDefects(lines)...)

	sortDefects(defects)
	if len(defects) > s.opts.MaxDefects {
		defects = defects[:s.opts.MaxDefects]
	}
	return defects, nil
}

// sortDefects orders parse failures first, then by ascending line, ties by
// kind precedence, then column for full determinism.
func sortDefects(defects []Defect) {
	sort.SliceStable(defects, func(i, j int) bool {
		di, dj := defects[i], defects[j]
		iParse := di.Kind == KindParseFailure
		jParse := dj.Kind == KindParseFailure
		if iParse != jParse {
			return iParse
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Kind != dj.Kind {
			return di.Kind < dj.Kind
		}
		return di.Col < dj.Col
	})
}

// parseFailures walks the error-tolerant tree and derives ParseFailure
// defects from ERROR and MISSING nodes. Only the first few are reported;
// heavily malformed input produces cascading errors that add no signal.
const maxParseFailures = 5

func (s *Scanner) parseFailures(root *sitter.Node, content []byte, lines []string) []Defect {
	var out []Defect
	var visit func(n *sitter.Node, depth int)
	visit = func(n *sitter.Node, depth int) {
		if n == nil || depth > 1000 || len(out) >= maxParseFailures {
			return
		}
		if n.IsError() || n.IsMissing() {
			out = append(out, s.describeErrorNode(n, content, lines))
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), depth+1)
		}
	}
	visit(root, 0)
	if len(out) == 0 {
		// HasError with no reachable ERROR node; report at the root.
		out = append(out, newDefect(KindParseFailure, 1, 0, "invalid syntax"))
	}
	return out
}

// describeErrorNode classifies one ERROR/MISSING node into a ParseFailure
// defect. The Hint field carries the missing token when the parser knows
// it, which lets the planner attempt the narrowest local repair.
func (s *Scanner) describeErrorNode(n *sitter.Node, content []byte, lines []string) Defect {
	point := n.StartPoint()
	line := int(point.Row) + 1
	col := int(point.Column)

	if n.IsMissing() {
		token := n.Type()
		d := newDefect(KindParseFailure, line, col,
			fmt.Sprintf("missing %q", token))
		d.Hint = token
		return d
	}

	msg := "invalid syntax"
	start, end := n.StartByte(), n.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if end > start && end-start <= 40 {
		msg = fmt.Sprintf("unexpected %q", string(content[start:end]))
	}

	d := newDefect(KindParseFailure, line, col, msg)
	d.Hint = classifyErrorLine(lines, line)
	return d
}

// classifyErrorLine inspects the offending line for repairs the planner
// understands: an unterminated string, an unbalanced bracket, or a suite
// header missing its colon. Returns the hint token or "".
func classifyErrorLine(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	text := lines[line-1]

	if strings.Count(text, `"`)%2 == 1 {
		return `"`
	}
	if strings.Count(text, `'`)%2 == 1 {
		return `'`
	}
	for _, pair := range [...][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}} {
		if strings.Count(text, pair[0]) > strings.Count(text, pair[1]) {
			return pair[1]
		}
	}
	trimmed := strings.TrimSpace(text)
	if startsSuiteKeyword(trimmed) && !strings.HasSuffix(strings.TrimRight(text, " \t"), ":") {
		return ":"
	}
	return ""
}

// treeDefects runs the pattern checks that need a well-formed tree: bare
// except handlers, missing docstrings, unused imports, naming, complexity.
func (s *Scanner) treeDefects(root *sitter.Node, content []byte) []Defect {
	w := &treeWalker{
		scanner:  s,
		content:  content,
		imported: make(map[string]importSite),
		used:     make(map[string]bool),
	}
	w.walk(root, false)
	return w.finish()
}

type importSite struct {
	line int
	col  int
}

type treeWalker struct {
	scanner  *Scanner
	content  []byte
	defects  []Defect
	imported map[string]importSite
	used     map[string]bool
}

func (w *treeWalker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *treeWalker) walk(n *sitter.Node, inImport bool) {
	switch n.Type() {
	case "except_clause":
		w.checkExceptClause(n)
	case "function_definition":
		w.checkFunctionDef(n)
	case "class_definition":
		w.checkClassDef(n)
	case "import_statement", "import_from_statement":
		w.collectImports(n)
		inImport = true
	case "identifier":
		if !inImport {
			w.used[w.text(n)] = true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), inImport)
	}
}

// checkExceptClause flags `except:` with no exception type. In the Python
// grammar a bare handler's only named child is its block.
func (w *treeWalker) checkExceptClause(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() != "block" {
			return // names an exception type
		}
	}
	point := n.StartPoint()
	w.defects = append(w.defects, newDefect(KindBareExcept,
		int(point.Row)+1, int(point.Column),
		"bare 'except:' catches everything, including KeyboardInterrupt, and hides it"))
}

func (w *treeWalker) checkFunctionDef(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	point := n.StartPoint()
	line, col := int(point.Row)+1, int(point.Column)

	if !strings.HasPrefix(name, "_") && !snakeCaseRe.MatchString(name) {
		d := newDefect(KindNamingViolation, line, col,
			fmt.Sprintf("function %q should use snake_case", name))
		d.Hint = toSnakeCase(name)
		w.defects = append(w.defects, d)
	}

	if !hasDocstring(n) {
		w.defects = append(w.defects, newDefect(KindMissingDocstring, line, col,
			fmt.Sprintf("function %q has no docstring", name)))
	}

	if c := estimateComplexity(n); c > w.scanner.opts.MaxComplexity {
		w.defects = append(w.defects, newDefect(KindHighComplexity, line, col,
			fmt.Sprintf("function %q has estimated complexity %d (max %d)",
				name, c, w.scanner.opts.MaxComplexity)))
	}
}

func (w *treeWalker) checkClassDef(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	point := n.StartPoint()
	line, col := int(point.Row)+1, int(point.Column)

	if !pascalCaseRe.MatchString(name) {
		d := newDefect(KindNamingViolation, line, col,
			fmt.Sprintf("class %q should use PascalCase", name))
		d.Hint = toPascalCase(name)
		w.defects = append(w.defects, d)
	}

	if !hasDocstring(n) {
		w.defects = append(w.defects, newDefect(KindMissingDocstring, line, col,
			fmt.Sprintf("class %q has no docstring", name)))
	}
}

// collectImports records the binding names an import introduces.
func (w *treeWalker) collectImports(n *sitter.Node) {
	point := n.StartPoint()
	site := importSite{line: int(point.Row) + 1, col: int(point.Column)}

	record := func(name string) {
		if name == "" || name == "*" {
			return
		}
		if _, ok := w.imported[name]; !ok {
			w.imported[name] = site
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			// `import a.b` binds `a`; `from x import a` binds `a`.
			if n.Type() == "import_from_statement" && i == 0 {
				continue // the module being imported from
			}
			name := w.text(child)
			record(strings.SplitN(name, ".", 2)[0])
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				record(w.text(alias))
			}
		case "wildcard_import":
			// Nothing trackable.
		}
	}
}

func (w *treeWalker) finish() []Defect {
	names := make([]string, 0, len(w.imported))
	for name := range w.imported {
		if !w.used[name] && name != "__future__" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		site := w.imported[name]
		d := newDefect(KindUnusedImport, site.line, site.col,
			fmt.Sprintf("import %q appears unused", name))
		d.Hint = name
		w.defects = append(w.defects, d)
	}
	return w.defects
}

// hasDocstring reports whether a def/class body opens with a string
// expression.
func hasDocstring(def *sitter.Node) bool {
	body := def.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	return first.NamedChild(0).Type() == "string"
}

// estimateComplexity is a simplified cyclomatic estimate: one plus each
// branch point in the function body.
func estimateComplexity(def *sitter.Node) int {
	complexity := 1
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "if_statement", "elif_clause", "while_statement", "for_statement",
			"except_clause", "boolean_operator", "conditional_expression",
			"list_comprehension", "set_comprehension",
			"dictionary_comprehension", "generator_expression":
			complexity++
		case "function_definition":
			if n != def {
				return // nested defs are scored on their own
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(def)
	return complexity
}

// toSnakeCase converts CamelCase-ish names to snake_case.
func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// toPascalCase converts snake_case-ish names to PascalCase.
func toPascalCase(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == ' ' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			b.WriteRune(r - ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
		upper = false
	}
	return b.String()
}
