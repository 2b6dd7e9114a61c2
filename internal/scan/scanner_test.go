package scan

import (
	"errors"
	"strings"
	"testing"
)

func mustScan(t *testing.T, code string) []Defect {
	t.Helper()
	defects, err := NewScanner(Options{}).Scan(code)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return defects
}

func kinds(defects []Defect) map[Kind]int {
	return CountByKind(defects)
}

func findKind(defects []Defect, kind Kind) (Defect, bool) {
	for _, d := range defects {
		if d.Kind == kind {
			return d, true
		}
	}
	return Defect{}, false
}

func TestScanCleanCode(t *testing.T) {
	code := strings.Join([]string{
		"import sys",
		"",
		"",
		"def greet(name):",
		`    """Return a greeting."""`,
		"    return f\"hello {name}\"",
		"",
		"",
		"print(greet(sys.argv[1]))",
		"",
	}, "\n")
	defects := mustScan(t, code)
	if len(defects) != 0 {
		t.Errorf("clean code produced defects: %v", defects)
	}
}

func TestScanRejectsNonText(t *testing.T) {
	for _, code := range []string{"x = 1\x00", "bad \xff\xfe utf8"} {
		_, err := NewScanner(Options{}).Scan(code)
		if !errors.Is(err, ErrNotText) {
			t.Errorf("%q: err = %v, want ErrNotText", code, err)
		}
	}
}

func TestScanMissingColon(t *testing.T) {
	code := "def f(a, b)\n    return a + b\n"
	defects := mustScan(t, code)
	if len(defects) == 0 {
		t.Fatal("no defects for missing colon")
	}
	if defects[0].Kind != KindParseFailure {
		t.Errorf("first defect = %v, want parse failure first", defects[0].Kind)
	}
	d, ok := findKind(defects, KindMissingBlockColon)
	if !ok {
		t.Fatal("missing-colon heuristic did not fire")
	}
	if d.Line != 1 {
		t.Errorf("missing colon at line %d, want 1", d.Line)
	}
}

func TestScanColonHeuristicSkipsContinuations(t *testing.T) {
	cases := []string{
		"def f(a,\n      b):\n    pass\n",
		"result = call(\n    arg,\n)\n",
		"if (a and\n        b):\n    pass\n",
		"total = (1 +\n    2)\n",
	}
	for _, code := range cases {
		defects := mustScan(t, code)
		if _, ok := findKind(defects, KindMissingBlockColon); ok {
			t.Errorf("continuation flagged as missing colon:\n%s", code)
		}
	}
}

func TestScanBareExcept(t *testing.T) {
	code := strings.Join([]string{
		"try:",
		"    risky()",
		"except:",
		"    pass",
		"",
	}, "\n")
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindBareExcept)
	if !ok {
		t.Fatal("bare except not detected")
	}
	if d.Line != 3 {
		t.Errorf("bare except at line %d, want 3", d.Line)
	}
	if d.Severity != SeverityWarning {
		t.Errorf("severity = %v, want warning", d.Severity)
	}
}

func TestScanNamedExceptNotFlagged(t *testing.T) {
	code := strings.Join([]string{
		"try:",
		"    risky()",
		"except ValueError:",
		"    pass",
		"except (KeyError, TypeError) as exc:",
		"    raise exc",
		"",
	}, "\n")
	defects := mustScan(t, code)
	if _, ok := findKind(defects, KindBareExcept); ok {
		t.Errorf("named handlers flagged as bare: %v", defects)
	}
}

func TestScanTrailingWhitespace(t *testing.T) {
	code := "x = 1   \ny = 2\n    \n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindTrailingWhitespace)
	if !ok {
		t.Fatal("trailing whitespace not detected")
	}
	if d.Line != 1 {
		t.Errorf("flagged line %d, want 1", d.Line)
	}
	// A whitespace-only line is not trailing whitespace.
	if n := kinds(defects)[KindTrailingWhitespace]; n != 1 {
		t.Errorf("flagged %d lines, want 1", n)
	}
}

func TestScanLongLineThreshold(t *testing.T) {
	s := NewScanner(Options{LongLineThreshold: 40})
	line := "x = " + strings.Repeat("1 + ", 15) + "1"
	defects, err := s.Scan(line + "\n")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	d, ok := findKind(defects, KindExcessiveLineLength)
	if !ok {
		t.Fatal("long line not detected")
	}
	if !strings.Contains(d.Message, "> 40") {
		t.Errorf("message = %q", d.Message)
	}
}

func TestScanMixedIndentation(t *testing.T) {
	code := strings.Join([]string{
		"def f():",
		"\tx = 1",
		"        y = 2",
		"",
		"z = 3",
	}, "\n")
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindMixedIndentation)
	if !ok {
		t.Fatal("mixed indentation not detected")
	}
	if d.Line != 2 || d.EndLine != 3 {
		t.Errorf("block = %d-%d, want 2-3", d.Line, d.EndLine)
	}
}

func TestScanTabsOnlyNotMixed(t *testing.T) {
	code := "def f():\n\tx = 1\n\ty = 2\n"
	defects := mustScan(t, code)
	if _, ok := findKind(defects, KindMixedIndentation); ok {
		t.Errorf("all-tab block flagged as mixed")
	}
}

func TestScanUnusedImport(t *testing.T) {
	code := strings.Join([]string{
		"import os",
		"import sys",
		"",
		"print(sys.argv)",
		"",
	}, "\n")
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindUnusedImport)
	if !ok {
		t.Fatal("unused import not detected")
	}
	if d.Hint != "os" {
		t.Errorf("hint = %q, want os", d.Hint)
	}
	if d.Line != 1 {
		t.Errorf("flagged line %d, want 1", d.Line)
	}
	if n := kinds(defects)[KindUnusedImport]; n != 1 {
		t.Errorf("flagged %d imports, want 1", n)
	}
}

func TestScanAliasedImport(t *testing.T) {
	code := "import json as j\nimport collections as c\n\nprint(c.Counter())\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindUnusedImport)
	if !ok {
		t.Fatal("unused aliased import not detected")
	}
	if d.Hint != "j" {
		t.Errorf("hint = %q, want j", d.Hint)
	}
}

func TestScanFromImport(t *testing.T) {
	// `from os import path` binds path, not os.
	code := "from os import path\n\nx = 1\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindUnusedImport)
	if !ok {
		t.Fatal("unused from-import not detected")
	}
	if d.Hint != "path" {
		t.Errorf("hint = %q, want path", d.Hint)
	}
}

func TestScanFunctionNaming(t *testing.T) {
	code := "def BadName(x):\n    \"\"\"Doc.\"\"\"\n    return x\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindNamingViolation)
	if !ok {
		t.Fatal("naming violation not detected")
	}
	if d.Hint != "bad_name" {
		t.Errorf("hint = %q, want bad_name", d.Hint)
	}
	if !strings.Contains(d.Message, `"BadName"`) {
		t.Errorf("message = %q", d.Message)
	}
}

func TestScanClassNaming(t *testing.T) {
	code := "class my_thing:\n    \"\"\"Doc.\"\"\"\n\n    pass\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindNamingViolation)
	if !ok {
		t.Fatal("class naming violation not detected")
	}
	if d.Hint != "MyThing" {
		t.Errorf("hint = %q, want MyThing", d.Hint)
	}
}

func TestScanPrivateNamesExempt(t *testing.T) {
	code := "def _Helper(x):\n    \"\"\"Doc.\"\"\"\n    return x\n"
	defects := mustScan(t, code)
	if _, ok := findKind(defects, KindNamingViolation); ok {
		t.Errorf("underscore-prefixed name flagged")
	}
}

func TestScanMissingDocstring(t *testing.T) {
	code := "def f(x):\n    return x\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindMissingDocstring)
	if !ok {
		t.Fatal("missing docstring not detected")
	}
	if d.Line != 1 {
		t.Errorf("flagged line %d, want 1", d.Line)
	}
}

func TestScanHighComplexity(t *testing.T) {
	s := NewScanner(Options{MaxComplexity: 2})
	code := strings.Join([]string{
		"def decide(a, b, c):",
		`    """Branch a lot."""`,
		"    if a:",
		"        return 1",
		"    if b:",
		"        return 2",
		"    if c:",
		"        return 3",
		"    return 0",
		"",
	}, "\n")
	defects, err := s.Scan(code)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	d, ok := findKind(defects, KindHighComplexity)
	if !ok {
		t.Fatal("high complexity not detected")
	}
	if d.Kind.Fixable() {
		t.Errorf("high complexity marked fixable")
	}
}

func TestScanParseFailureBlocksTreeChecks(t *testing.T) {
	// The bare except would be flagged on a clean parse; with the broken
	// def above it, only parse and line heuristics run.
	code := strings.Join([]string{
		"def f(",
		"try:",
		"    pass",
		"except:",
		"    pass",
		"",
	}, "\n")
	defects := mustScan(t, code)
	if _, ok := findKind(defects, KindParseFailure); !ok {
		t.Fatal("parse failure not detected")
	}
	if _, ok := findKind(defects, KindBareExcept); ok {
		t.Errorf("tree check ran on broken parse")
	}
}

func TestScanUnterminatedStringHint(t *testing.T) {
	code := `name = "alice` + "\n"
	defects := mustScan(t, code)
	d, ok := findKind(defects, KindParseFailure)
	if !ok {
		t.Fatal("unterminated string not a parse failure")
	}
	if d.Hint != `"` {
		t.Errorf("hint = %q, want a double quote", d.Hint)
	}
}

func TestScanOrderingDeterministic(t *testing.T) {
	code := strings.Join([]string{
		"import os",
		"x = 1   ",
		"def Bad(y):",
		"    return y",
		"",
	}, "\n")
	first := mustScan(t, code)
	for i := 0; i < 3; i++ {
		again := mustScan(t, code)
		if len(again) != len(first) {
			t.Fatalf("defect count varies: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if again[j].Kind != first[j].Kind || again[j].Line != first[j].Line {
				t.Fatalf("ordering varies at %d: %v vs %v", j, again[j], first[j])
			}
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Line < first[i-1].Line {
			t.Errorf("lines not ascending: %v then %v", first[i-1], first[i])
		}
	}
}

func TestScanMaxDefectsCap(t *testing.T) {
	s := NewScanner(Options{MaxDefects: 3})
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("x = 1   \n")
	}
	defects, err := s.Scan(b.String())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(defects) != 3 {
		t.Errorf("got %d defects, want cap of 3", len(defects))
	}
}

func TestTotalWeight(t *testing.T) {
	// Parse failure 1.0, mixed indentation 0.6, trailing whitespace 0.1.
	defects := []Defect{
		{Kind: KindParseFailure},
		{Kind: KindMixedIndentation},
		{Kind: KindTrailingWhitespace},
	}
	got := TotalWeight(defects)
	want := 1.0 + 0.6 + 0.1
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("weight = %v, want %v", got, want)
	}
}

func TestKindStrings(t *testing.T) {
	for k := KindParseFailure; k <= KindHighComplexity; k++ {
		s := k.String()
		if s == "" || s == "unknown" {
			t.Errorf("kind %d has no name", int(k))
		}
		if strings.ToLower(s) != s {
			t.Errorf("kind name %q not snake_case", s)
		}
	}
}
