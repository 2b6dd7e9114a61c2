// Package report renders scan results and cycle outcomes for the
// terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pyheal/internal/diff"
	"pyheal/internal/engine"
	"pyheal/internal/scan"
)

// Styles holds the rendering styles for one reporter.
type Styles struct {
	File     lipgloss.Style
	Location lipgloss.Style
	Muted    lipgloss.Style

	Critical lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style

	Added   lipgloss.Style
	Removed lipgloss.Style
	Hunk    lipgloss.Style

	Good lipgloss.Style
	Bad  lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		File:     lipgloss.NewStyle().Bold(true),
		Location: lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),

		Critical: lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),

		Added:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Removed: lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Hunk:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac")),

		Good: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		Bad:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
	}
}

// Reporter writes human-readable diagnostics to a single output stream.
type Reporter struct {
	out    io.Writer
	styles Styles
}

// New creates a reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out, styles: DefaultStyles()}
}

func (r *Reporter) severityStyle(s scan.Severity) lipgloss.Style {
	switch s {
	case scan.SeverityCritical:
		return r.styles.Critical
	case scan.SeverityError:
		return r.styles.Error
	case scan.SeverityWarning:
		return r.styles.Warning
	default:
		return r.styles.Info
	}
}

// Defects prints one line per defect, grouped under the filename.
func (r *Reporter) Defects(filename string, defects []scan.Defect) {
	fmt.Fprintln(r.out, r.styles.File.Render(filename))
	if len(defects) == 0 {
		fmt.Fprintf(r.out, "  %s\n", r.styles.Good.Render("no defects"))
		return
	}
	for _, d := range defects {
		loc := fmt.Sprintf("%d", d.Line)
		if d.EndLine > d.Line {
			loc = fmt.Sprintf("%d-%d", d.Line, d.EndLine)
		}
		fmt.Fprintf(r.out, "  %s  %s  %s\n",
			r.styles.Location.Render(fmt.Sprintf("%6s", loc)),
			r.severityStyle(d.Severity).Render(fmt.Sprintf("%-8s", d.Severity)),
			d.Message)
	}
	fmt.Fprintf(r.out, "  %s\n",
		r.styles.Muted.Render(fmt.Sprintf("%d defects, weight %.2f",
			len(defects), scan.TotalWeight(defects))))
}

// Cycle prints a one-line summary of a repair cycle.
func (r *Reporter) Cycle(rec engine.CycleRecord) {
	trend := r.styles.Good
	if len(rec.DefectsAfter) > len(rec.DefectsBefore) {
		trend = r.styles.Bad
	}
	status := ""
	if rec.Stable {
		status = "  " + r.styles.Muted.Render("(stable)")
	}
	fmt.Fprintf(r.out, "cycle %d: defects %s, %d fixed, %d deferred, %s%s\n",
		rec.Index,
		trend.Render(fmt.Sprintf("%d -> %d", len(rec.DefectsBefore), len(rec.DefectsAfter))),
		rec.FixesApplied,
		rec.FixesDeferred,
		rec.Duration.Round(100*time.Microsecond),
		status)
}

// Diff prints a colored unified diff of a cycle's change.
func (r *Reporter) Diff(p diff.Patch) {
	if p.Empty() {
		return
	}
	added, removed := p.Stats()
	fmt.Fprintf(r.out, "%s %s\n",
		r.styles.File.Render(p.Name),
		r.styles.Muted.Render(fmt.Sprintf("(+%d -%d)", added, removed)))
	for _, h := range p.Hunks {
		fmt.Fprintln(r.out, r.styles.Hunk.Render(h.Header()))
		for _, l := range h.Lines {
			switch l.Op {
			case diff.OpAdd:
				fmt.Fprintln(r.out, r.styles.Added.Render("+"+l.Text))
			case diff.OpDelete:
				fmt.Fprintln(r.out, r.styles.Removed.Render("-"+l.Text))
			default:
				fmt.Fprintln(r.out, " "+l.Text)
			}
		}
	}
}

// Summary prints the outcome of a whole healing run.
func (r *Reporter) Summary(filename string, records []engine.CycleRecord) {
	if len(records) == 0 {
		return
	}
	first, last := records[0], records[len(records)-1]
	applied := 0
	for _, rec := range records {
		applied += rec.FixesApplied
	}

	verdict := r.styles.Warning.Render("defects remain")
	if last.Clean() {
		verdict = r.styles.Good.Render("clean")
	} else if last.Stable {
		verdict = r.styles.Muted.Render("stable, unfixable defects remain")
	}
	fmt.Fprintf(r.out, "%s: %d cycles, %d fixes, defects %d -> %d, %s\n",
		r.styles.File.Render(filename),
		len(records),
		applied,
		len(first.DefectsBefore),
		len(last.DefectsAfter),
		verdict)
}
