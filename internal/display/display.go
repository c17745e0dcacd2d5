// Package display renders reports for humans.
//
// Rule: codes are for machines, words are for humans. JSON keeps the raw
// verdict and severity codes; everything here is for terminals and markdown.
package display

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fullbleed/internal/model"
	"fullbleed/internal/report"
	"fullbleed/internal/suite"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// --- human names for machine codes ---

var verdicts = map[model.Verdict]string{
	model.VerdictPass:          "Pass",
	model.VerdictFail:          "FAIL",
	model.VerdictWarn:          "Warn",
	model.VerdictManualNeeded:  "Manual Review",
	model.VerdictNotApplicable: "N/A",
}

// Verdict returns the human-readable name for a verdict code.
// Unknown codes are returned as-is.
func Verdict(v model.Verdict) string {
	if name, ok := verdicts[v]; ok {
		return name
	}
	return string(v)
}

var severities = map[model.Severity]string{
	model.SeverityCritical: "Critical",
	model.SeverityHigh:     "High",
	model.SeverityMedium:   "Medium",
	model.SeverityLow:      "Low",
	model.SeverityInfo:     "Info",
}

// Severity returns the human-readable name for a severity code.
func Severity(s model.Severity) string {
	if name, ok := severities[s]; ok {
		return name
	}
	return string(s)
}

var stages = map[model.Stage]string{
	model.StagePreRender:  "Pre-render",
	model.StagePostEmit:   "Post-emit",
	model.StagePostRender: "Post-render",
	model.StageAdapter:    "Adapter",
}

// Stage returns the human-readable name for a pipeline stage code.
func Stage(s model.Stage) string {
	if name, ok := stages[s]; ok {
		return name
	}
	return string(s)
}

var bands = map[string]string{
	"excellent": "Excellent",
	"good":      "Good",
	"watch":     "Watch",
	"poor":      "Poor",
}

// Band returns the human-readable name for a rank band.
func Band(b string) string {
	if name, ok := bands[b]; ok {
		return name
	}
	return b
}

// Status returns the human-readable conformance status line.
func Status(s string) string {
	switch s {
	case "non_conformant":
		return "Non-conformant"
	case "manual_review_required":
		return "Manual review required"
	case "machine_checks_passed":
		return "Machine checks passed"
	}
	return s
}

// --- tables ---

func newTable(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// FindingsTable renders the accessibility findings, pass and n/a rows last.
func FindingsTable(findings []model.Finding, m Mode) string {
	w := newTable(m)
	w.AppendHeader(table.Row{"Rule", "Verdict", "Severity", "Stage", "Message"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignCenter},
		{Number: 5, WidthMax: 60},
	})

	appendIf := func(match func(model.Verdict) bool) {
		for _, f := range findings {
			if match(f.Verdict) {
				w.AppendRow(table.Row{f.RuleID, Verdict(f.Verdict), Severity(f.Severity), Stage(f.Stage), f.Message})
			}
		}
	}
	appendIf(func(v model.Verdict) bool {
		return v == model.VerdictFail || v == model.VerdictWarn || v == model.VerdictManualNeeded
	})
	appendIf(func(v model.Verdict) bool {
		return v == model.VerdictPass || v == model.VerdictNotApplicable
	})
	return render(w, m)
}

// AuditsTable renders the PMR audits with their scores.
func AuditsTable(audits []model.Audit, m Mode) string {
	w := newTable(m)
	w.AppendHeader(table.Row{"Audit", "Category", "Verdict", "Score", "Message"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})
	for _, a := range audits {
		score := "-"
		if a.Score != nil {
			score = fmt.Sprintf("%.1f", *a.Score)
		}
		w.AppendRow(table.Row{a.AuditID, a.Category, Verdict(a.Verdict), score, a.Message})
	}
	return render(w, m)
}

// RankTable renders the per-category PMR scores with the overall rank as the
// footer.
func RankTable(rep *report.PMRReport, m Mode) string {
	w := newTable(m)
	w.AppendHeader(table.Row{"Category", "Weight", "Score", "Confidence", "Audits"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, c := range rep.Categories {
		w.AppendRow(table.Row{
			c.Name,
			fmt.Sprintf("%.1f", c.Weight),
			fmt.Sprintf("%.1f", c.Score),
			fmt.Sprintf("%.1f", c.Confidence),
			fmt.Sprintf("%d/%d", c.ScoredCount, c.AuditCount),
		})
	}
	w.AppendFooter(table.Row{
		"Overall (" + Band(rep.Rank.Band) + ")",
		"",
		fmt.Sprintf("%.1f", rep.Rank.Score),
		fmt.Sprintf("%.1f", rep.Rank.Confidence),
		"",
	})
	return render(w, m)
}

// SuiteTable renders one row per fixture.
func SuiteTable(results []suite.Result, m Mode) string {
	w := newTable(m)
	w.AppendHeader(table.Row{"Fixture", "Result", "Detail"})
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil:
			w.AppendRow(table.Row{r.Name, "ERROR", r.Err.Error()})
		case len(r.Mismatches) > 0:
			w.AppendRow(table.Row{r.Name, "MISMATCH", strings.Join(r.Mismatches, "; ")})
		default:
			w.AppendRow(table.Row{r.Name, "ok", fmt.Sprintf("score %.1f, %s",
				r.PMR.Rank.Score, Status(r.A11y.ConformanceStatus))})
		}
	}
	s := suite.Summarize(results)
	w.AppendFooter(table.Row{
		fmt.Sprintf("%d fixtures", s.Total), "",
		fmt.Sprintf("%d ok, %d mismatched, %d errored", s.Passed, s.Mismatched, s.Errored),
	})
	return render(w, m)
}

// Headline is the one-line run summary printed above the tables.
func Headline(a11y *report.A11yReport, pmr *report.PMRReport) string {
	gateWord := "gate passed"
	if !a11y.Gate.OK || !pmr.Gate.OK {
		gateWord = "gate FAILED"
	}
	return fmt.Sprintf("%s: %s, PMR %.1f (%s), %s",
		a11y.Target.HTMLPath, Status(a11y.ConformanceStatus),
		pmr.Rank.Score, Band(pmr.Rank.Band), gateWord)
}
