package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fullbleed/internal/a11y"
	"fullbleed/internal/model"
	"fullbleed/internal/registry"
)

const cleanHTML = `<html lang="en"><head><title>Quarterly Filing</title></head>
<body><main><h1>Filing</h1><h2>Summary</h2>
<a href="#detail">Detail</a><h2 id="detail">Detail</h2>
</main></body></html>`

const cleanCSS = `@page { size: letter }
.toc a::after { content: leader('.') target-counter(attr(href), page) }`

const badHTML = `<html><body>
<img src="chart.png">
<main><h1>Untitled</h1></main>
</body></html>`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	return r
}

func baseInputs(html string) Inputs {
	return Inputs{
		HTMLPath: "doc.html",
		CSSPath:  "doc.css",
		HTML:     []byte(html),
		CSS:      []byte(cleanCSS),
		Mode:     "warn",
		Now:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRun_InvalidMode(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(cleanHTML)
	in.Mode = "strict"
	_, _, err := r.Run(context.Background(), in)

	var ie *InputError
	if !errors.As(err, &ie) || ie.Field != "mode" {
		t.Fatalf("err = %v, want InputError on mode", err)
	}
}

func TestRun_UnknownProfile(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(cleanHTML)
	in.Profile = "no-such-profile"
	_, _, err := r.Run(context.Background(), in)

	var ie *InputError
	if !errors.As(err, &ie) || ie.Field != "profile" {
		t.Fatalf("err = %v, want InputError on profile", err)
	}
}

func TestRun_EmptyHTML(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs("")
	_, _, err := r.Run(context.Background(), in)

	var ie *InputError
	if !errors.As(err, &ie) || ie.Field != "html" {
		t.Fatalf("err = %v, want InputError on html", err)
	}
}

func TestRun_MalformedDiagnostics(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(cleanHTML)
	in.Diagnostics = []byte(`{"diagnostics": [{`)
	_, _, err := r.Run(context.Background(), in)

	var ie *InputError
	if !errors.As(err, &ie) || ie.Field != "diagnostics" {
		t.Fatalf("err = %v, want InputError on diagnostics", err)
	}
}

func TestRun_MalformedClaimsIsTolerated(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(cleanHTML)
	in.Claims = []byte(`not even json`)
	a11yRep, _, err := r.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !a11yRep.Artifacts.ClaimEvidence {
		t.Error("claims artifact flag should record the supplied document")
	}
	// every claim-gated rule reads as undeclared
	for _, f := range a11yRep.Findings {
		if f.RuleID == "a11y.wcag.timing" && f.Verdict != model.VerdictNotApplicable {
			t.Errorf("a11y.wcag.timing = %s, want not_applicable", f.Verdict)
		}
	}
}

func TestRun_FullPipeline(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(badHTML)
	in.Mode = "error"
	in.Diagnostics = []byte(`{"diagnostics": [
		{"code": "img-alt-missing", "severity": "error", "message": "image without alt", "path": "body/img"},
		{"code": "unmapped-upstream-code", "severity": "warning", "message": "odd"}
	]}`)
	in.Parity = []byte(`{"source_page_count": 3, "render_page_count": 3}`)
	in.RunReport = []byte(`{"review_queue_items": [{"id": "rq-1", "kind": "contrast"}]}`)
	in.Trace = []byte(`{"extractor": "native", "summary": {"page_count": 3, "total_blocks": 9, "struct_tree_root_present": true}}`)

	a11yRep, pmrRep, err := r.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if a11yRep.Schema != "fullbleed/a11y-report/v1" || pmrRep.Schema != "fullbleed/pmr-report/v1" {
		t.Errorf("schemas = %q, %q", a11yRep.Schema, pmrRep.Schema)
	}
	if a11yRep.Target != pmrRep.Target {
		t.Errorf("reports disagree on target: %+v vs %+v", a11yRep.Target, pmrRep.Target)
	}
	if a11yRep.ConformanceStatus != "non_conformant" {
		t.Errorf("status = %q, want non_conformant (missing lang, title, alt)", a11yRep.ConformanceStatus)
	}
	if a11yRep.Gate.OK {
		t.Errorf("a11y gate = %+v, want failed in error mode", a11yRep.Gate)
	}
	if a11yRep.Observability.MergedGroups != 1 {
		t.Errorf("observability = %+v, want the img-alt pair merged", a11yRep.Observability)
	}
	if a11yRep.ManualReviewDebt.Count != 1 || pmrRep.ManualDebt.Count != 1 {
		t.Errorf("debt = %d / %d, want 1 in both reports",
			a11yRep.ManualReviewDebt.Count, pmrRep.ManualDebt.Count)
	}
	if !a11yRep.Artifacts.Diagnostics || !a11yRep.Artifacts.ParityReport || !a11yRep.Artifacts.Trace {
		t.Errorf("artifacts = %+v", a11yRep.Artifacts)
	}
	if a11yRep.Artifacts.ComponentValidation || a11yRep.Artifacts.ContrastAnalysis {
		t.Errorf("artifacts = %+v, absent inputs flagged present", a11yRep.Artifacts)
	}
	if pmrRep.Rank.Band == "" || pmrRep.Rank.Score < 0 || pmrRep.Rank.Score > 100 {
		t.Errorf("rank = %+v", pmrRep.Rank)
	}
	if pmrRep.Coverage.Fraction != 1 {
		t.Errorf("audit coverage = %+v, want every audit evaluated", pmrRep.Coverage)
	}
	if a11yRep.Tooling.GeneratedAt != "2026-08-01T12:00:00Z" {
		t.Errorf("tooling = %+v, want pinned timestamp", a11yRep.Tooling)
	}
}

func TestRun_DeterministicWithPinnedClock(t *testing.T) {
	r := NewRunner(testRegistry(t))
	in := baseInputs(badHTML)

	a1, p1, err := r.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a2, p2, err := r.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a1, a2); diff != "" {
		t.Errorf("a11y reports differ:\n%s", diff)
	}
	if diff := cmp.Diff(p1, p2); diff != "" {
		t.Errorf("pmr reports differ:\n%s", diff)
	}
}

// fixedContrast implements ContrastAnalyzer with a canned result.
type fixedContrast struct {
	res *a11y.ContrastResult
	err error
}

func (f *fixedContrast) AnalyzeContrast(context.Context, string, string) (*a11y.ContrastResult, error) {
	return f.res, f.err
}

// inert is a collaborator with no capabilities this engine consumes.
type inert struct{}

func contrastFinding(t *testing.T, findings []model.Finding) model.Finding {
	t.Helper()
	for _, f := range findings {
		if f.RuleID == "a11y.color.contrast" {
			return f
		}
	}
	t.Fatal("a11y.color.contrast finding missing")
	return model.Finding{}
}

func TestRun_ContrastCapabilityNegotiation(t *testing.T) {
	reg := testRegistry(t)

	t.Run("analyzer result wrapped verbatim", func(t *testing.T) {
		r := NewRunner(reg, &inert{}, &fixedContrast{
			res: &a11y.ContrastResult{Verdict: model.VerdictPass, Confidence: model.ConfidenceHigh, MinRatio: 7.2},
		})
		rep, _, err := r.Run(context.Background(), baseInputs(cleanHTML))
		if err != nil {
			t.Fatal(err)
		}
		f := contrastFinding(t, rep.Findings)
		if f.Verdict != model.VerdictPass || f.Confidence != model.ConfidenceHigh {
			t.Errorf("contrast finding = %+v, want seeded verdict", f)
		}
		if !rep.Artifacts.ContrastAnalysis {
			t.Error("contrast artifact flag not set")
		}
	})

	t.Run("no capable collaborator degrades to manual", func(t *testing.T) {
		r := NewRunner(reg, &inert{})
		rep, _, err := r.Run(context.Background(), baseInputs(cleanHTML))
		if err != nil {
			t.Fatal(err)
		}
		f := contrastFinding(t, rep.Findings)
		if f.Verdict != model.VerdictManualNeeded {
			t.Errorf("contrast finding = %s, want manual_needed", f.Verdict)
		}
	})

	t.Run("analyzer failure degrades, not fails", func(t *testing.T) {
		r := NewRunner(reg, &fixedContrast{err: fmt.Errorf("renderer unavailable")})
		rep, _, err := r.Run(context.Background(), baseInputs(cleanHTML))
		if err != nil {
			t.Fatalf("analyzer failure must not fail the run: %v", err)
		}
		f := contrastFinding(t, rep.Findings)
		if f.Verdict != model.VerdictManualNeeded {
			t.Errorf("contrast finding = %s, want manual_needed", f.Verdict)
		}
		if rep.Artifacts.ContrastAnalysis {
			t.Error("failed analysis must not claim the artifact")
		}
	})
}

func TestCache_ExtractOnce(t *testing.T) {
	c := NewCache()
	f1, err := c.extract("k", cleanHTML, cleanCSS)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := c.extract("k", cleanHTML, cleanCSS)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("same key extracted twice")
	}

	if _, err := c.extract("bad", "", ""); err == nil {
		t.Error("empty document should not parse")
	}
}
