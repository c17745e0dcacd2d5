package pmr

import (
	"fmt"

	"fullbleed/internal/facts"
	"fullbleed/internal/model"
	"fullbleed/internal/registry"
)

// Source identifies audits emitted by this evaluator.
const Source = "fullbleed-pmr"

// Evaluate runs every PMR audit in a fixed order and aggregates them into
// weighted category scores and the overall rank. Optional inputs may be nil;
// audits that depend on them degrade to manual_needed instead of guessing.
func Evaluate(f *facts.Facts, comp *ComponentValidation, parity *ParityReport,
	run *RunReport, trace *Trace, reg *registry.Registry) ([]model.Audit, []Category, Rank) {

	ev := &auditor{facts: f, reg: reg}

	// structure
	ev.headings()
	ev.landmarks()
	ev.ids()
	ev.structTree(trace)

	// navigation
	ev.toc()
	ev.links()
	ev.parity(parity)

	// fidelity
	ev.overflow(comp)
	ev.knownLoss(comp)
	ev.activeContent()

	// packaging
	ev.title()
	ev.lang()
	ev.tables()
	ev.images()
	ev.signatures()

	debt := 0
	if run != nil {
		debt = len(run.ReviewQueueItems)
	}
	categories, rank := aggregate(ev.out, reg, debt)
	return ev.out, categories, rank
}

type auditor struct {
	facts *facts.Facts
	reg   *registry.Registry
	out   []model.Audit
}

// emit fills registry-owned fields (category, weight, class, severity, stage)
// from the audit's entry and maps the verdict onto the fixed score ladder.
func (ev *auditor) emit(auditID string, verdict model.Verdict, msg string, evidence ...model.Evidence) {
	a := model.Audit{
		AuditID:  auditID,
		Verdict:  verdict,
		Severity: model.SeverityMedium,
		Stage:    model.StagePostEmit,
		Source:   Source,
		Message:  msg,
		Evidence: evidence,
	}
	if e, ok := ev.reg.Entry(auditID); ok {
		a.Category = e.Category
		a.Weight = e.Weight
		a.Class = e.Class
		a.Severity = e.Severity
		a.Stage = e.Stage
		if e.Scored {
			if s, ok := model.AuditScore(verdict); ok {
				a.Scored = true
				a.Score = &s
			}
		}
	}
	ev.out = append(ev.out, a)
}

func (ev *auditor) headings() {
	f := ev.facts
	switch {
	case f.HeadingCount == 0:
		ev.emit("pmr.structure.headings", model.VerdictWarn,
			"document has no headings to build an outline from")
	case f.HeadingSkipCount > 0 || f.EmptyHeadingCount > 0:
		ev.emit("pmr.structure.headings", model.VerdictWarn,
			fmt.Sprintf("outline defects: %d skipped level(s), %d empty heading(s)",
				f.HeadingSkipCount, f.EmptyHeadingCount))
	default:
		ev.emit("pmr.structure.headings", model.VerdictPass,
			fmt.Sprintf("%d heading(s) form a clean outline", f.HeadingCount))
	}
}

func (ev *auditor) landmarks() {
	switch n := ev.facts.MainCount; {
	case n == 1:
		ev.emit("pmr.structure.landmarks", model.VerdictPass, "single <main> landmark")
	case n == 0:
		ev.emit("pmr.structure.landmarks", model.VerdictWarn, "no <main> landmark")
	default:
		ev.emit("pmr.structure.landmarks", model.VerdictFail,
			fmt.Sprintf("%d <main> landmarks", n))
	}
}

func (ev *auditor) ids() {
	if n := len(ev.facts.DuplicateIDs); n > 0 {
		ev.emit("pmr.structure.ids", model.VerdictFail,
			fmt.Sprintf("%d duplicated id value(s) break anchor targets", n))
		return
	}
	ev.emit("pmr.structure.ids", model.VerdictPass, "all ids unique")
}

func (ev *auditor) structTree(trace *Trace) {
	switch {
	case trace == nil:
		ev.emit("pmr.structure.tree", model.VerdictManualNeeded,
			"no post-render structure trace supplied")
	case trace.Summary.StructTreeRootPresent:
		ev.emit("pmr.structure.tree", model.VerdictPass,
			fmt.Sprintf("structure tree present (%d blocks over %d pages, extractor %s)",
				trace.Summary.TotalBlocks, trace.Summary.PageCount, trace.Extractor))
	default:
		ev.emit("pmr.structure.tree", model.VerdictFail,
			"rendered output has no structure tree root")
	}
}

func (ev *auditor) toc() {
	if ev.facts.TOCSignalCount > 0 {
		ev.emit("pmr.nav.toc", model.VerdictPass,
			fmt.Sprintf("%d table-of-contents signal(s) in CSS", ev.facts.TOCSignalCount))
		return
	}
	ev.emit("pmr.nav.toc", model.VerdictWarn,
		"no leader/target-counter signals; paged output will lack TOC page references")
}

func (ev *auditor) links() {
	if n := ev.facts.BrokenFragmentLinkCount; n > 0 {
		ev.emit("pmr.nav.links", model.VerdictFail,
			fmt.Sprintf("%d fragment link(s) point to missing anchors", n))
		return
	}
	ev.emit("pmr.nav.links", model.VerdictPass, "all fragment links resolve")
}

func (ev *auditor) parity(p *ParityReport) {
	switch {
	case p == nil:
		ev.emit("pmr.nav.parity", model.VerdictManualNeeded,
			"no page-count parity report supplied")
	case p.SourcePageCount == p.RenderPageCount:
		ev.emit("pmr.nav.parity", model.VerdictPass,
			fmt.Sprintf("rendered page count matches source (%d)", p.RenderPageCount))
	default:
		ev.emit("pmr.nav.parity", model.VerdictFail,
			fmt.Sprintf("page count mismatch: source %d, rendered %d",
				p.SourcePageCount, p.RenderPageCount),
			model.Evidence{Values: map[string]string{
				"source_page_count": fmt.Sprintf("%d", p.SourcePageCount),
				"render_page_count": fmt.Sprintf("%d", p.RenderPageCount),
			}})
	}
}

func (ev *auditor) overflow(comp *ComponentValidation) {
	switch {
	case comp == nil:
		ev.emit("pmr.fidelity.overflow", model.VerdictManualNeeded,
			"no component validation counters supplied")
	case comp.OverflowCount > 0:
		ev.emit("pmr.fidelity.overflow", model.VerdictFail,
			fmt.Sprintf("%d component(s) overflow their page box", comp.OverflowCount))
	default:
		ev.emit("pmr.fidelity.overflow", model.VerdictPass, "no layout overflow")
	}
}

func (ev *auditor) knownLoss(comp *ComponentValidation) {
	switch {
	case comp == nil:
		ev.emit("pmr.fidelity.loss", model.VerdictManualNeeded,
			"no component validation counters supplied")
	case comp.KnownLossCount > 0:
		ev.emit("pmr.fidelity.loss", model.VerdictWarn,
			fmt.Sprintf("%d component(s) degrade with known loss in paged output", comp.KnownLossCount))
	default:
		ev.emit("pmr.fidelity.loss", model.VerdictPass, "no known-loss components")
	}
}

func (ev *auditor) activeContent() {
	if n := ev.facts.ActiveContentCount(); n > 0 {
		ev.emit("pmr.fidelity.active", model.VerdictWarn,
			fmt.Sprintf("%d active-content signal(s) have no behavior on paper", n))
		return
	}
	ev.emit("pmr.fidelity.active", model.VerdictPass, "no active content")
}

func (ev *auditor) title() {
	if ev.facts.Title == "" {
		ev.emit("pmr.pack.title", model.VerdictFail, "document has no title for PDF metadata")
		return
	}
	ev.emit("pmr.pack.title", model.VerdictPass, "document title present")
}

func (ev *auditor) lang() {
	if ev.facts.HTMLLang == "" {
		ev.emit("pmr.pack.lang", model.VerdictFail, "document language missing from packaging metadata")
		return
	}
	ev.emit("pmr.pack.lang", model.VerdictPass,
		fmt.Sprintf("document language %q", ev.facts.HTMLLang))
}

func (ev *auditor) tables() {
	f := ev.facts
	switch {
	case len(f.Tables) == 0:
		ev.emit("pmr.pack.tables", model.VerdictNotApplicable, "no tables")
	case f.BareTables() > 0:
		ev.emit("pmr.pack.tables", model.VerdictWarn,
			fmt.Sprintf("%d of %d table(s) lack header semantics for tagged output",
				f.BareTables(), len(f.Tables)))
	default:
		ev.emit("pmr.pack.tables", model.VerdictPass,
			fmt.Sprintf("all %d table(s) carry header semantics", len(f.Tables)))
	}
}

func (ev *auditor) images() {
	f := ev.facts
	switch {
	case f.ImageCount == 0:
		ev.emit("pmr.pack.images", model.VerdictNotApplicable, "no images")
	case f.MissingAltCount > 0:
		ev.emit("pmr.pack.images", model.VerdictFail,
			fmt.Sprintf("%d of %d image(s) cannot be tagged without text alternatives",
				f.MissingAltCount, f.ImageCount))
	case f.TitleOnlyImageCount > 0:
		ev.emit("pmr.pack.images", model.VerdictWarn,
			fmt.Sprintf("%d image(s) rely on title attributes for naming", f.TitleOnlyImageCount))
	default:
		ev.emit("pmr.pack.images", model.VerdictPass,
			fmt.Sprintf("all %d image(s) taggable", f.ImageCount))
	}
}

func (ev *auditor) signatures() {
	if n := ev.facts.SignatureMarkerCount; n > 0 {
		ev.emit("pmr.pack.signatures", model.VerdictPass,
			fmt.Sprintf("%d signature block(s) marked for semantic extraction", n))
		return
	}
	ev.emit("pmr.pack.signatures", model.VerdictNotApplicable, "no signature blocks")
}
