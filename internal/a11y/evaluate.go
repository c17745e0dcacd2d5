package a11y

import (
	"fmt"
	"regexp"

	"fullbleed/internal/facts"
	"fullbleed/internal/model"
	"fullbleed/internal/registry"
)

// Source identifies machine findings from this evaluator.
const Source = "fullbleed"

// ContractSource marks findings bridged from the authoring-side pre-render
// accessibility contract. The correlation engine keys on it.
const ContractSource = "a11y_contract"

// contractRuleMap is the fixed mapping from upstream diagnostic codes to rule
// ids. Codes without a mapping land on a11y.contract.misc.
var contractRuleMap = map[string]string{
	"doc-lang-missing":      "a11y.doc.lang",
	"doc-title-missing":     "a11y.doc.title",
	"heading-skip":          "a11y.doc.headings",
	"duplicate-id":          "a11y.id.unique",
	"img-alt-missing":       "a11y.img.alt",
	"control-label-missing": "a11y.form.labels",
	"link-text-generic":     "a11y.link.name",
	"table-headers-missing": "a11y.table.headers",
}

// langPattern accepts a primary language subtag with optional subtags.
var langPattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]+)*$`)

// claimRule binds one claim-evidence-gated rule to its namespaced criterion.
type claimRule struct {
	ruleID    string
	namespace string
	criterion string
}

// claimRules is evaluated in this exact order.
var claimRules = []claimRule{
	{"a11y.wcag.timing", "wcag20", "timing"},
	{"a11y.wcag.color", "wcag20", "color"},
	{"a11y.wcag.captions", "wcag20", "captions"},
	{"a11y.wcag.error_prevention", "wcag20", "error_prevention"},
	{"a11y.wcag.navigation", "wcag20", "navigation"},
	{"a11y.wcag.sensory", "wcag20", "sensory"},
	{"a11y.wcag.audio_control", "wcag20", "audio_control"},
	{"a11y.s508.tech_support", "technology_support", "assistive_technology"},
}

// Evaluate runs every accessibility rule against the facts in a fixed,
// deterministic order. Later stages depend on first-seen-wins tie-breaking,
// so the ordering here is part of the contract.
func Evaluate(f *facts.Facts, diags *Diagnostics, claims *ClaimEvidence,
	contrast *ContrastResult, reg *registry.Registry) []model.Finding {

	ev := &evaluator{facts: f, reg: reg}

	ev.structural()
	ev.countGated()
	ev.activeContent()
	ev.contrast(contrast)
	ev.claimGated(claims)
	ev.bridgeContract(diags)

	return ev.out
}

type evaluator struct {
	facts *facts.Facts
	reg   *registry.Registry
	out   []model.Finding
}

// emit builds a Finding with severity, stage, and verification mode taken
// from the registry entry so the report and the registry cannot disagree.
func (ev *evaluator) emit(ruleID string, verdict model.Verdict, conf model.Confidence,
	msg string, evidence ...model.Evidence) {

	fd := model.Finding{
		RuleID:           ruleID,
		Applicability:    model.Applicable,
		VerificationMode: model.ModeMachine,
		Verdict:          verdict,
		Severity:         model.SeverityMedium,
		Confidence:       conf,
		Stage:            model.StagePostEmit,
		Source:           Source,
		Message:          msg,
		Evidence:         evidence,
	}
	if verdict == model.VerdictNotApplicable {
		fd.Applicability = model.NotApplicable
	}
	if e, ok := ev.reg.Entry(ruleID); ok {
		fd.Severity = e.Severity
		fd.Stage = e.Stage
		fd.VerificationMode = e.VerificationMode
	}
	ev.out = append(ev.out, fd)
}

// --- structural rules: never not_applicable ---

func (ev *evaluator) structural() {
	f := ev.facts

	if f.HTMLLang == "" {
		ev.emit("a11y.doc.lang", model.VerdictFail, model.ConfidenceCertain,
			"document has no lang attribute on <html>")
	} else if !langPattern.MatchString(f.HTMLLang) {
		ev.emit("a11y.doc.lang", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("lang %q is not a valid language tag", f.HTMLLang),
			model.Evidence{Values: map[string]string{"lang": f.HTMLLang}})
	} else {
		ev.emit("a11y.doc.lang", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("document language is %q", f.HTMLLang))
	}

	if f.Title == "" {
		ev.emit("a11y.doc.title", model.VerdictFail, model.ConfidenceCertain,
			"document has no non-empty <title>")
	} else {
		ev.emit("a11y.doc.title", model.VerdictPass, model.ConfidenceCertain,
			"document title present")
	}

	if f.MainCount > 1 {
		ev.emit("a11y.landmark.main", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d <main> landmarks; a document must have at most one", f.MainCount))
	} else {
		ev.emit("a11y.landmark.main", model.VerdictPass, model.ConfidenceCertain,
			"at most one <main> landmark")
	}

	if len(f.DuplicateIDs) > 0 {
		// one evidence row per duplicated value, not per occurrence
		evidence := make([]model.Evidence, 0, len(f.DuplicateIDs))
		for _, id := range f.DuplicateIDs {
			evidence = append(evidence, model.Evidence{
				Selector: "#" + id,
				Values:   map[string]string{"id": id},
			})
		}
		ev.emit("a11y.id.unique", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d id value(s) used more than once", len(f.DuplicateIDs)),
			evidence...)
	} else {
		ev.emit("a11y.id.unique", model.VerdictPass, model.ConfidenceCertain,
			"all ids unique")
	}

	if len(f.DanglingIDRefs) > 0 {
		evidence := make([]model.Evidence, 0, len(f.DanglingIDRefs))
		for _, ref := range f.DanglingIDRefs {
			evidence = append(evidence, model.Evidence{
				Selector: "#" + ref,
				Values:   map[string]string{"idref": ref},
			})
		}
		ev.emit("a11y.aria.idrefs", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d ARIA reference(s) point to ids that do not exist", len(f.DanglingIDRefs)),
			evidence...)
	} else {
		ev.emit("a11y.aria.idrefs", model.VerdictPass, model.ConfidenceCertain,
			"all ARIA id references resolve")
	}
}

// --- count-gated rules: not_applicable when the subject is absent ---

func (ev *evaluator) countGated() {
	f := ev.facts

	switch {
	case f.HeadingCount == 0:
		ev.emit("a11y.doc.headings", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no headings in document")
	case f.HeadingSkipCount > 0 || f.EmptyHeadingCount > 0:
		ev.emit("a11y.doc.headings", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d skipped heading level(s), %d empty heading(s)",
				f.HeadingSkipCount, f.EmptyHeadingCount))
	default:
		ev.emit("a11y.doc.headings", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("%d heading(s) in order", f.HeadingCount))
	}

	switch {
	case f.ImageCount == 0:
		ev.emit("a11y.img.alt", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no images in document")
	case f.MissingAltCount > 0:
		ev.emit("a11y.img.alt", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d of %d image(s) have no text alternative", f.MissingAltCount, f.ImageCount),
			model.Evidence{Values: map[string]string{
				"missing": itoa(f.MissingAltCount), "images": itoa(f.ImageCount)}})
	case f.TitleOnlyImageCount > 0:
		ev.emit("a11y.img.alt", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d image(s) named only via title attribute", f.TitleOnlyImageCount))
	default:
		ev.emit("a11y.img.alt", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("all %d image(s) have text alternatives", f.ImageCount))
	}

	switch {
	case f.FormControlCount == 0:
		ev.emit("a11y.form.labels", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no form controls in document")
	case f.UnlabeledControlCount > 0:
		ev.emit("a11y.form.labels", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d of %d control(s) have no label", f.UnlabeledControlCount, f.FormControlCount))
	case f.InvalidControlCount > 0:
		ev.emit("a11y.form.labels", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d control(s) marked aria-invalid", f.InvalidControlCount))
	default:
		ev.emit("a11y.form.labels", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("all %d control(s) labeled", f.FormControlCount))
	}

	switch {
	case f.LinkCount == 0:
		ev.emit("a11y.link.name", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no links in document")
	case f.UnnamedLinkCount > 0:
		ev.emit("a11y.link.name", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d of %d link(s) have no accessible name", f.UnnamedLinkCount, f.LinkCount))
	case f.GenericLinkCount > 0:
		ev.emit("a11y.link.name", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d link(s) use generic text such as \"click here\"", f.GenericLinkCount))
	default:
		ev.emit("a11y.link.name", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("all %d link(s) named", f.LinkCount))
	}

	focusable := f.LinkCount + f.FormControlCount
	switch {
	case focusable == 0 && f.PositiveTabindexCount == 0:
		ev.emit("a11y.focus.order", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no focusable content")
	case f.PositiveTabindexCount > 0:
		ev.emit("a11y.focus.order", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d element(s) with positive tabindex override document focus order",
				f.PositiveTabindexCount))
	default:
		ev.emit("a11y.focus.order", model.VerdictPass, model.ConfidenceCertain,
			"focus order follows document order")
	}

	switch {
	case f.InlineHandlerCount == 0:
		ev.emit("a11y.keyboard.operability", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no inline event handlers")
	default:
		ev.emit("a11y.keyboard.operability", model.VerdictWarn, model.ConfidenceMedium,
			fmt.Sprintf("%d inline handler(s) may lack keyboard equivalents", f.InlineHandlerCount))
	}

	switch {
	case len(f.Tables) == 0:
		ev.emit("a11y.table.headers", model.VerdictNotApplicable, model.ConfidenceCertain,
			"no tables in document")
	case f.BareTables() > 0:
		ev.emit("a11y.table.headers", model.VerdictWarn, model.ConfidenceHigh,
			fmt.Sprintf("%d of %d table(s) have neither caption nor header cells",
				f.BareTables(), len(f.Tables)))
	default:
		ev.emit("a11y.table.headers", model.VerdictPass, model.ConfidenceCertain,
			fmt.Sprintf("all %d table(s) carry header metadata", len(f.Tables)))
	}
}

// --- active-content rules: a paged document must not depend on runtime behavior ---

func (ev *evaluator) activeContent() {
	f := ev.facts

	if f.AutoplayCount > 0 {
		ev.emit("a11y.media.autoplay", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d media element(s) autoplay", f.AutoplayCount))
	} else {
		ev.emit("a11y.media.autoplay", model.VerdictPass, model.ConfidenceCertain,
			"no autoplaying media")
	}

	if f.BlinkMarqueeCount > 0 {
		ev.emit("a11y.motion.blink", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d blink/marquee element(s)", f.BlinkMarqueeCount))
	} else {
		ev.emit("a11y.motion.blink", model.VerdictPass, model.ConfidenceCertain,
			"no blinking or scrolling content")
	}

	if f.MetaRefreshCount > 0 {
		ev.emit("a11y.doc.refresh", model.VerdictFail, model.ConfidenceCertain,
			fmt.Sprintf("%d meta refresh directive(s)", f.MetaRefreshCount))
	} else {
		ev.emit("a11y.doc.refresh", model.VerdictPass, model.ConfidenceCertain,
			"no timed refresh")
	}
}

// --- render-derived contrast ---

func (ev *evaluator) contrast(res *ContrastResult) {
	if res == nil {
		ev.emit("a11y.color.contrast", model.VerdictManualNeeded, model.ConfidenceLow,
			"no render-side contrast analysis available; review contrast manually")
		return
	}
	ev.emit("a11y.color.contrast", res.Verdict, res.Confidence,
		contrastMessage(res),
		model.Evidence{Values: map[string]string{
			"min_ratio": fmt.Sprintf("%.2f", res.MinRatio),
		}})
}

func contrastMessage(res *ContrastResult) string {
	if res.Detail != "" {
		return res.Detail
	}
	return fmt.Sprintf("render-side contrast analysis: minimum ratio %.2f", res.MinRatio)
}

// --- claim-evidence-gated WCAG criteria ---

func (ev *evaluator) claimGated(claims *ClaimEvidence) {
	for _, cr := range claimRules {
		c := claims.Get(cr.namespace, cr.criterion)
		switch {
		case !c.ScopeDeclared:
			ev.emit(cr.ruleID, model.VerdictNotApplicable, model.ConfidenceCertain,
				fmt.Sprintf("criterion %s.%s not declared in scope", cr.namespace, cr.criterion))
		case c.Assessed && c.BasisRecorded:
			ev.emit(cr.ruleID, model.VerdictPass, model.ConfidenceHigh,
				fmt.Sprintf("criterion %s.%s assessed with recorded basis", cr.namespace, cr.criterion))
		default:
			ev.emit(cr.ruleID, model.VerdictManualNeeded, model.ConfidenceHigh,
				fmt.Sprintf("criterion %s.%s declared but review incomplete (assessed=%t, basis_recorded=%t)",
					cr.namespace, cr.criterion, c.Assessed, c.BasisRecorded))
		}
	}
}

// --- upstream pre-render diagnostic bridging ---

func (ev *evaluator) bridgeContract(diags *Diagnostics) {
	if diags == nil {
		return
	}
	for _, d := range diags.Diagnostics {
		ruleID, ok := contractRuleMap[d.Code]
		if !ok {
			ruleID = "a11y.contract.misc"
		}
		verdict := model.VerdictWarn
		if d.Severity == "error" {
			verdict = model.VerdictFail
		}
		fd := model.Finding{
			RuleID:           ruleID,
			Applicability:    model.Applicable,
			VerificationMode: model.ModeMachine,
			Verdict:          verdict,
			Severity:         model.SeverityMedium,
			Confidence:       model.ConfidenceHigh,
			Stage:            model.StagePreRender,
			Source:           ContractSource,
			Message:          d.Message,
			Evidence: []model.Evidence{{
				DiagnosticRef: d.Code,
				Values: map[string]string{
					"severity": d.Severity,
					"path":     d.Path,
				},
			}},
		}
		if e, ok := ev.reg.Entry(ruleID); ok {
			fd.Severity = e.Severity
		}
		ev.out = append(ev.out, fd)
	}
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
