// Package correlate folds duplicate pre-render contract diagnostics into
// their canonical post-emit Finding for the same rule. It is the only
// mutating transformation in the pipeline, and it is idempotent: once merged,
// a group no longer has duplicates to merge.
package correlate

import (
	"fmt"
	"sort"

	"fullbleed/internal/a11y"
	"fullbleed/internal/model"
)

// MergeAllowlist is the fixed set of rule ids eligible for correlation.
// These are exactly the rules the authoring-side contract also checks before
// rendering, so they can arrive twice.
var MergeAllowlist = map[string]bool{
	"a11y.doc.lang":      true,
	"a11y.doc.title":     true,
	"a11y.doc.headings":  true,
	"a11y.id.unique":     true,
	"a11y.img.alt":       true,
	"a11y.form.labels":   true,
	"a11y.link.name":     true,
	"a11y.table.headers": true,
}

// Observability summarizes what the merge pass did.
type Observability struct {
	MergedGroups    int      `json:"merged_groups"`
	DroppedFindings int      `json:"dropped_findings"`
	MergedRuleIDs   []string `json:"merged_rule_ids,omitempty"`
}

// Merge returns a new Finding list with eligible duplicate groups collapsed
// into one canonical Finding each. Input findings are never modified; the
// canonical Finding is a fresh value. Output preserves input order, with
// merged pre-render members removed and the primary replaced in place.
func Merge(in []model.Finding) ([]model.Finding, Observability) {
	obs := Observability{}

	// index the groups
	byRule := map[string][]int{}
	for i, f := range in {
		if MergeAllowlist[f.RuleID] {
			byRule[f.RuleID] = append(byRule[f.RuleID], i)
		}
	}

	replace := map[int]model.Finding{} // primary index -> canonical
	drop := map[int]bool{}             // pre-render member indexes

	ruleIDs := make([]string, 0, len(byRule))
	for id := range byRule {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs)

	for _, ruleID := range ruleIDs {
		idxs := byRule[ruleID]
		if len(idxs) < 2 {
			continue
		}
		var primaryIdx = -1
		var primaryCount int
		var preIdxs []int
		for _, i := range idxs {
			if isContractPreRender(&in[i]) {
				preIdxs = append(preIdxs, i)
			} else {
				primaryIdx = i
				primaryCount++
			}
		}
		// merge only the unambiguous shape: one primary, ≥1 contract members
		if primaryCount != 1 || len(preIdxs) == 0 {
			continue
		}

		group := append([]int{primaryIdx}, preIdxs...)
		replace[primaryIdx] = canonical(in, primaryIdx, group)
		for _, i := range preIdxs {
			drop[i] = true
		}
		obs.MergedGroups++
		obs.DroppedFindings += len(preIdxs)
		obs.MergedRuleIDs = append(obs.MergedRuleIDs, ruleID)
	}

	out := make([]model.Finding, 0, len(in)-len(drop))
	for i, f := range in {
		if drop[i] {
			continue
		}
		if c, ok := replace[i]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, f)
	}
	return out, obs
}

func isContractPreRender(f *model.Finding) bool {
	return f.Stage == model.StagePreRender && f.Source == a11y.ContractSource
}

// canonical builds the merged Finding: worst verdict, highest severity,
// lowest confidence, broadest applicability, all evidence with provenance.
func canonical(in []model.Finding, primaryIdx int, group []int) model.Finding {
	out := in[primaryIdx] // copy; slices below are rebuilt, not shared

	anyApplicable, anyUnknown := false, false
	stageCounts := map[string]int{}
	sourceCounts := map[string]int{}

	var evidence []model.Evidence
	for _, i := range group {
		m := &in[i]
		out.Verdict = model.WorseVerdict(out.Verdict, m.Verdict)
		out.Severity = model.MaxSeverity(out.Severity, m.Severity)
		out.Confidence = model.MinConfidence(out.Confidence, m.Confidence)
		switch m.Applicability {
		case model.Applicable:
			anyApplicable = true
		case model.UnknownApplicable:
			anyUnknown = true
		}
		stageCounts[string(m.Stage)]++
		sourceCounts[m.Source]++

		isPrimary := i == primaryIdx
		for _, ev := range m.Evidence {
			evidence = append(evidence, tagged(ev, m, isPrimary))
		}
	}

	switch {
	case anyApplicable:
		out.Applicability = model.Applicable
	case anyUnknown:
		out.Applicability = model.UnknownApplicable
	default:
		out.Applicability = model.NotApplicable
	}

	summary := model.Evidence{
		DiagnosticRef: "correlation-summary",
		Values:        map[string]string{"members": fmt.Sprintf("%d", len(group))},
	}
	for stage, n := range stageCounts {
		summary.Values["stage:"+stage] = fmt.Sprintf("%d", n)
	}
	for source, n := range sourceCounts {
		summary.Values["source:"+source] = fmt.Sprintf("%d", n)
	}
	out.Evidence = append(evidence, summary)
	return out
}

// tagged copies one evidence row and stamps the provenance of its member.
func tagged(ev model.Evidence, m *model.Finding, primary bool) model.Evidence {
	values := make(map[string]string, len(ev.Values)+4)
	for k, v := range ev.Values {
		values[k] = v
	}
	values["origin_stage"] = string(m.Stage)
	values["origin_source"] = m.Source
	values["origin_verdict"] = string(m.Verdict)
	values["origin_primary"] = fmt.Sprintf("%t", primary)
	ev.Values = values
	return ev
}
