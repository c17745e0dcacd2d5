// Package report assembles the two output documents: the accessibility
// verification report and the Paged-Media-Rank report. Both are pure
// functions of their inputs; the only non-deterministic field is the
// generated_at timestamp, which callers may pin.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"fullbleed/internal/correlate"
	"fullbleed/internal/gate"
	"fullbleed/internal/model"
	"fullbleed/internal/pmr"
	"fullbleed/internal/registry"
)

const (
	A11ySchema = "fullbleed/a11y-report/v1"
	PMRSchema  = "fullbleed/pmr-report/v1"

	ToolName = "fullbleed"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Target identifies the document under verification.
type Target struct {
	HTMLPath   string `json:"html_path"`
	CSSPath    string `json:"css_path,omitempty"`
	TargetHash string `json:"target_hash"`
}

// TargetOf hashes the verified bytes so reports can be tied to exact inputs.
func TargetOf(htmlPath, cssPath, htmlText, cssText string) Target {
	h := sha256.New()
	h.Write([]byte(htmlText))
	h.Write([]byte{0})
	h.Write([]byte(cssText))
	return Target{
		HTMLPath:   htmlPath,
		CSSPath:    cssPath,
		TargetHash: "sha256:" + hex.EncodeToString(h.Sum(nil)),
	}
}

// Summary counts findings by verdict.
type Summary struct {
	PassCount          int `json:"pass_count"`
	FailCount          int `json:"fail_count"`
	WarnCount          int `json:"warn_count"`
	ManualNeededCount  int `json:"manual_needed_count"`
	NotApplicableCount int `json:"not_applicable_count"`
}

// Summarize tallies verdicts.
func Summarize(findings []model.Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Verdict {
		case model.VerdictPass:
			s.PassCount++
		case model.VerdictFail:
			s.FailCount++
		case model.VerdictWarn:
			s.WarnCount++
		case model.VerdictManualNeeded:
			s.ManualNeededCount++
		case model.VerdictNotApplicable:
			s.NotApplicableCount++
		}
	}
	return s
}

// Coverage reports what fraction of the registry was actually evaluated.
type Coverage struct {
	EvaluatedCount int     `json:"evaluated_count"`
	RegistryCount  int     `json:"registry_count"`
	Fraction       float64 `json:"fraction"`
	WCAG20AA       float64 `json:"wcag20aa"`
	Section508     float64 `json:"section508"`
}

// RuleCoverage accounts evaluated rule ids against the registry's rules,
// overall and per namespace.
func RuleCoverage(evaluated map[string]bool, reg *registry.Registry) Coverage {
	c := Coverage{RegistryCount: len(reg.Rules)}
	for _, r := range reg.Rules {
		if evaluated[r.ID] {
			c.EvaluatedCount++
		}
	}
	c.Fraction = fraction(c.EvaluatedCount, c.RegistryCount)
	c.WCAG20AA = namespaceFraction(evaluated, reg, "wcag20aa")
	c.Section508 = namespaceFraction(evaluated, reg, "section508")
	return c
}

// AuditCoverage accounts evaluated audit ids against the registry's audits.
func AuditCoverage(evaluated map[string]bool, reg *registry.Registry) Coverage {
	c := Coverage{RegistryCount: len(reg.Audits)}
	for _, a := range reg.Audits {
		if evaluated[a.ID] {
			c.EvaluatedCount++
		}
	}
	c.Fraction = fraction(c.EvaluatedCount, c.RegistryCount)
	return c
}

func namespaceFraction(evaluated map[string]bool, reg *registry.Registry, ns string) float64 {
	ids := reg.RulesInNamespace(ns)
	n := 0
	for _, id := range ids {
		if evaluated[id] {
			n++
		}
	}
	return fraction(n, len(ids))
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(n) / float64(total)
}

// ClaimReadiness summarizes how close the document is to a supportable
// WCAG 2.0 AA claim: every declared criterion must be assessed with a
// recorded basis, and nothing machine-checkable may fail.
type ClaimReadiness struct {
	DeclaredCount     int  `json:"declared_count"`
	AssessedCount     int  `json:"assessed_count"`
	ManualNeededCount int  `json:"manual_needed_count"`
	MachineFailCount  int  `json:"machine_fail_count"`
	Ready             bool `json:"ready"`
}

// ClaimReadinessOf derives claim readiness from the wcag20aa-namespaced
// findings.
func ClaimReadinessOf(findings []model.Finding, reg *registry.Registry) ClaimReadiness {
	inNS := map[string]bool{}
	for _, id := range reg.RulesInNamespace("wcag20aa") {
		inNS[id] = true
	}
	var cr ClaimReadiness
	for _, f := range findings {
		if !inNS[f.RuleID] {
			continue
		}
		if f.VerificationMode == model.ModeManual {
			if f.Applicability == model.Applicable {
				cr.DeclaredCount++
			}
			switch f.Verdict {
			case model.VerdictPass:
				cr.AssessedCount++
			case model.VerdictManualNeeded:
				cr.ManualNeededCount++
			}
			continue
		}
		if f.Verdict == model.VerdictFail {
			cr.MachineFailCount++
		}
	}
	cr.Ready = cr.MachineFailCount == 0 && cr.ManualNeededCount == 0 && cr.DeclaredCount > 0
	return cr
}

// Tooling records what produced the report and when.
type Tooling struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	GeneratedAt string `json:"generated_at"`
}

// ToolingAt stamps the tooling block with a caller-supplied clock value, so
// reproducibility tests can pin it.
func ToolingAt(now time.Time) Tooling {
	return Tooling{
		Name:        ToolName,
		Version:     Version,
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// Artifacts records which optional collaborator inputs were present; absent
// inputs degrade confidence rather than failing, so readers need to know.
type Artifacts struct {
	Diagnostics         bool `json:"diagnostics"`
	ClaimEvidence       bool `json:"claim_evidence"`
	ContrastAnalysis    bool `json:"contrast_analysis"`
	ComponentValidation bool `json:"component_validation"`
	ParityReport        bool `json:"parity_report"`
	Trace               bool `json:"trace"`
}

// ManualDebt carries unresolved review-queue entries into both reports.
type ManualDebt struct {
	Count int              `json:"count"`
	Items []pmr.ReviewItem `json:"items,omitempty"`
}

// ConformanceStatus derives the headline status line from the summary.
// This tool produces signals, not legal conformance: the best it can say is
// that every machine check passed.
func ConformanceStatus(s Summary) string {
	switch {
	case s.FailCount > 0:
		return "non_conformant"
	case s.ManualNeededCount > 0:
		return "manual_review_required"
	default:
		return "machine_checks_passed"
	}
}

// A11yReport is the accessibility verification output document.
type A11yReport struct {
	Schema            string                  `json:"schema"`
	Target            Target                  `json:"target"`
	Profile           string                  `json:"profile"`
	ConformanceStatus string                  `json:"conformance_status"`
	Gate              gate.Result             `json:"gate"`
	Summary           Summary                 `json:"summary"`
	Findings          []model.Finding         `json:"findings"`
	Observability     correlate.Observability `json:"observability"`
	Coverage          Coverage                `json:"coverage"`
	ClaimReadiness    ClaimReadiness          `json:"wcag20aa_claim_readiness"`
	Tooling           Tooling                 `json:"tooling"`
	Artifacts         Artifacts               `json:"artifacts"`
	ManualReviewDebt  ManualDebt              `json:"manual_review_debt"`
}

// PMRObservability summarizes audit evaluation for the PMR report.
type PMRObservability struct {
	AuditCount  int `json:"audit_count"`
	ScoredCount int `json:"scored_count"`
	ManualCount int `json:"manual_count"`
}

// PMRReport is the Paged-Media-Rank output document.
type PMRReport struct {
	Schema        string           `json:"schema"`
	Target        Target           `json:"target"`
	Profile       string           `json:"profile"`
	Rank          pmr.Rank         `json:"rank"`
	Gate          gate.Result      `json:"gate"`
	Categories    []pmr.Category   `json:"categories"`
	Audits        []model.Audit    `json:"audits"`
	Observability PMRObservability `json:"observability"`
	ManualDebt    ManualDebt       `json:"manual_debt"`
	Coverage      Coverage         `json:"coverage"`
	Tooling       Tooling          `json:"tooling"`
	Artifacts     Artifacts        `json:"artifacts"`
}

// ObserveAudits tallies the PMR observability block.
func ObserveAudits(audits []model.Audit) PMRObservability {
	obs := PMRObservability{AuditCount: len(audits)}
	for _, a := range audits {
		if a.Scored {
			obs.ScoredCount++
		}
		if a.Verdict == model.VerdictManualNeeded {
			obs.ManualCount++
		}
	}
	return obs
}

// EvaluatedIDs collects the distinct rule ids present in a finding list.
func EvaluatedIDs(findings []model.Finding) map[string]bool {
	ids := make(map[string]bool, len(findings))
	for _, f := range findings {
		ids[f.RuleID] = true
	}
	return ids
}

// EvaluatedAuditIDs collects the distinct audit ids present in an audit list.
func EvaluatedAuditIDs(audits []model.Audit) map[string]bool {
	ids := make(map[string]bool, len(audits))
	for _, a := range audits {
		ids[a.AuditID] = true
	}
	return ids
}
