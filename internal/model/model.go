// Package model holds the verdict vocabulary shared by every pipeline stage:
// Findings for the accessibility path, Audits for the Paged-Media-Rank path,
// and the ordering rules used when duplicate signals are merged.
package model

// Verdict is the outcome of one rule or audit against a document.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictWarn          Verdict = "warn"
	VerdictManualNeeded  Verdict = "manual_needed"
	VerdictNotApplicable Verdict = "not_applicable"
)

// Severity classifies how bad a non-pass verdict is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Confidence is how certain the engine is about a verdict.
type Confidence string

const (
	ConfidenceCertain Confidence = "certain"
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
)

// Stage is where in the pipeline a signal originated.
type Stage string

const (
	StagePreRender  Stage = "pre-render"
	StagePostEmit   Stage = "post-emit"
	StagePostRender Stage = "post-render"
	StageAdapter    Stage = "adapter"
)

// Applicability records whether a rule applied to this document at all.
type Applicability string

const (
	Applicable        Applicability = "applicable"
	NotApplicable     Applicability = "not_applicable"
	UnknownApplicable Applicability = "unknown"
)

// VerificationMode says how a rule is decided: purely by the machine, purely
// by a declared human review, or a mix.
type VerificationMode string

const (
	ModeMachine VerificationMode = "machine"
	ModeManual  VerificationMode = "manual"
	ModeHybrid  VerificationMode = "hybrid"
)

// Evidence is one supporting observation attached to a Finding or Audit.
// Exactly one of Selector, DOMPath, DiagnosticRef is normally set.
type Evidence struct {
	Selector      string            `json:"selector,omitempty"`
	DOMPath       string            `json:"dom_path,omitempty"`
	DiagnosticRef string            `json:"diagnostic_ref,omitempty"`
	Values        map[string]string `json:"values,omitempty"`
}

// Finding is one accessibility rule's verdict against a document.
// Findings are immutable after emission; the correlation engine builds a new
// canonical Finding when it merges duplicates, it never edits members in place.
type Finding struct {
	RuleID           string           `json:"rule_id"`
	Applicability    Applicability    `json:"applicability"`
	VerificationMode VerificationMode `json:"verification_mode"`
	Verdict          Verdict          `json:"verdict"`
	Severity         Severity         `json:"severity"`
	Confidence       Confidence       `json:"confidence"`
	Stage            Stage            `json:"stage"`
	Source           string           `json:"source"`
	Message          string           `json:"message"`
	Evidence         []Evidence       `json:"evidence,omitempty"`
	RelatedIDs       []string         `json:"related_ids,omitempty"`
}

// Audit is the PMR analogue of a Finding, carrying a category and weight for
// the weighted category score.
type Audit struct {
	AuditID  string     `json:"audit_id"`
	Category string     `json:"category"`
	Weight   float64    `json:"weight"`
	Class    string     `json:"class"`
	Verdict  Verdict    `json:"verdict"`
	Severity Severity   `json:"severity"`
	Stage    Stage      `json:"stage"`
	Source   string     `json:"source"`
	Message  string     `json:"message"`
	Evidence []Evidence `json:"evidence,omitempty"`
	Scored   bool       `json:"scored"`
	Score    *float64   `json:"score,omitempty"`
}

// verdict badness for merge tie-breaking: fail > warn > manual > pass > n/a.
var verdictRank = map[Verdict]int{
	VerdictFail:          4,
	VerdictWarn:          3,
	VerdictManualNeeded:  2,
	VerdictPass:          1,
	VerdictNotApplicable: 0,
}

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityInfo:     0,
}

var confidenceRank = map[Confidence]int{
	ConfidenceCertain: 3,
	ConfidenceHigh:    2,
	ConfidenceMedium:  1,
	ConfidenceLow:     0,
}

// WorseVerdict returns the worse of two verdicts.
func WorseVerdict(a, b Verdict) Verdict {
	if verdictRank[b] > verdictRank[a] {
		return b
	}
	return a
}

// MaxSeverity returns the more severe of two severities.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// MinConfidence returns the less certain of two confidences.
func MinConfidence(a, b Confidence) Confidence {
	if confidenceRank[b] < confidenceRank[a] {
		return b
	}
	return a
}

// AuditScore maps a verdict to the fixed PMR score ladder. The second return
// is false for verdicts that do not score (manual_needed, not_applicable).
func AuditScore(v Verdict) (float64, bool) {
	switch v {
	case VerdictPass:
		return 1.0, true
	case VerdictWarn:
		return 0.5, true
	case VerdictFail:
		return 0.0, true
	}
	return 0, false
}
