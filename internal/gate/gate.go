// Package gate turns verdicts into the single CI pass/fail decision. The
// raw verdict list is advisory; only the gate's ok=false means a run failed.
package gate

import (
	"fullbleed/internal/model"
	"fullbleed/internal/registry"
)

// Item is the minimal view of a Finding or Audit the gate cares about.
type Item struct {
	ID      string
	Verdict model.Verdict
}

// Result is the gate decision for one verification run.
type Result struct {
	OK         bool           `json:"ok"`
	Mode       registry.Level `json:"mode"`
	ErrorCount int            `json:"error_count"`
	WarnCount  int            `json:"warn_count"`
	FailedIDs  []string       `json:"failed_ids,omitempty"`
}

// Evaluate applies registry-derived gate levels to the items.
//
// mode=off is always ok. mode=warn counts every fail/warn verdict as a
// warning and never fails. mode=error resolves the effective level per id
// (profile override, else entry default, else warn): level off is ignored,
// and only a fail verdict at level error can fail the gate; a warn verdict
// stays a warning even at level error.
func Evaluate(items []Item, mode registry.Level, reg *registry.Registry, profile string) (Result, error) {
	res := Result{OK: true, Mode: mode}

	if mode == registry.LevelOff {
		return res, nil
	}

	for _, it := range items {
		if it.Verdict != model.VerdictFail && it.Verdict != model.VerdictWarn {
			continue
		}
		if mode == registry.LevelWarn {
			res.WarnCount++
			continue
		}

		level, err := reg.GateLevel(it.ID, profile)
		if err != nil {
			return Result{}, err
		}
		switch {
		case level == registry.LevelOff:
			// explicitly silenced
		case level == registry.LevelError && it.Verdict == model.VerdictFail:
			res.ErrorCount++
			res.FailedIDs = append(res.FailedIDs, it.ID)
		default:
			res.WarnCount++
		}
	}

	res.OK = res.ErrorCount == 0
	return res, nil
}

// FindingItems projects Findings into gate items.
func FindingItems(findings []model.Finding) []Item {
	items := make([]Item, len(findings))
	for i, f := range findings {
		items[i] = Item{ID: f.RuleID, Verdict: f.Verdict}
	}
	return items
}

// AuditItems projects Audits into gate items.
func AuditItems(audits []model.Audit) []Item {
	items := make([]Item, len(audits))
	for i, a := range audits {
		items[i] = Item{ID: a.AuditID, Verdict: a.Verdict}
	}
	return items
}
