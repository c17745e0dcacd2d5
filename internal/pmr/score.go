package pmr

import (
	"fullbleed/internal/model"
	"fullbleed/internal/registry"
)

// aggregate folds audits into per-category scores and the overall rank.
//
// category.score = 100 * Σ(score_i·weight_i) / Σweight_i over scored audits,
// defaulting to 100 when nothing in the category scored.
// category.confidence starts at 100 and decays per manual/warn/fail audit.
// The rank is the category-weight-weighted mean of both, with overall
// confidence additionally decayed for unresolved manual-review debt.
func aggregate(audits []model.Audit, reg *registry.Registry, debtCount int) ([]Category, Rank) {
	byCategory := map[string][]*model.Audit{}
	for i := range audits {
		byCategory[audits[i].Category] = append(byCategory[audits[i].Category], &audits[i])
	}

	categories := make([]Category, 0, len(reg.Categories))
	for _, def := range reg.Categories {
		cat := Category{
			ID:     def.ID,
			Name:   def.Name,
			Weight: def.Weight,
		}
		members := byCategory[def.ID]
		cat.AuditCount = len(members)

		var scoreSum, weightSum float64
		confidence := 100.0
		for _, a := range members {
			if a.Scored && a.Score != nil {
				scoreSum += *a.Score * a.Weight
				weightSum += a.Weight
				cat.ScoredCount++
			}
			switch a.Verdict {
			case model.VerdictManualNeeded:
				confidence -= penaltyManual
			case model.VerdictWarn:
				confidence -= penaltyWarn
			case model.VerdictFail:
				confidence -= penaltyFail
			}
		}
		if weightSum > 0 {
			cat.Score = 100 * scoreSum / weightSum
		} else {
			cat.Score = 100
		}
		cat.Confidence = clamp(confidence, 0, 100)
		categories = append(categories, cat)
	}

	return categories, rankOf(categories, debtCount)
}

func rankOf(categories []Category, debtCount int) Rank {
	var scoreSum, confSum, weightSum float64
	for _, c := range categories {
		scoreSum += c.Score * c.Weight
		confSum += c.Confidence * c.Weight
		weightSum += c.Weight
	}

	r := Rank{Score: 100, Confidence: 100}
	if weightSum > 0 {
		r.Score = scoreSum / weightSum
		r.Confidence = confSum / weightSum
	}
	r.RawScore = r.Score
	r.Score = clamp(r.Score, 0, 100)

	debtPenalty := debtPenaltyPerItem * float64(debtCount)
	if debtPenalty > debtPenaltyCap {
		debtPenalty = debtPenaltyCap
	}
	r.Confidence = clamp(r.Confidence-debtPenalty, 0, 100)

	r.Band = BandFor(r.Score)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
