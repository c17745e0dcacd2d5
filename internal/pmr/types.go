// Package pmr computes the Paged-Media-Rank audit: a weighted,
// category-scored assessment of layout and packaging quality.
package pmr

import "encoding/json"

// ComponentValidation carries the authoring component's layout counters.
type ComponentValidation struct {
	OverflowCount  int `json:"overflow_count"`
	KnownLossCount int `json:"known_loss_count"`
}

// ParityReport compares authored page expectations with the rendered result.
type ParityReport struct {
	SourcePageCount int `json:"source_page_count"`
	RenderPageCount int `json:"render_page_count"`
}

// ReviewItem is one outstanding manual-review-queue entry.
type ReviewItem struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
	Note string `json:"note,omitempty"`
}

// RunReport carries render-run outputs that feed manual-review debt.
type RunReport struct {
	ReviewQueueItems []ReviewItem `json:"review_queue_items,omitempty"`
}

// TraceSummary is the structural summary of a post-render extraction trace.
type TraceSummary struct {
	PageCount             int  `json:"page_count"`
	TotalBlocks           int  `json:"total_blocks"`
	StructTreeRootPresent bool `json:"struct_tree_root_present"`
}

// Trace is a render-time or post-render structure/reading-order trace.
type Trace struct {
	Extractor string       `json:"extractor"`
	Summary   TraceSummary `json:"summary"`
}

// ParseTrace decodes a trace document.
func ParseTrace(data []byte) (*Trace, error) {
	var tr Trace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Category is the scored aggregation of one registry category.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	AuditCount  int     `json:"audit_count"`
	ScoredCount int     `json:"scored_count"`
}

// Rank is the overall PMR result.
type Rank struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Band       string  `json:"band"`
	RawScore   float64 `json:"raw_score"`
}

// Confidence-decay policy. These weights are tuned, not derived; treat them
// as configuration, not physical law.
const (
	penaltyManual = 10.0
	penaltyWarn   = 3.0
	penaltyFail   = 5.0

	debtPenaltyPerItem = 3.0
	debtPenaltyCap     = 25.0
)

// Band thresholds.
const (
	bandExcellent = 95.0
	bandGood      = 85.0
	bandWatch     = 70.0
)

// BandFor classifies a score on the fixed threshold ladder.
func BandFor(score float64) string {
	switch {
	case score >= bandExcellent:
		return "excellent"
	case score >= bandGood:
		return "good"
	case score >= bandWatch:
		return "watch"
	default:
		return "poor"
	}
}
