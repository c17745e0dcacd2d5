// Package facts extracts a flat, immutable snapshot of one HTML document in a
// single streaming pass. Everything downstream (accessibility rules, PMR
// audits) reads from the Facts record; nothing re-parses the markup.
package facts

// TableFacts accumulates header metadata for one <table>, closed on </table>.
type TableFacts struct {
	HasCaption   bool `json:"has_caption"`
	THCount      int  `json:"th_count"`
	THScopeCount int  `json:"th_scope_count"`
}

// Facts is the read-only snapshot produced by Extract. Counters record
// document defects; a defective-but-parseable document is never an error.
type Facts struct {
	HTMLLang string `json:"html_lang"`
	Title    string `json:"title"`

	// id graph
	IDCount        int      `json:"id_count"`
	DuplicateIDs   []string `json:"duplicate_ids,omitempty"`
	DanglingIDRefs []string `json:"dangling_idrefs,omitempty"`

	// landmarks and headings
	MainCount         int `json:"main_count"`
	HeadingCount      int `json:"heading_count"`
	EmptyHeadingCount int `json:"empty_heading_count"`
	HeadingSkipCount  int `json:"heading_skip_count"`

	// images
	ImageCount          int `json:"image_count"`
	MissingAltCount     int `json:"missing_alt_count"`
	TitleOnlyImageCount int `json:"title_only_image_count"`

	// form controls
	FormControlCount      int `json:"form_control_count"`
	UnlabeledControlCount int `json:"unlabeled_control_count"`
	InvalidControlCount   int `json:"invalid_control_count"`

	// links
	LinkCount               int `json:"link_count"`
	UnnamedLinkCount        int `json:"unnamed_link_count"`
	GenericLinkCount        int `json:"generic_link_count"`
	BrokenFragmentLinkCount int `json:"broken_fragment_link_count"`

	// focus order
	PositiveTabindexCount int `json:"positive_tabindex_count"`

	// tables
	Tables []TableFacts `json:"tables,omitempty"`

	// signature semantics (print documents carry signing blocks)
	SignatureMarkerCount int `json:"signature_marker_count"`

	// active content signals
	ScriptCount        int `json:"script_count"`
	EmbedCount         int `json:"embed_count"`
	AutoplayCount      int `json:"autoplay_count"`
	BlinkMarqueeCount  int `json:"blink_marquee_count"`
	InlineHandlerCount int `json:"inline_handler_count"`
	MetaRefreshCount   int `json:"meta_refresh_count"`

	// paged-media CSS signals
	TOCSignalCount int `json:"toc_signal_count"`
	PageRuleCount  int `json:"page_rule_count"`

	// raw body text for phrase-based heuristics
	BodyText string `json:"-"`
}

// TablesWithHeaders counts tables carrying any header metadata at all.
func (f *Facts) TablesWithHeaders() int {
	n := 0
	for _, t := range f.Tables {
		if t.HasCaption || t.THCount > 0 {
			n++
		}
	}
	return n
}

// BareTables counts tables with no caption and no <th> cells.
func (f *Facts) BareTables() int {
	return len(f.Tables) - f.TablesWithHeaders()
}

// ActiveContentCount sums every active-content signal. Paged output has no
// script runtime, so each one is potential behavior loss.
func (f *Facts) ActiveContentCount() int {
	return f.ScriptCount + f.EmbedCount + f.AutoplayCount +
		f.BlinkMarqueeCount + f.InlineHandlerCount + f.MetaRefreshCount
}
