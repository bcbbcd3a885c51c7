package model

import "time"

// Report is the complete result of scanning one document
type Report struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`       // Path or URL that was scanned
	GeneratedAt time.Time `json:"generated_at"` // When the scan finished
	PageCount   int       `json:"page_count"`
	NoData      bool      `json:"no_data"` // No pages were supplied at all
	Settings    Settings  `json:"settings"`

	LargestUnscaled *NumberOccurrence  `json:"largest_unscaled,omitempty"`
	LargestScaled   *NumberOccurrence  `json:"largest_scaled,omitempty"`
	TopUnscaled     []NumberOccurrence `json:"top_unscaled"`
	TopScaled       []NumberOccurrence `json:"top_scaled"`
	Summary         CountSummary       `json:"summary"`

	Hints  []PageHint    `json:"hints,omitempty"`  // Contextual scale per page
	Checks []TargetCheck `json:"checks,omitempty"` // Expected figures looked up after the run
}

// CountSummary holds occurrence counts before and after deduplication
type CountSummary struct {
	UnscaledFound        int `json:"unscaled_found"`
	UnscaledDeduplicated int `json:"unscaled_deduplicated"`
	ScaledFound          int `json:"scaled_found"`
	ScaledDeduplicated   int `json:"scaled_deduplicated"`
}

// Settings snapshots the knobs that influence ranking, for reproducibility
type Settings struct {
	TopN           int    `json:"top_n"`
	ContextRadius  int    `json:"context_radius"`
	ExplicitWindow int    `json:"explicit_window"`
	Abbreviations  bool   `json:"abbreviations"`
	ContextScope   string `json:"context_scope"`
}

// TargetCheck is the outcome of looking up an expected figure
type TargetCheck struct {
	Target    float64      `json:"target"`
	Tolerance float64      `json:"tolerance"`
	Matches   []ValueMatch `json:"matches"`
}

// Found reports whether the expected figure was seen
func (c TargetCheck) Found() bool {
	return len(c.Matches) > 0
}
