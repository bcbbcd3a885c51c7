package model

// Page is one page of plain text supplied by a page source
type Page struct {
	Index int    `json:"index"` // 1-based for all bundled sources
	Text  string `json:"text"`
}

// PageHint records which contextual scale applied to a page
type PageHint struct {
	Page      int         `json:"page"`
	Factor    ScaleFactor `json:"factor"`
	Phrase    string      `json:"phrase"`
	Inherited bool        `json:"inherited,omitempty"` // Carried forward from an earlier page
}
