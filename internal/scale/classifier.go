package scale

import (
	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/model"
)

// Scope selects how far a contextual hint reaches
type Scope string

const (
	ScopePage     Scope = "page"     // A hint applies to its own page only
	ScopeDocument Scope = "document" // A hint carries forward until the next hinted page
)

// ParseScope validates a scope name
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopePage:
		return ScopePage, nil
	case ScopeDocument:
		return ScopeDocument, nil
	}
	return "", eris.Errorf("unknown context scope %q (supported: page, document)", s)
}

// Classifier attributes scale factors to occurrences
type Classifier struct {
	matcher *Matcher
}

// NewClassifier creates a classifier with the given explicit window
func NewClassifier(window int, abbreviations bool) *Classifier {
	return &Classifier{matcher: NewMatcher(window, abbreviations)}
}

// Classify sets the scale fields of occ. An adjacent scale word always
// takes precedence over the contextual hint; with neither, the occurrence
// is left unscaled.
func (c *Classifier) Classify(occ *model.NumberOccurrence, pageText string, hint *Hint) {
	if factor, word, ok := c.matcher.Match(pageText, occ.Span()); ok {
		occ.ApplyScale(factor, model.SourceExplicit, word)
		return
	}

	if hint != nil && hint.Factor != model.ScaleNone {
		occ.ApplyScale(hint.Factor, model.SourceContextual, hint.Phrase)
		return
	}

	occ.ApplyScale(model.ScaleNone, model.SourceNone, "")
}

// ClassifyAll classifies every occurrence of a single page in place
func (c *Classifier) ClassifyAll(occs []model.NumberOccurrence, pageText string, hint *Hint) {
	for i := range occs {
		c.Classify(&occs[i], pageText, hint)
	}
}

// ResolveHints returns the effective hint for each page, aligned with pages.
// Entries are nil for pages without an applicable hint.
func ResolveHints(pages []model.Page, scope Scope) []*Hint {
	resolved := make([]*Hint, len(pages))

	var carried *Hint
	for i, page := range pages {
		if h, ok := PageHint(page.Text); ok {
			h.Page = page.Index
			resolved[i] = &h
			carried = &h
			continue
		}
		if scope == ScopeDocument && carried != nil {
			resolved[i] = carried
		}
	}

	return resolved
}

// Describe turns resolved hints into report entries
func Describe(pages []model.Page, hints []*Hint) []model.PageHint {
	var out []model.PageHint
	for i, h := range hints {
		if h == nil || i >= len(pages) {
			continue
		}
		out = append(out, model.PageHint{
			Page:      pages[i].Index,
			Factor:    h.Factor,
			Phrase:    h.Phrase,
			Inherited: h.Page != pages[i].Index,
		})
	}
	return out
}
