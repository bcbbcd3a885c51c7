package scale

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/numscan/internal/model"
)

// DefaultExplicitWindow is the maximum number of spaces or hyphens allowed
// between a number and its scale word.
const DefaultExplicitWindow = 3

// Matcher detects a scale word immediately after a numeric token
type Matcher struct {
	pattern       *regexp.Regexp
	abbreviations bool
}

// NewMatcher creates a matcher allowing up to window separator characters
// (whitespace or hyphen) before the scale word.
func NewMatcher(window int, abbreviations bool) *Matcher {
	if window < 0 {
		window = DefaultExplicitWindow
	}

	words := []string{"trillions?", "billions?", "millions?", "thousands?"}
	if abbreviations {
		words = append(words, "trn", "tn", "bln", "bn", "mln", "mn")
	}

	expr := fmt.Sprintf(`^[\s\-]{0,%d}(?i:(%s))\b`, window, strings.Join(words, "|"))
	return &Matcher{
		pattern:       regexp.MustCompile(expr),
		abbreviations: abbreviations,
	}
}

// Match returns the scale factor and the matched word following span, if any
func (m *Matcher) Match(text string, span model.Span) (model.ScaleFactor, string, bool) {
	if span.End < 0 || span.End > len(text) {
		return model.ScaleNone, "", false
	}

	sub := m.pattern.FindStringSubmatch(text[span.End:])
	if sub == nil {
		return model.ScaleNone, "", false
	}

	word := sub[1]
	factor, ok := model.LookupScaleWord(word, m.abbreviations)
	if !ok {
		return model.ScaleNone, "", false
	}
	return factor, word, true
}

var defaultMatcher = NewMatcher(DefaultExplicitWindow, true)

// ExplicitScale reports the scale word adjacent to the token at span using
// the default window and abbreviation set.
func ExplicitScale(text string, span model.Span) (model.ScaleFactor, bool) {
	factor, _, ok := defaultMatcher.Match(text, span)
	return factor, ok
}
