package extract

import (
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/numscan/internal/model"
)

// DefaultContextRadius is the number of characters kept on each side of a match
const DefaultContextRadius = 40

// numberPattern matches comma-grouped or plain digit runs with an optional fraction.
// Boundaries are checked separately since RE2 has no look-around.
var numberPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

// NumberExtractor finds numeric tokens in page text
type NumberExtractor struct {
	contextRadius int

	// OnParseError is called for a matched token that fails to parse.
	// The token is dropped either way.
	OnParseError func(page int, token string, err error)
}

// NewNumberExtractor creates a new number extractor
func NewNumberExtractor(contextRadius int) *NumberExtractor {
	if contextRadius < 0 {
		contextRadius = DefaultContextRadius
	}
	return &NumberExtractor{contextRadius: contextRadius}
}

// Extract lazily yields every number on the page in reading order.
// Scale fields are left at their zero values (none/none) with ScaledValue = Value.
func (e *NumberExtractor) Extract(page model.Page) iter.Seq[model.NumberOccurrence] {
	return func(yield func(model.NumberOccurrence) bool) {
		text := page.Text
		if strings.TrimSpace(text) == "" {
			return
		}

		for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if !isTokenBoundary(text, start, end) {
				continue
			}

			token := text[start:end]
			value, err := ParseNumber(token)
			if err != nil {
				if e.OnParseError != nil {
					e.OnParseError(page.Index, token, err)
				}
				continue
			}

			occ := model.NumberOccurrence{
				Value:        value,
				OriginalText: token,
				Page:         page.Index,
				Offset:       start,
				Context:      Context(text, start, end, e.contextRadius),
				ScaledValue:  value,
			}
			if !yield(occ) {
				return
			}
		}
	}
}

// ExtractAll collects Extract into a slice
func (e *NumberExtractor) ExtractAll(page model.Page) []model.NumberOccurrence {
	return slices.Collect(e.Extract(page))
}

// ParseNumber parses a token after removing thousands separators
func ParseNumber(token string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
}

// isTokenBoundary rejects matches that are part of a larger alphanumeric run,
// a malformed thousands group, or a dotted sequence such as a version number.
// A period or comma that is not followed by a digit ends the token (sentence
// punctuation, list separators). Letters directly after the token are allowed
// only when they spell a scale word ("4.2bn", "9.6billion").
func isTokenBoundary(text string, start, end int) bool {
	if start > 0 {
		prev, size := utf8.DecodeLastRuneInString(text[:start])
		switch {
		case unicode.IsLetter(prev), unicode.IsDigit(prev), prev == '.':
			return false
		case prev == ',':
			if before, _ := utf8.DecodeLastRuneInString(text[:start-size]); unicode.IsDigit(before) {
				return false
			}
		}
	}

	if end < len(text) {
		next, size := utf8.DecodeRuneInString(text[end:])
		switch {
		case unicode.IsLetter(next):
			return gluedScaleWord(text[end:])
		case unicode.IsDigit(next):
			return false
		case next == '.' || next == ',':
			if after, _ := utf8.DecodeRuneInString(text[end+size:]); unicode.IsDigit(after) {
				return false
			}
		}
	}

	return true
}

// gluedScaleWord reports whether rest starts with a whole scale word that is
// not itself followed by a letter or digit
func gluedScaleWord(rest string) bool {
	word := rest
	if i := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		word = rest[:i]
		if r, _ := utf8.DecodeRuneInString(rest[i:]); unicode.IsDigit(r) {
			return false
		}
	}
	_, ok := model.LookupScaleWord(word, true)
	return ok
}

// Context returns the whitespace-normalised text within radius bytes of
// [start, end), clamped to the text and to rune boundaries.
func Context(text string, start, end, radius int) string {
	from := max(0, start-radius)
	to := min(len(text), end+radius)

	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}
	for to < len(text) && to > end && !utf8.RuneStart(text[to]) {
		to--
	}

	return strings.Join(strings.Fields(text[from:to]), " ")
}
