package scale

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/numscan/internal/model"
)

// Hint is a contextual scale phrase such as "(dollars in millions)"
type Hint struct {
	Factor model.ScaleFactor
	Phrase string
	Offset int // Byte offset of the phrase within its page
	Page   int // Page the phrase was found on
}

var hintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\b(?:dollars|amounts|figures|values)\s+)?\bin\s+(thousands|millions|billions|trillions)\b(?:\s+of\s+dollars\b)?`),
	regexp.MustCompile(`(?i)(?:\bin\s+|\()\$?\s?(000)'?s\b`),
}

var hintFactors = map[string]model.ScaleFactor{
	"thousands": model.ScaleThousand,
	"000":       model.ScaleThousand,
	"millions":  model.ScaleMillion,
	"billions":  model.ScaleBillion,
	"trillions": model.ScaleTrillion,
}

// FindHints returns every hint phrase in the text, in reading order
func FindHints(text string) []Hint {
	var hints []Hint
	for _, pattern := range hintPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			unit := strings.ToLower(text[loc[2]:loc[3]])
			factor, ok := hintFactors[unit]
			if !ok {
				continue
			}
			hints = append(hints, Hint{
				Factor: factor,
				Phrase: strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "),
				Offset: loc[0],
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return hints[i].Offset < hints[j].Offset
	})
	return hints
}

// PageHint returns the hint that governs a page: when a page carries several
// conflicting phrases, the one occurring last in reading order wins.
func PageHint(text string) (Hint, bool) {
	hints := FindHints(text)
	if len(hints) == 0 {
		return Hint{}, false
	}
	return hints[len(hints)-1], true
}
