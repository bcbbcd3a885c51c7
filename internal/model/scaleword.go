package model

import "strings"

var scaleWords = map[string]ScaleFactor{
	"thousand":  ScaleThousand,
	"thousands": ScaleThousand,
	"million":   ScaleMillion,
	"millions":  ScaleMillion,
	"billion":   ScaleBillion,
	"billions":  ScaleBillion,
	"trillion":  ScaleTrillion,
	"trillions": ScaleTrillion,
}

var scaleAbbreviations = map[string]ScaleFactor{
	"mn":  ScaleMillion,
	"mln": ScaleMillion,
	"bn":  ScaleBillion,
	"bln": ScaleBillion,
	"tn":  ScaleTrillion,
	"trn": ScaleTrillion,
}

// LookupScaleWord returns the factor named by a scale word, case-insensitively.
// Abbreviations such as "bn" are recognised only when abbreviations is set.
func LookupScaleWord(word string, abbreviations bool) (ScaleFactor, bool) {
	key := strings.ToLower(word)
	if factor, ok := scaleWords[key]; ok {
		return factor, true
	}
	if abbreviations {
		if factor, ok := scaleAbbreviations[key]; ok {
			return factor, true
		}
	}
	return ScaleNone, false
}
