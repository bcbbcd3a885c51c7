package extract

import (
	"errors"
	"strconv"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/numscan/internal/model"
)

func tokens(occs []model.NumberOccurrence) []string {
	out := make([]string, len(occs))
	for i, occ := range occs {
		out[i] = occ.OriginalText
	}
	return out
}

func TestNumberExtractor_Basic(t *testing.T) {
	extractor := NewNumberExtractor(DefaultContextRadius)

	occs := extractor.ExtractAll(model.Page{Index: 1, Text: "Revenue was $6,000,000 and costs 250,000."})
	if len(occs) != 2 {
		t.Fatalf("Expected 2 occurrences, got %d: %v", len(occs), tokens(occs))
	}

	first := occs[0]
	if first.Value != 6000000 || first.OriginalText != "6,000,000" {
		t.Errorf("Expected 6,000,000 parsed as 6e6, got %q = %v", first.OriginalText, first.Value)
	}
	if first.Page != 1 {
		t.Errorf("Expected page 1, got %d", first.Page)
	}
	if first.Offset != 13 {
		t.Errorf("Expected offset 13, got %d", first.Offset)
	}
	if first.IsScaled || first.ScaleFactor != model.ScaleNone || first.ScaleSource != model.SourceNone {
		t.Error("Expected extraction to leave occurrences unscaled")
	}
	if first.ScaledValue != first.Value {
		t.Errorf("Expected ScaledValue to equal Value, got %v", first.ScaledValue)
	}

	if occs[1].Value != 250000 || occs[1].OriginalText != "250,000" {
		t.Errorf("Expected 250,000 without the trailing period, got %q", occs[1].OriginalText)
	}
}

func TestNumberExtractor_TokenShapes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"plain integer", "total 42 units", []string{"42"}},
		{"decimal", "rate of 3.75 percent", []string{"3.75"}},
		{"grouped decimal", "30,704.1 and 29,176.6", []string{"30,704.1", "29,176.6"}},
		{"ungrouped large", "count 1234567 rows", []string{"1234567"}},
		{"negative sign ignored", "loss of -45", []string{"45"}},
		{"leading decimal rejected", "about .5 of it", nil},
		{"malformed group", "value 1,2345 here", nil},
		{"version number", "release 1.2.3 shipped", nil},
		{"alphanumeric", "form 10K and ABC123", nil},
		{"list separator", "items 1, 2, 3", []string{"1", "2", "3"}},
		{"parenthesised", "(1,200) loss", []string{"1,200"}},
		{"currency", "€5 or $7", []string{"5", "7"}},
		{"blank page", "   \n\t ", nil},
		{"glued scale word", "Assets of 9.6billion dollars", []string{"9.6"}},
		{"glued abbreviation", "raised $4.2bn last year", []string{"4.2"}},
		{"glued uppercase", "debt of 5MILLION.", []string{"5"}},
		{"glued unit", "weighs 5kg", nil},
		{"glued longer word", "5millionaires", nil},
		{"fiscal year", "FY25 budget", nil},
	}

	extractor := NewNumberExtractor(DefaultContextRadius)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokens(extractor.ExtractAll(model.Page{Index: 1, Text: tt.text}))
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Token %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestNumberExtractor_ReadingOrder(t *testing.T) {
	extractor := NewNumberExtractor(10)
	occs := extractor.ExtractAll(model.Page{Index: 3, Text: "9 then 8 then 7 then 8"})

	if len(occs) != 4 {
		t.Fatalf("Expected 4 occurrences, got %d", len(occs))
	}
	for i := 1; i < len(occs); i++ {
		if occs[i].Offset <= occs[i-1].Offset {
			t.Errorf("Expected increasing offsets, got %d after %d", occs[i].Offset, occs[i-1].Offset)
		}
	}
}

func TestNumberExtractor_EarlyStop(t *testing.T) {
	extractor := NewNumberExtractor(DefaultContextRadius)

	count := 0
	for range extractor.Extract(model.Page{Index: 1, Text: "1 2 3 4 5"}) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("Expected iteration to stop after 2, got %d", count)
	}
}

func TestNumberExtractor_ParseErrorHook(t *testing.T) {
	extractor := NewNumberExtractor(DefaultContextRadius)

	var reported []string
	extractor.OnParseError = func(page int, token string, err error) {
		reported = append(reported, token)
	}

	// 400 digits overflow float64 to +Inf, which ParseFloat reports as a range error.
	huge := "1"
	for range 400 {
		huge += "0"
	}
	occs := extractor.ExtractAll(model.Page{Index: 2, Text: "small 12 and huge " + huge})

	if len(occs) != 1 || occs[0].Value != 12 {
		t.Errorf("Expected only the small number, got %v", tokens(occs))
	}
	if len(reported) != 1 {
		t.Errorf("Expected 1 parse error, got %d", len(reported))
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		token    string
		expected float64
	}{
		{"1,000", 1000},
		{"1000", 1000},
		{"30,704.1", 30704.1},
		{"0.25", 0.25},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.token)
		if err != nil {
			t.Errorf("ParseNumber(%q) error: %v", tt.token, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseNumber(%q) = %v, expected %v", tt.token, got, tt.expected)
		}
	}

	if _, err := ParseNumber("1e400"); err == nil {
		t.Error("Expected range error for overflowing token")
	} else if !errors.Is(err, strconv.ErrRange) {
		t.Errorf("Expected ErrRange, got %v", err)
	}
}

func TestContext(t *testing.T) {
	text := "alpha   beta\n\n gamma 123 delta  epsilon"
	start := 21
	end := 24

	if text[start:end] != "123" {
		t.Fatalf("test setup: expected token at %d, got %q", start, text[start:end])
	}

	got := Context(text, start, end, 8)
	if got != "gamma 123 delta" {
		t.Errorf("Expected normalised window, got %q", got)
	}

	full := Context(text, start, end, 1000)
	if full != "alpha beta gamma 123 delta epsilon" {
		t.Errorf("Expected clamped full text, got %q", full)
	}
}

func TestContext_RuneBoundaries(t *testing.T) {
	text := "ééé 42 ééé"
	start := len("ééé ")
	end := start + 2

	got := Context(text, start, end, 2)
	if !utf8.ValidString(got) {
		t.Fatalf("Expected valid UTF-8 context, got %q", got)
	}
	if got != "42" {
		t.Errorf("Expected partial runes to be trimmed, got %q", got)
	}
}
