package model

import "fmt"

// ScaleFactor is a magnitude multiplier attached to a number
type ScaleFactor int

const (
	ScaleNone ScaleFactor = iota
	ScaleThousand
	ScaleMillion
	ScaleBillion
	ScaleTrillion
)

// Multiplier returns the factor's numeric multiplier (1 for ScaleNone)
func (f ScaleFactor) Multiplier() float64 {
	switch f {
	case ScaleThousand:
		return 1e3
	case ScaleMillion:
		return 1e6
	case ScaleBillion:
		return 1e9
	case ScaleTrillion:
		return 1e12
	default:
		return 1
	}
}

func (f ScaleFactor) String() string {
	switch f {
	case ScaleThousand:
		return "thousand"
	case ScaleMillion:
		return "million"
	case ScaleBillion:
		return "billion"
	case ScaleTrillion:
		return "trillion"
	default:
		return "none"
	}
}

// ParseScaleFactor is the inverse of ScaleFactor.String
func ParseScaleFactor(s string) (ScaleFactor, error) {
	switch s {
	case "", "none":
		return ScaleNone, nil
	case "thousand":
		return ScaleThousand, nil
	case "million":
		return ScaleMillion, nil
	case "billion":
		return ScaleBillion, nil
	case "trillion":
		return ScaleTrillion, nil
	}
	return ScaleNone, fmt.Errorf("unknown scale factor %q", s)
}

func (f ScaleFactor) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *ScaleFactor) UnmarshalText(b []byte) error {
	parsed, err := ParseScaleFactor(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ScaleSource records how a scale factor was attributed
type ScaleSource int

const (
	SourceNone       ScaleSource = iota
	SourceExplicit               // scale word adjacent to the number
	SourceContextual             // inherited from a page or document hint phrase
)

func (s ScaleSource) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceContextual:
		return "contextual"
	default:
		return "none"
	}
}

// ParseScaleSource is the inverse of ScaleSource.String
func ParseScaleSource(s string) (ScaleSource, error) {
	switch s {
	case "", "none":
		return SourceNone, nil
	case "explicit":
		return SourceExplicit, nil
	case "contextual":
		return SourceContextual, nil
	}
	return SourceNone, fmt.Errorf("unknown scale source %q", s)
}

func (s ScaleSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ScaleSource) UnmarshalText(b []byte) error {
	parsed, err := ParseScaleSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Span is a half-open byte range [Start, End) within a page's text
type Span struct {
	Start int
	End   int
}

// NumberOccurrence is a single numeric token found on a page
type NumberOccurrence struct {
	Value        float64     `json:"value"`                // As written, separators removed
	OriginalText string      `json:"original_text"`        // Exact matched substring
	Page         int         `json:"page"`                 // Page index from the page source
	Offset       int         `json:"offset"`               // Byte offset within the page text
	Context      string      `json:"context"`              // Surrounding text for human verification
	IsScaled     bool        `json:"is_scaled"`            // Whether a scale factor applies
	ScaleFactor  ScaleFactor `json:"scale_factor"`         // none, thousand, million, billion, trillion
	ScaleSource  ScaleSource `json:"scale_source"`         // none, explicit, contextual
	ScaledValue  float64     `json:"scaled_value"`         // Value * multiplier
	ScaleHint    string      `json:"scale_hint,omitempty"` // Scale word or hint phrase that matched
}

// Span returns the byte range of the original text within its page
func (o NumberOccurrence) Span() Span {
	return Span{Start: o.Offset, End: o.Offset + len(o.OriginalText)}
}

// ApplyScale sets the scale fields and recomputes ScaledValue
func (o *NumberOccurrence) ApplyScale(factor ScaleFactor, source ScaleSource, hint string) {
	if factor == ScaleNone {
		source = SourceNone
		hint = ""
	}
	o.ScaleFactor = factor
	o.ScaleSource = source
	o.ScaleHint = hint
	o.IsScaled = factor != ScaleNone
	o.ScaledValue = o.Value * factor.Multiplier()
}

// Before reports whether o was seen before other in document reading order
func (o NumberOccurrence) Before(other NumberOccurrence) bool {
	if o.Page != other.Page {
		return o.Page < other.Page
	}
	return o.Offset < other.Offset
}

// NumberSet names one of the two ranked populations
type NumberSet string

const (
	SetUnscaled NumberSet = "unscaled" // every occurrence, ranked by raw value
	SetScaled   NumberSet = "scaled"   // scaled occurrences, ranked by scaled value
)

// RankValue returns the value an occurrence is ranked by within the given set
func (o NumberOccurrence) RankValue(set NumberSet) float64 {
	if set == SetScaled {
		return o.ScaledValue
	}
	return o.Value
}

// ValueMatch is a FindValue hit together with the set it was found in
type ValueMatch struct {
	Set        NumberSet        `json:"set"`
	Occurrence NumberOccurrence `json:"occurrence"`
}
