package dedupe

import (
	"testing"

	"github.com/ppiankov/numscan/internal/model"
)

func occ(value float64, text string, page, offset int) model.NumberOccurrence {
	return model.NumberOccurrence{
		Value:        value,
		OriginalText: text,
		Page:         page,
		Offset:       offset,
		ScaledValue:  value,
	}
}

func TestDeduplicate_KeepsFirst(t *testing.T) {
	occs := []model.NumberOccurrence{
		occ(500, "500", 1, 0),
		occ(500, "500", 1, 40),
		occ(500, "500", 2, 3),
		occ(1000, "1,000", 1, 10),
		occ(1000, "1000", 1, 20),
	}

	unique := Deduplicate(occs, model.SetUnscaled)
	if len(unique) != 4 {
		t.Fatalf("Expected 4 unique occurrences, got %d", len(unique))
	}
	if unique[0].Offset != 0 {
		t.Errorf("Expected first-seen occurrence kept, got offset %d", unique[0].Offset)
	}
	if unique[1].Page != 2 {
		t.Error("Expected the same value on another page to stay distinct")
	}
	if unique[2].OriginalText != "1,000" || unique[3].OriginalText != "1000" {
		t.Error("Expected differently formatted tokens to stay distinct")
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	occs := []model.NumberOccurrence{
		occ(1, "1", 1, 0),
		occ(1, "1", 1, 5),
		occ(2, "2", 1, 9),
	}

	once := Deduplicate(occs, model.SetUnscaled)
	twice := Deduplicate(once, model.SetUnscaled)
	if len(once) != len(twice) {
		t.Fatalf("Expected idempotence, got %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Occurrence %d changed on second pass", i)
		}
	}
}

func TestDeduplicate_ScaledSetUsesScaledValue(t *testing.T) {
	thousand := occ(5, "5", 1, 0)
	thousand.ApplyScale(model.ScaleThousand, model.SourceContextual, "in thousands")
	million := occ(5, "5", 1, 30)
	million.ApplyScale(model.ScaleMillion, model.SourceExplicit, "million")

	scaled := Deduplicate([]model.NumberOccurrence{thousand, million}, model.SetScaled)
	if len(scaled) != 2 {
		t.Errorf("Expected different scales to stay distinct in the scaled set, got %d", len(scaled))
	}

	unscaled := Deduplicate([]model.NumberOccurrence{thousand, million}, model.SetUnscaled)
	if len(unscaled) != 1 {
		t.Errorf("Expected one raw 5 on page 1 in the unscaled set, got %d", len(unscaled))
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	if got := Deduplicate(nil, model.SetUnscaled); len(got) != 0 {
		t.Errorf("Expected empty result, got %d", len(got))
	}
}
