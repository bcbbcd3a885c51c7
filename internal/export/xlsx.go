// Package export writes scan results as spreadsheets for review outside numscan.
package export

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/numscan/internal/model"
)

const (
	SummarySheet  = "Summary"
	UnscaledSheet = "Unscaled"
	ScaledSheet   = "Scaled"
)

var occurrenceHeaders = []string{
	"#",
	"Value",
	"Scaled Value",
	"Original Text",
	"Page",
	"Offset",
	"Scale",
	"Source",
	"Hint",
	"Context",
}

// WorkbookXLSX builds a workbook with a summary sheet and one sheet per
// deduplicated set, rows in first-seen order.
func WorkbookXLSX(report *model.Report, unscaled, scaled []model.NumberOccurrence) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, eris.Wrap(err, "export: rename sheet")
	}
	writeSummary(f, report)

	for _, sheet := range []struct {
		name string
		set  model.NumberSet
		occs []model.NumberOccurrence
	}{
		{UnscaledSheet, model.SetUnscaled, unscaled},
		{ScaledSheet, model.SetScaled, scaled},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, eris.Wrapf(err, "export: create sheet %s", sheet.name)
		}
		writeOccurrences(f, sheet.name, sheet.occs)
	}

	activeIndex, _ := f.GetSheetIndex(SummarySheet)
	f.SetActiveSheet(activeIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "export: xlsx write")
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the workbook to path
func WriteXLSX(path string, report *model.Report, unscaled, scaled []model.NumberOccurrence) error {
	data, err := WorkbookXLSX(report, unscaled, scaled)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func writeSummary(f *excelize.File, report *model.Report) {
	rows := [][]any{
		{"Source", report.Source},
		{"Run", report.RunID},
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Pages", report.PageCount},
		{"Context scope", report.Settings.ContextScope},
		{"Unscaled found", report.Summary.UnscaledFound},
		{"Unscaled unique", report.Summary.UnscaledDeduplicated},
		{"Scaled found", report.Summary.ScaledFound},
		{"Scaled unique", report.Summary.ScaledDeduplicated},
	}
	if occ := report.LargestUnscaled; occ != nil {
		rows = append(rows, []any{"Largest unscaled", occ.Value, occ.OriginalText, occ.Page})
	}
	if occ := report.LargestScaled; occ != nil {
		rows = append(rows, []any{"Largest scaled", occ.ScaledValue, occ.OriginalText, occ.Page})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow(SummarySheet, cell, &row)
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 18)
	_ = f.SetColWidth(SummarySheet, "B", "B", 48)
}

func writeOccurrences(f *excelize.File, sheet string, occs []model.NumberOccurrence) {
	for i, h := range occurrenceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, occ := range occs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, i+1)
		write(2, occ.Value)
		write(3, occ.ScaledValue)
		write(4, occ.OriginalText)
		write(5, occ.Page)
		write(6, occ.Offset)
		write(7, occ.ScaleFactor.String())
		write(8, occ.ScaleSource.String())
		write(9, occ.ScaleHint)
		write(10, occ.Context)
	}

	_ = f.SetColWidth(sheet, "B", "C", 18) // values
	_ = f.SetColWidth(sheet, "D", "D", 16) // original text
	_ = f.SetColWidth(sheet, "I", "I", 24) // hint
	_ = f.SetColWidth(sheet, "J", "J", 80) // context
}
