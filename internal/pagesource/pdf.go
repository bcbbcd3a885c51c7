package pagesource

import (
	"bytes"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/model"
)

// ParsePDF extracts plain text from each page of a PDF. Pages whose text
// cannot be read are kept as empty pages so numbering stays aligned with the
// document.
func ParsePDF(data []byte) (pages []model.Page, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = eris.Errorf("pagesource: malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "pagesource: open pdf")
	}

	count := reader.NumPage()
	pages = make([]model.Page, 0, count)
	for i := 1; i <= count; i++ {
		page := model.Page{Index: i}

		p := reader.Page(i)
		if !p.V.IsNull() {
			if text, textErr := p.GetPlainText(nil); textErr == nil {
				page.Text = text
			}
		}

		pages = append(pages, page)
	}

	return pages, nil
}
