package pagesource

import (
	"strings"

	"github.com/ppiankov/numscan/internal/model"
)

// pageBreak is the form feed emitted between pages by pdftotext and similar tools
const pageBreak = "\f"

// ParseText splits plain text on form feeds. Pages are numbered from 1 and
// keep their position even when blank. A document that is blank as a whole
// has no pages.
func ParseText(data []byte) []model.Page {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := strings.Split(text, pageBreak)
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1] // trailing form feed
	}

	pages := make([]model.Page, len(parts))
	for i, part := range parts {
		pages[i] = model.Page{Index: i + 1, Text: part}
	}
	return pages
}
