package pagesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseText_FormFeedPages(t *testing.T) {
	pages := ParseText([]byte("Revenue 6,000,000\fCosts 250,000\f\fTotals\f"))

	if len(pages) != 4 {
		t.Fatalf("Expected 4 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.Index != i+1 {
			t.Errorf("Expected page %d to have index %d, got %d", i, i+1, p.Index)
		}
	}
	if !strings.Contains(pages[1].Text, "250,000") {
		t.Errorf("Expected page 2 to hold costs, got %q", pages[1].Text)
	}
	if strings.TrimSpace(pages[2].Text) != "" {
		t.Errorf("Expected page 3 to be blank, got %q", pages[2].Text)
	}
}

func TestParseText_Blank(t *testing.T) {
	if pages := ParseText([]byte("  \n\t ")); len(pages) != 0 {
		t.Errorf("Expected no pages for blank input, got %d", len(pages))
	}
}

func TestParseHTML_VisibleTextAndPageBreaks(t *testing.T) {
	doc := `<html><head><style>.x{}</style><script>var total = 999999;</script></head>
	<body>
		<div class="page"><p>(dollars in millions)</p><table><tr><td>Revenue</td><td>30,704.1</td></tr></table></div>
		<div class="page"><p>Headcount 1,250</p></div>
	</body></html>`

	pages, err := ParseHTML([]byte(doc))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d: %+v", len(pages), pages)
	}
	if strings.Contains(pages[0].Text, "999999") {
		t.Error("Should not extract text from script tags")
	}
	if !strings.Contains(pages[0].Text, "30,704.1") || !strings.Contains(pages[0].Text, "dollars in millions") {
		t.Errorf("Expected first page to contain the table, got %q", pages[0].Text)
	}
	if !strings.Contains(pages[1].Text, "1,250") || pages[1].Index != 2 {
		t.Errorf("Expected second page to contain headcount, got %+v", pages[1])
	}
}

func TestParseHTML_SinglePage(t *testing.T) {
	pages, err := ParseHTML([]byte(`<p>Assets of 9.6 billion dollars</p>`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(pages) != 1 || pages[0].Index != 1 {
		t.Fatalf("Expected a single page, got %+v", pages)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		head        string
		expected    Kind
		desc        string
	}{
		{"report.bin", "application/pdf", "", KindPDF, "content type wins"},
		{"page", "text/html; charset=utf-8", "", KindHTML, "html content type with params"},
		{"budget.PDF", "", "", KindPDF, "extension is case-insensitive"},
		{"notes.txt", "", "", KindText, "text extension"},
		{"download", "", "%PDF-1.7\n", KindPDF, "pdf magic bytes"},
		{"download", "", "<!DOCTYPE html><html>", KindHTML, "html doctype"},
		{"download", "", "plain words", KindText, "fallback to text"},
		{"download", "", "", KindUnknown, "nothing to go on"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := DetectKind(tt.name, tt.contentType, []byte(tt.head)); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse([]byte("x"), KindUnknown)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestParsePDF_Garbage(t *testing.T) {
	if _, err := ParsePDF([]byte("definitely not a pdf")); err == nil {
		t.Error("Expected an error for non-PDF input")
	}
}

func TestLoad_TextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("page one 12\fpage two 34"), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("Expected 2 pages, got %d", len(pages))
	}

	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
