// Package pagesource turns documents into numbered pages of plain text.
package pagesource

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/model"
)

// ErrUnsupported is returned for document kinds no source can read
var ErrUnsupported = eris.New("unsupported document kind")

// Kind identifies a document format
type Kind string

const (
	KindText    Kind = "text"
	KindPDF     Kind = "pdf"
	KindHTML    Kind = "html"
	KindUnknown Kind = ""
)

// DetectKind infers the document kind from a content type, a file name, or
// the leading bytes, in that order of preference.
func DetectKind(name, contentType string, head []byte) Kind {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch {
			case mediaType == "application/pdf":
				return KindPDF
			case mediaType == "text/html", mediaType == "application/xhtml+xml":
				return KindHTML
			case strings.HasPrefix(mediaType, "text/"):
				return KindText
			}
		}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".html", ".htm", ".xhtml":
		return KindHTML
	case ".txt", ".text", ".md", ".csv":
		return KindText
	}

	trimmed := strings.TrimSpace(string(head[:min(len(head), 512)]))
	switch {
	case strings.HasPrefix(trimmed, "%PDF-"):
		return KindPDF
	case strings.HasPrefix(strings.ToLower(trimmed), "<!doctype html"), strings.HasPrefix(strings.ToLower(trimmed), "<html"):
		return KindHTML
	case len(head) > 0:
		return KindText
	}

	return KindUnknown
}

// Parse splits document bytes of the given kind into pages
func Parse(data []byte, kind Kind) ([]model.Page, error) {
	switch kind {
	case KindText:
		return ParseText(data), nil
	case KindPDF:
		return ParsePDF(data)
	case KindHTML:
		return ParseHTML(data)
	}
	return nil, eris.Wrapf(ErrUnsupported, "kind %q", kind)
}

// Load reads a document from disk and splits it into pages
func Load(ctx context.Context, path string) ([]model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pagesource: read %s", path)
	}

	kind := DetectKind(path, "", data)
	pages, err := Parse(data, kind)
	if err != nil {
		return nil, eris.Wrapf(err, "pagesource: parse %s", path)
	}
	return pages, nil
}
