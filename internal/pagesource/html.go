package pagesource

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/ppiankov/numscan/internal/model"
)

// ParseHTML extracts visible text from an HTML document. Elements with class
// "page" or a CSS page break start a new page, which is how PDF-to-HTML
// converters mark page boundaries; otherwise the document is a single page.
func ParseHTML(data []byte) ([]model.Page, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "pagesource: parse html")
	}

	var pages []string
	var buf strings.Builder

	flush := func() {
		if strings.TrimSpace(buf.String()) != "" || len(pages) > 0 {
			pages = append(pages, buf.String())
		}
		buf.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			// Skip script, style, noscript tags
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
			if startsPage(n) && buf.Len() > 0 {
				flush()
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteString("\n")
		}
	}

	walk(doc)
	if strings.TrimSpace(buf.String()) != "" {
		flush()
	}

	out := make([]model.Page, len(pages))
	for i, text := range pages {
		out[i] = model.Page{Index: i + 1, Text: text}
	}
	return out, nil
}

// startsPage reports whether an element marks the beginning of a page
func startsPage(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				if class == "page" {
					return true
				}
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "page-break-before:always") || strings.Contains(style, "break-before:page") {
				return true
			}
		}
	}
	return false
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "tr", "li", "br", "h1", "h2", "h3", "h4", "h5", "h6", "table", "section", "article":
		return true
	}
	return false
}
