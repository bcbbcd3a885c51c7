package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/numscan/internal/model"
)

// Renderer renders reports to various formats
type Renderer struct {
	includeFooter bool
	previewChars  int
	markdown      goldmark.Markdown
}

// NewRenderer creates a new renderer. previewChars bounds the context shown
// in the terminal summary; zero or less shows it in full.
func NewRenderer(includeFooter bool, previewChars int) *Renderer {
	return &Renderer{
		includeFooter: includeFooter,
		previewChars:  previewChars,
		markdown:      goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// OutputPaths lists the report files to write; empty paths are skipped
type OutputPaths struct {
	JSON     string
	Markdown string
	HTML     string
}

// RenderReport writes every requested report file and returns the paths written
func (r *Renderer) RenderReport(report *model.Report, paths OutputPaths) ([]string, error) {
	var written []string

	if paths.JSON != "" {
		if err := r.RenderJSON(report, paths.JSON); err != nil {
			return written, eris.Wrap(err, "render JSON")
		}
		written = append(written, paths.JSON)
	}

	if paths.Markdown != "" {
		if err := r.RenderMarkdown(report, paths.Markdown); err != nil {
			return written, eris.Wrap(err, "render markdown")
		}
		written = append(written, paths.Markdown)
	}

	if paths.HTML != "" {
		if err := r.RenderHTML(report, paths.HTML); err != nil {
			return written, eris.Wrap(err, "render HTML")
		}
		written = append(written, paths.HTML)
	}

	return written, nil
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(report)), 0644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// RenderHTML converts the Markdown report to a standalone HTML page
func (r *Renderer) RenderHTML(report *model.Report, path string) error {
	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(r.Markdown(report)), &body); err != nil {
		return eris.Wrap(err, "convert markdown")
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>numscan: %s</title>\n", html.EscapeString(report.Source))
	page.WriteString("<style>body{font-family:sans-serif;max-width:72em;margin:2em auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25em .5em}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(path, page.Bytes(), 0644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// Markdown returns the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Numbers in %s\n\n", report.Source)
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Pages: %d\n", report.PageCount)
	fmt.Fprintf(&b, "- Context scope: %s\n\n", report.Settings.ContextScope)

	if report.NoData {
		b.WriteString("No pages were found in this document.\n")
		r.writeFooter(&b, report)
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Set | Found | Unique | Largest |\n|---|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| Unscaled | %d | %d | %s |\n",
		report.Summary.UnscaledFound, report.Summary.UnscaledDeduplicated,
		largestCell(report.LargestUnscaled, model.SetUnscaled))
	fmt.Fprintf(&b, "| Scaled | %d | %d | %s |\n\n",
		report.Summary.ScaledFound, report.Summary.ScaledDeduplicated,
		largestCell(report.LargestScaled, model.SetScaled))

	writeTable(&b, fmt.Sprintf("Top %d unscaled", report.Settings.TopN), report.TopUnscaled, model.SetUnscaled)
	writeTable(&b, fmt.Sprintf("Top %d scaled", report.Settings.TopN), report.TopScaled, model.SetScaled)

	if len(report.Hints) > 0 {
		b.WriteString("## Page scale hints\n\n| Page | Scale | Phrase |\n|---:|---|---|\n")
		for _, h := range report.Hints {
			phrase := escapeCell(h.Phrase)
			if h.Inherited {
				phrase += " (carried forward)"
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n", h.Page, h.Factor, phrase)
		}
		b.WriteString("\n")
	}

	if len(report.Checks) > 0 {
		b.WriteString("## Expected values\n\n")
		for _, c := range report.Checks {
			if !c.Found() {
				fmt.Fprintf(&b, "- %s ± %s: **not found**\n", FormatValue(c.Target), FormatValue(c.Tolerance))
				continue
			}
			fmt.Fprintf(&b, "- %s ± %s: found %d time(s)\n", FormatValue(c.Target), FormatValue(c.Tolerance), len(c.Matches))
			for _, m := range c.Matches {
				fmt.Fprintf(&b, "  - %s set, page %d: `%s`\n", m.Set, m.Occurrence.Page, m.Occurrence.OriginalText)
			}
		}
		b.WriteString("\n")
	}

	r.writeFooter(&b, report)
	return b.String()
}

func (r *Renderer) writeFooter(b *strings.Builder, report *model.Report) {
	if !r.includeFooter {
		return
	}
	fmt.Fprintf(b, "\n---\n_Generated by numscan at %s._\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
}

func writeTable(b *strings.Builder, title string, occs []model.NumberOccurrence, set model.NumberSet) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(occs) == 0 {
		b.WriteString("_None._\n\n")
		return
	}

	b.WriteString("| # | Value | Text | Page | Scale | Context |\n|---:|---:|---|---:|---|---|\n")
	for i, occ := range occs {
		fmt.Fprintf(b, "| %d | %s | `%s` | %d | %s | %s |\n",
			i+1, FormatValue(occ.RankValue(set)), occ.OriginalText, occ.Page,
			scaleLabel(occ), escapeCell(occ.Context))
	}
	b.WriteString("\n")
}

// RenderSummary prints a human-readable summary to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n%s\n", report.Source)
	fmt.Fprintf(w, "Pages: %d | Run: %s\n", report.PageCount, report.RunID)

	if report.NoData {
		fmt.Fprintln(w, "No pages found.")
		return
	}

	fmt.Fprintf(w, "Unscaled: %d found, %d unique\n", report.Summary.UnscaledFound, report.Summary.UnscaledDeduplicated)
	fmt.Fprintf(w, "Scaled:   %d found, %d unique\n", report.Summary.ScaledFound, report.Summary.ScaledDeduplicated)

	r.summarySet(w, "Largest unscaled", report.LargestUnscaled, report.TopUnscaled, model.SetUnscaled)
	r.summarySet(w, "Largest scaled", report.LargestScaled, report.TopScaled, model.SetScaled)

	for _, c := range report.Checks {
		status := "NOT FOUND"
		if c.Found() {
			status = fmt.Sprintf("found %d", len(c.Matches))
		}
		fmt.Fprintf(w, "\nExpected %s (±%s): %s\n", FormatValue(c.Target), FormatValue(c.Tolerance), status)
	}
}

func (r *Renderer) summarySet(w io.Writer, title string, largest *model.NumberOccurrence, top []model.NumberOccurrence, set model.NumberSet) {
	fmt.Fprintf(w, "\n%s: ", title)
	if largest == nil {
		fmt.Fprintln(w, "none")
		return
	}
	fmt.Fprintf(w, "%s (page %d, %q)\n", FormatValue(largest.RankValue(set)), largest.Page, largest.OriginalText)

	for i, occ := range top {
		fmt.Fprintf(w, "  %2d. %-20s p.%-4d %-10s %s\n",
			i+1, FormatValue(occ.RankValue(set)), occ.Page, scaleLabel(occ), r.preview(occ.Context))
	}
}

// preview truncates context to previewChars runes
func (r *Renderer) preview(context string) string {
	if r.previewChars <= 0 {
		return context
	}
	runes := []rune(context)
	if len(runes) <= r.previewChars {
		return context
	}
	return string(runes[:r.previewChars]) + "..."
}

// FormatValue renders a value with comma thousands separators and no
// trailing fractional zeros
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}

	if hasFrac {
		return sign + grouped.String() + "." + frac
	}
	return sign + grouped.String()
}

func largestCell(occ *model.NumberOccurrence, set model.NumberSet) string {
	if occ == nil {
		return "-"
	}
	return fmt.Sprintf("%s (p.%d)", FormatValue(occ.RankValue(set)), occ.Page)
}

func scaleLabel(occ model.NumberOccurrence) string {
	if !occ.IsScaled {
		return "-"
	}
	return occ.ScaleFactor.String() + "/" + occ.ScaleSource.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
