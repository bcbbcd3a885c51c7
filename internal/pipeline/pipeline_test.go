package pipeline

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/numscan/internal/cache"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/scale"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Concurrency.Workers = 4
	cfg.HTTP.RespectRobots = false
	return cfg
}

func newTestPipeline(t *testing.T, cfg *model.Config, c cache.Cache) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, zap.NewNop(), c)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func TestNewPipeline_InvalidScope(t *testing.T) {
	cfg := testConfig()
	cfg.Scaling.ContextScope = "chapter"
	if _, err := NewPipeline(cfg, nil, nil); err == nil {
		t.Error("Expected error for unknown context scope")
	}
}

func TestAnalyze_Scenarios(t *testing.T) {
	p := newTestPipeline(t, testConfig(), nil)

	pages := []model.Page{
		{Index: 1, Text: "Revenue was $6,000,000 and costs 250,000."},
		{Index: 2, Text: "(dollars in millions) Total Revenue 30,704.1 29,176.6"},
		{Index: 3, Text: "Assets of 9.6 billion dollars"},
	}

	result, err := p.Analyze(context.Background(), "fixture", pages)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Report

	if report.NoData || report.PageCount != 3 {
		t.Errorf("Expected 3 pages of data, got %d (NoData=%v)", report.PageCount, report.NoData)
	}
	if report.RunID == "" {
		t.Error("Expected a run ID")
	}
	if report.LargestUnscaled == nil || report.LargestUnscaled.Value != 6e6 {
		t.Errorf("Expected largest unscaled 6e6, got %+v", report.LargestUnscaled)
	}
	if report.LargestScaled == nil || report.LargestScaled.ScaledValue != 30704100000 {
		t.Errorf("Expected largest scaled 30704100000, got %+v", report.LargestScaled)
	}
	if report.Summary.UnscaledFound != 5 || report.Summary.ScaledFound != 3 {
		t.Errorf("Unexpected summary: %+v", report.Summary)
	}
	if len(report.Hints) != 1 || report.Hints[0].Page != 2 || report.Hints[0].Factor != model.ScaleMillion {
		t.Errorf("Expected one millions hint on page 2, got %+v", report.Hints)
	}
	if report.Settings.ContextScope != string(scale.ScopePage) {
		t.Errorf("Expected resolved scope in settings, got %q", report.Settings.ContextScope)
	}

	matches := result.Aggregator.FindValue(6000000, 0.5)
	if len(matches) != 1 {
		t.Errorf("Expected exactly one match for 6000000, got %d", len(matches))
	}
}

func TestAnalyze_ReadingOrderIndependentOfWorkers(t *testing.T) {
	pages := make([]model.Page, 25)
	for i := range pages {
		pages[i] = model.Page{Index: i + 1, Text: fmt.Sprintf("line %d total 500", i)}
	}

	var firstTop []model.NumberOccurrence
	for _, workers := range []int{1, 8} {
		cfg := testConfig()
		cfg.Concurrency.Workers = workers
		cfg.Report.TopN = 3

		result, err := newTestPipeline(t, cfg, nil).Analyze(context.Background(), "fixture", pages)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		top := result.Report.TopUnscaled
		if len(top) != 3 {
			t.Fatalf("Expected 3 top entries, got %d", len(top))
		}
		// Every page has a 500; ties keep reading order
		for i, occ := range top {
			if occ.Value != 500 || occ.Page != i+1 {
				t.Errorf("workers=%d: expected 500 from page %d, got %v from page %d", workers, i+1, occ.Value, occ.Page)
			}
		}

		if firstTop == nil {
			firstTop = top
			continue
		}
		for i := range top {
			if top[i] != firstTop[i] {
				t.Errorf("Expected identical results regardless of workers at %d", i)
			}
		}
	}
}

func TestAnalyze_NoPages(t *testing.T) {
	result, err := newTestPipeline(t, testConfig(), nil).Analyze(context.Background(), "empty", nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.Report.NoData {
		t.Error("Expected NoData for a document without pages")
	}
	if result.Report.LargestUnscaled != nil || result.Report.LargestScaled != nil {
		t.Error("Expected no largest values")
	}
}

func TestAnalyze_GluedScaleWords(t *testing.T) {
	p := newTestPipeline(t, testConfig(), nil)

	tests := []struct {
		text   string
		value  float64
		factor model.ScaleFactor
		scaled float64
	}{
		{"Assets of 9.6billion dollars", 9.6, model.ScaleBillion, 9.6e9},
		{"raised $4.2bn last year", 4.2, model.ScaleBillion, 4.2e9},
		{"debt of 5million", 5, model.ScaleMillion, 5e6},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result, err := p.Analyze(context.Background(), "fixture", []model.Page{{Index: 1, Text: tt.text}})
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			summary := result.Report.Summary
			if summary.UnscaledFound != 1 || summary.ScaledFound != 1 {
				t.Fatalf("Expected one unscaled and one scaled occurrence, got %+v", summary)
			}

			occ, ok := result.Aggregator.LargestScaled()
			if !ok {
				t.Fatal("Expected a largest scaled occurrence")
			}
			if occ.Value != tt.value || occ.ScaleFactor != tt.factor || occ.ScaleSource != model.SourceExplicit {
				t.Errorf("Expected %v %v explicit, got %v %v %v", tt.value, tt.factor, occ.Value, occ.ScaleFactor, occ.ScaleSource)
			}
			if math.Abs(occ.ScaledValue-tt.scaled) > 1e-3 {
				t.Errorf("Expected scaled value %v, got %v", tt.scaled, occ.ScaledValue)
			}
		})
	}
}

func TestAnalyze_ProgressEveryTenPages(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p, err := NewPipeline(testConfig(), zap.New(core), nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	pages := make([]model.Page, 25)
	for i := range pages {
		pages[i] = model.Page{Index: i + 1, Text: fmt.Sprintf("line %d", i)}
	}
	if _, err := p.Analyze(context.Background(), "fixture", pages); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	progress := logs.FilterMessage("pipeline: progress").All()
	if len(progress) != 2 {
		t.Fatalf("Expected 2 progress lines for 25 pages, got %d", len(progress))
	}
	seen := map[any]bool{}
	for _, entry := range progress {
		seen[entry.ContextMap()["pages_done"]] = true
	}
	if !seen[int64(10)] || !seen[int64(20)] {
		t.Errorf("Expected progress after pages 10 and 20, got %v", seen)
	}
}

func TestAnalyze_BlankPagesAreData(t *testing.T) {
	pages := []model.Page{{Index: 1, Text: "   "}, {Index: 2, Text: ""}}
	result, err := newTestPipeline(t, testConfig(), nil).Analyze(context.Background(), "blank", pages)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Report.NoData {
		t.Error("Expected blank pages to still count as data")
	}
	if result.Report.Summary != (model.CountSummary{}) {
		t.Errorf("Expected zero counts, got %+v", result.Report.Summary)
	}
}

func TestAnalyze_DocumentScope(t *testing.T) {
	cfg := testConfig()
	cfg.Scaling.ContextScope = "document"

	pages := []model.Page{
		{Index: 1, Text: "Statement (in thousands) 12"},
		{Index: 2, Text: "continued 30"},
	}
	result, err := newTestPipeline(t, cfg, nil).Analyze(context.Background(), "fixture", pages)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Report.LargestScaled == nil || result.Report.LargestScaled.ScaledValue != 30000 {
		t.Errorf("Expected inherited thousands on page 2, got %+v", result.Report.LargestScaled)
	}
	if len(result.Report.Hints) != 2 || !result.Report.Hints[1].Inherited {
		t.Errorf("Expected inherited hint for page 2, got %+v", result.Report.Hints)
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := []model.Page{{Index: 1, Text: "1"}, {Index: 2, Text: "2"}}
	if _, err := newTestPipeline(t, testConfig(), nil).Analyze(ctx, "fixture", pages); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestAnalyzePage_Cache(t *testing.T) {
	c := cache.NewMemoryCache(0, 0)
	p := newTestPipeline(t, testConfig(), c)

	page := model.Page{Index: 1, Text: "total 4.5 billion"}
	first := p.AnalyzePage(page, nil)
	if c.Len() != 1 {
		t.Fatalf("Expected one cached page, got %d", c.Len())
	}

	second := p.AnalyzePage(page, nil)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Errorf("Expected cached analysis to match, got %+v and %+v", first, second)
	}

	hint := &scale.Hint{Factor: model.ScaleMillion, Phrase: "in millions"}
	p.AnalyzePage(model.Page{Index: 1, Text: "total 7"}, hint)
	p.AnalyzePage(model.Page{Index: 1, Text: "total 7"}, nil)
	if c.Len() != 3 {
		t.Errorf("Expected hint to be part of the cache key, got %d entries", c.Len())
	}
}

func TestCheckTargets(t *testing.T) {
	pages := []model.Page{{Index: 1, Text: "Revenue was $6,000,000 and costs 250,000."}}
	result, err := newTestPipeline(t, testConfig(), nil).Analyze(context.Background(), "fixture", pages)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	checks := result.CheckTargets([]float64{6000000, 35110}, 0.5)
	if len(checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(checks))
	}
	if !checks[0].Found() || len(checks[0].Matches) != 1 {
		t.Errorf("Expected 6000000 to be found once, got %+v", checks[0])
	}
	if checks[1].Found() || checks[1].Matches == nil {
		t.Errorf("Expected 35110 to be missing with an empty match list, got %+v", checks[1])
	}
	if len(result.Report.Checks) != 2 {
		t.Errorf("Expected checks recorded on the report, got %d", len(result.Report.Checks))
	}
}

func TestScanDocument_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.txt")
	content := "Summary page 100\f(in millions) Net income 1,234.5\f"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := newTestPipeline(t, testConfig(), nil).ScanDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("ScanDocument failed: %v", err)
	}
	if result.Report.Source != path || result.Report.PageCount != 2 {
		t.Errorf("Unexpected report header: %s %d", result.Report.Source, result.Report.PageCount)
	}
	if result.Report.LargestScaled == nil || result.Report.LargestScaled.Page != 2 {
		t.Errorf("Expected scaled value on page 2, got %+v", result.Report.LargestScaled)
	}
}

func TestScanDocument_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><body><div class="page"><p>Budget 2.5 trillion</p></div><div class="page"><p>Staff 1,200</p></div></body></html>`)
	}))
	defer server.Close()

	result, err := newTestPipeline(t, testConfig(), nil).ScanDocument(context.Background(), server.URL+"/budget")
	if err != nil {
		t.Fatalf("ScanDocument failed: %v", err)
	}
	if result.Report.PageCount != 2 {
		t.Errorf("Expected 2 pages, got %d", result.Report.PageCount)
	}
	if result.Report.LargestScaled == nil || result.Report.LargestScaled.ScaledValue != 2.5e12 {
		t.Errorf("Expected 2.5 trillion, got %+v", result.Report.LargestScaled)
	}
	if result.Report.LargestUnscaled == nil || result.Report.LargestUnscaled.Value != 1200 {
		t.Errorf("Expected largest unscaled 1200, got %+v", result.Report.LargestUnscaled)
	}
}

func TestScanDocument_MissingFile(t *testing.T) {
	_, err := newTestPipeline(t, testConfig(), nil).ScanDocument(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://example.com/a.pdf") || !IsRemote("HTTP://example.com") {
		t.Error("Expected http(s) references to be remote")
	}
	if IsRemote("reports/a.pdf") || IsRemote("ftp://example.com/a.pdf") {
		t.Error("Expected other references to be local")
	}
}
