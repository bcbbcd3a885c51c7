package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/numscan/internal/export"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/pipeline"
	"github.com/ppiankov/numscan/internal/store"
)

var (
	outJSON        string
	outMD          string
	outHTML        string
	outXLSX        string
	topN           int
	workers        int
	contextScope   string
	contextRadius  int
	explicitWindow int
	noAbbrev       bool
	expectValues   []float64
	tolerance      float64
	scanTimeout    time.Duration
	saveRun        bool
	noCache        bool
	noFooter       bool
	noRobots       bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <path-or-url>",
	Short: "Scan one document and rank the numbers it contains",
	Long: `Scan reads a document page by page and:
- Extracts every number (1,234.5 style separators)
- Attributes explicit scale words ("9.6 billion") and page hints ("in millions")
- Removes duplicates within each page
- Ranks unscaled and scaled values separately

Pages are separated by form feeds in text files, by PDF pages, and by
elements with class "page" in HTML.

Example:
  numscan scan budget-fy25.pdf
  numscan scan statement.txt --top 10 --json report.json --md report.md
  numscan scan https://example.gov/budget.pdf --expect 35110 --tolerance 0.1
  numscan scan book.pdf --scope document --save`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (optional)")
	scanCmd.Flags().StringVar(&outXLSX, "xlsx", "", "output spreadsheet of both deduplicated sets (optional)")
	scanCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown/HTML reports")

	// Analysis flags
	scanCmd.Flags().IntVar(&topN, "top", 5, "number of values listed per set")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "pages analysed in parallel (default: number of CPUs)")
	scanCmd.Flags().StringVar(&contextScope, "scope", "page", "reach of hints like \"in millions\": page or document")
	scanCmd.Flags().IntVar(&contextRadius, "context-radius", 40, "characters of context kept on each side of a number")
	scanCmd.Flags().IntVar(&explicitWindow, "explicit-window", 3, "max spaces/hyphens between a number and its scale word")
	scanCmd.Flags().BoolVar(&noAbbrev, "no-abbreviations", false, "ignore abbreviated scale words (mn, bn, tn)")

	// Lookup flags
	scanCmd.Flags().Float64SliceVar(&expectValues, "expect", nil, "expected value(s) to look up after the scan")
	scanCmd.Flags().Float64Var(&tolerance, "tolerance", 0.5, "absolute tolerance for --expect")

	// Run flags
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "overall scan timeout")
	scanCmd.Flags().BoolVar(&saveRun, "save", false, "archive the run for later 'numscan find' queries")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page analysis cache")
	scanCmd.Flags().BoolVar(&noRobots, "ignore-robots", false, "download documents even when robots.txt disallows it")
}

// applyScanFlags overrides configuration with explicitly set flags
func applyScanFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("top") {
		cfg.Report.TopN = topN
	}
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if flags.Changed("scope") {
		cfg.Scaling.ContextScope = contextScope
	}
	if flags.Changed("context-radius") {
		cfg.Extraction.ContextRadius = contextRadius
	}
	if flags.Changed("explicit-window") {
		cfg.Scaling.ExplicitWindow = explicitWindow
	}
	if flags.Changed("no-abbreviations") {
		cfg.Scaling.Abbreviations = !noAbbrev
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if flags.Changed("ignore-robots") {
		cfg.HTTP.RespectRobots = !noRobots
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	ref := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if cfg.Report.TopN < 0 {
		return eris.Errorf("--top must not be negative, got %d", cfg.Report.TopN)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, logger, newPageCache(cfg))
	if err != nil {
		return err
	}

	logger.Debug("scan: starting",
		zap.String("source", ref),
		zap.Int("workers", cfg.Concurrency.Workers),
		zap.String("scope", cfg.Scaling.ContextScope))

	result, err := p.ScanDocument(ctx, ref)
	if err != nil {
		return eris.Wrapf(err, "scan %s", ref)
	}
	if result.Report.NoData {
		return eris.Wrapf(pipeline.ErrNoData, "%s", ref)
	}

	if len(expectValues) > 0 {
		for _, check := range result.CheckTargets(expectValues, tolerance) {
			if !check.Found() {
				logger.Warn("scan: expected value not found",
					zap.Float64("target", check.Target),
					zap.Float64("tolerance", check.Tolerance))
			}
		}
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter, cfg.Report.ContextPreview)
	written, err := renderer.RenderReport(result.Report, pipeline.OutputPaths{
		JSON:     outJSON,
		Markdown: outMD,
		HTML:     outHTML,
	})
	for _, path := range written {
		logger.Info("scan: wrote report", zap.String("path", path))
	}
	if err != nil {
		return err
	}

	if outXLSX != "" {
		unscaled := result.Aggregator.Occurrences(model.SetUnscaled)
		scaled := result.Aggregator.Occurrences(model.SetScaled)
		if err := export.WriteXLSX(outXLSX, result.Report, unscaled, scaled); err != nil {
			return err
		}
		logger.Info("scan: wrote spreadsheet", zap.String("path", outXLSX))
	}

	if saveRun {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := archiveRun(ctx, st, result); err != nil {
			return err
		}
		logger.Info("scan: archived run", zap.String("run_id", result.Report.RunID))
	}

	renderer.RenderSummary(cmd.OutOrStdout(), result.Report)
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// archiveRun stores a scan result with both deduplicated sets
func archiveRun(ctx context.Context, st *store.Store, result *pipeline.ScanResult) error {
	return st.SaveRun(ctx, result.Report,
		result.Aggregator.Occurrences(model.SetUnscaled),
		result.Aggregator.Occurrences(model.SetScaled))
}
