package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/numscan/internal/export"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/pipeline"
	"github.com/ppiankov/numscan/internal/store"
	"github.com/ppiankov/numscan/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchXLSX    bool
	// Analysis, cache, footer and robots flags are shared with scan.go
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan multiple documents listed in a file",
	Long: `Batch processes several documents concurrently:
- Read paths or URLs from the input file (one per line, # comments)
- Scan documents in parallel; pages inside each document are parallel too
- Rate-limit downloads per host
- Write a JSON and Markdown report per document

Example:
  numscan batch documents.txt
  numscan batch documents.txt --concurrency 4 --output-dir ./reports
  numscan batch documents.txt --xlsx --save`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "documents processed in parallel")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./numscan-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchXLSX, "xlsx", false, "also write a spreadsheet per document")
	batchCmd.Flags().BoolVar(&saveRun, "save", false, "archive every run for later 'numscan find' queries")

	// Inherit flags from scan command
	batchCmd.Flags().IntVar(&topN, "top", 5, "number of values listed per set")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "pages analysed in parallel per document")
	batchCmd.Flags().StringVar(&contextScope, "scope", "page", "reach of hints like \"in millions\": page or document")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page analysis cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().BoolVar(&noRobots, "ignore-robots", false, "download documents even when robots.txt disallows it")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Documents = concurrency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	logger.Info("batch: starting",
		zap.String("input", file),
		zap.Int("concurrency", cfg.Concurrency.Documents),
		zap.String("output_dir", outputDir))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return eris.Wrap(err, "create output directory")
	}

	p, err := pipeline.NewPipeline(cfg, logger, newPageCache(cfg))
	if err != nil {
		return err
	}

	var st *store.Store
	if saveRun {
		if st, err = openStore(cfg); err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
	}

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Documents, newLimiter(cfg))
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter, cfg.Report.ContextPreview)
	out := cmd.OutOrStdout()

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if err := writeBatchResult(ctx, renderer, st, result); err != nil {
			failureCount++
			logger.Error("batch: document failed", zap.String("source", result.Ref), zap.Error(err))
			fmt.Fprintf(out, "✗ %s: %v\n", result.Ref, err)
			continue
		}

		successCount++
		report := result.Scan.Report
		largest := "none"
		if report.LargestScaled != nil {
			largest = pipeline.FormatValue(report.LargestScaled.ScaledValue)
		}
		fmt.Fprintf(out, "✓ %s (%d pages, largest scaled: %s)\n", result.Ref, report.PageCount, largest)
	}

	fmt.Fprintf(out, "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n",
		len(results), successCount, failureCount, outputDir)

	if failureCount > 0 && successCount == 0 {
		return eris.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// newLimiter builds the per-host download limiter; a non-positive rate
// disables limiting
func newLimiter(cfg *model.Config) *worker.Limiter {
	rl := cfg.RateLimiting
	if rl.RequestsPerSecond <= 0 {
		return nil
	}

	limiter := worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.Delay)
	for host, rps := range rl.Hosts {
		limiter.SetHostRate(host, rps)
	}
	return limiter
}

// writeBatchResult renders, exports and archives one document's result
func writeBatchResult(ctx context.Context, renderer *pipeline.Renderer, st *store.Store, result *worker.DocumentResult) error {
	if result.Error != nil {
		return result.Error
	}
	if result.Scan.Report.NoData {
		return eris.Wrapf(pipeline.ErrNoData, "%s", result.Ref)
	}

	report := result.Scan.Report
	base := filepath.Join(outputDir, reportName(result.Index, report.Source))

	_, err := renderer.RenderReport(report, pipeline.OutputPaths{
		JSON:     base + ".json",
		Markdown: base + ".md",
	})
	if err != nil {
		return err
	}

	if batchXLSX {
		unscaled := result.Scan.Aggregator.Occurrences(model.SetUnscaled)
		scaled := result.Scan.Aggregator.Occurrences(model.SetScaled)
		if err := export.WriteXLSX(base+".xlsx", report, unscaled, scaled); err != nil {
			return err
		}
	}

	if st != nil {
		if err := archiveRun(ctx, st, result.Scan); err != nil {
			return err
		}
	}
	return nil
}

// reportName derives a file name from a document source. The list index
// keeps documents with the same base name apart.
func reportName(index int, source string) string {
	name := source
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))

	name = sanitizeFilename(name)
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("%03d-%s", index+1, name)
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
