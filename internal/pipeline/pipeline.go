package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/numscan/internal/aggregate"
	"github.com/ppiankov/numscan/internal/cache"
	"github.com/ppiankov/numscan/internal/extract"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/pagesource"
	"github.com/ppiankov/numscan/internal/scale"
)

// ErrNoData marks a document that produced no pages at all
var ErrNoData = eris.New("document has no pages")

// progressEvery is the page interval between progress log lines
const progressEvery = 10

// Pipeline orchestrates the complete scan process
type Pipeline struct {
	fetcher     *Fetcher
	extractor   *extract.NumberExtractor
	classifier  *scale.Classifier
	scope       scale.Scope
	cache       cache.Cache // nil disables the page analysis cache
	logger      *zap.Logger
	config      *model.Config
	fingerprint string
}

// NewPipeline creates a new pipeline with the given configuration.
// logger and pageCache may be nil.
func NewPipeline(cfg *model.Config, logger *zap.Logger, pageCache cache.Cache) (*Pipeline, error) {
	scope, err := scale.ParseScope(cfg.Scaling.ContextScope)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor := extract.NewNumberExtractor(cfg.Extraction.ContextRadius)
	extractor.OnParseError = func(page int, token string, err error) {
		logger.Warn("extract: dropped unparsable token",
			zap.Int("page", page),
			zap.String("token", token),
			zap.Error(err))
	}

	return &Pipeline{
		fetcher: NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.RespectRobots, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		extractor:  extractor,
		classifier: scale.NewClassifier(cfg.Scaling.ExplicitWindow, cfg.Scaling.Abbreviations),
		scope:      scope,
		cache:      pageCache,
		logger:     logger,
		config:     cfg,
		fingerprint: fmt.Sprintf("radius=%d window=%d abbr=%t",
			cfg.Extraction.ContextRadius, cfg.Scaling.ExplicitWindow, cfg.Scaling.Abbreviations),
	}, nil
}

// ScanResult contains the report together with the aggregator it was built
// from, so callers can run further FindValue queries
type ScanResult struct {
	Report     *model.Report
	Aggregator *aggregate.Aggregator
}

// ScanDocument loads a document from a path or http(s) URL and analyses it.
// A document without pages yields a report with NoData set.
func (p *Pipeline) ScanDocument(ctx context.Context, ref string) (*ScanResult, error) {
	pages, source, err := p.loadPages(ctx, ref)
	if err != nil {
		return nil, err
	}

	p.logger.Info("pipeline: document loaded",
		zap.String("source", source),
		zap.Int("pages", len(pages)))

	return p.Analyze(ctx, source, pages)
}

// loadPages resolves a document reference into pages and a display source
func (p *Pipeline) loadPages(ctx context.Context, ref string) ([]model.Page, string, error) {
	if !IsRemote(ref) {
		pages, err := pagesource.Load(ctx, ref)
		if err != nil {
			return nil, "", eris.Wrap(err, "load")
		}
		return pages, ref, nil
	}

	result, err := p.fetcher.FetchWithRetry(ctx, ref)
	if err != nil {
		return nil, "", eris.Wrapf(err, "download %s", ref)
	}

	kind := pagesource.DetectKind(result.Name, result.ContentType, result.Data)
	pages, err := pagesource.Parse(result.Data, kind)
	if err != nil {
		return nil, "", eris.Wrapf(err, "parse %s", result.FinalURL)
	}
	return pages, result.FinalURL, nil
}

// Analyze runs extraction and classification over every page and assembles
// the report. Pages are analysed concurrently and merged in reading order.
func (p *Pipeline) Analyze(ctx context.Context, source string, pages []model.Page) (*ScanResult, error) {
	start := time.Now()
	hints := scale.ResolveHints(pages, p.scope)

	results := make([][]model.NumberOccurrence, len(pages))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.config.Concurrency.Workers))

	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.AnalyzePage(page, hints[i])

			if n := done.Add(1); n%progressEvery == 0 {
				p.logger.Info("pipeline: progress",
					zap.Int64("pages_done", n),
					zap.Int("pages", len(pages)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: analyse pages")
	}

	agg := aggregate.New()
	for _, occs := range results {
		agg.Merge(occs)
	}

	report := p.buildReport(source, pages, hints, agg)

	p.logger.Info("pipeline: analysis complete",
		zap.String("source", source),
		zap.Int("pages", len(pages)),
		zap.Int("occurrences", agg.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &ScanResult{Report: report, Aggregator: agg}, nil
}

// AnalyzePage extracts and classifies one page, consulting the page cache
func (p *Pipeline) AnalyzePage(page model.Page, hint *scale.Hint) []model.NumberOccurrence {
	var key string
	if p.cache != nil {
		key = cache.PageKey(p.fingerprint, strconv.Itoa(page.Index), hintKey(hint), page.Text)
		if data, ok := p.cache.Get(key); ok {
			var occs []model.NumberOccurrence
			if err := json.Unmarshal(data, &occs); err == nil {
				return occs
			}
			p.logger.Debug("cache: discarding unreadable entry", zap.Int("page", page.Index))
		}
	}

	occs := p.extractor.ExtractAll(page)
	p.classifier.ClassifyAll(occs, page.Text, hint)

	if p.cache != nil {
		data, err := json.Marshal(occs)
		if err != nil {
			p.logger.Debug("cache: skipping page", zap.Int("page", page.Index), zap.Error(err))
			return occs
		}
		if err := p.cache.Set(key, data, 0); err != nil {
			p.logger.Warn("cache: write failed", zap.Int("page", page.Index), zap.Error(err))
		}
	}

	return occs
}

// buildReport assembles the report from an aggregator
func (p *Pipeline) buildReport(source string, pages []model.Page, hints []*scale.Hint, agg *aggregate.Aggregator) *model.Report {
	settings := p.config.Settings()
	settings.ContextScope = string(p.scope)

	report := &model.Report{
		RunID:       uuid.NewString(),
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		PageCount:   len(pages),
		NoData:      len(pages) == 0,
		Settings:    settings,
		TopUnscaled: agg.TopN(model.SetUnscaled, settings.TopN),
		TopScaled:   agg.TopN(model.SetScaled, settings.TopN),
		Summary:     agg.CountSummary(),
		Hints:       scale.Describe(pages, hints),
	}

	if occ, ok := agg.LargestUnscaled(); ok {
		report.LargestUnscaled = &occ
	}
	if occ, ok := agg.LargestScaled(); ok {
		report.LargestScaled = &occ
	}

	return report
}

// CheckTargets looks up each expected figure and records the outcome on the report
func (r *ScanResult) CheckTargets(targets []float64, tolerance float64) []model.TargetCheck {
	checks := make([]model.TargetCheck, 0, len(targets))
	for _, target := range targets {
		matches := r.Aggregator.FindValue(target, tolerance)
		if matches == nil {
			matches = []model.ValueMatch{}
		}
		checks = append(checks, model.TargetCheck{
			Target:    target,
			Tolerance: max(tolerance, 0),
			Matches:   matches,
		})
	}

	r.Report.Checks = append(r.Report.Checks, checks...)
	return checks
}

// hintKey identifies the classification input a hint contributes
func hintKey(hint *scale.Hint) string {
	if hint == nil {
		return ""
	}
	return hint.Factor.String() + "|" + hint.Phrase
}

// IsRemote reports whether ref should be downloaded rather than read from disk
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
