package worker

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/pipeline"
)

// Scanner scans a single document given by path or URL
type Scanner interface {
	ScanDocument(ctx context.Context, ref string) (*pipeline.ScanResult, error)
}

// DocumentJob scans one document
type DocumentJob struct {
	Index   int
	Ref     string
	Scanner Scanner
	Limiter *Limiter // Optional; applied to remote documents only
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil && IsRemote(j.Ref) {
		if err := j.Limiter.Wait(ctx, j.Ref); err != nil {
			return &DocumentResult{Index: j.Index, Ref: j.Ref, Error: eris.Wrap(err, "rate limit")}
		}
	}

	result, err := j.Scanner.ScanDocument(ctx, j.Ref)
	if err != nil {
		return &DocumentResult{Index: j.Index, Ref: j.Ref, Error: err}
	}
	return &DocumentResult{Index: j.Index, Ref: j.Ref, Scan: result}
}

// DocumentResult represents the result of a document job
type DocumentResult struct {
	Index int // Position in the input list
	Ref   string
	Scan  *pipeline.ScanResult
	Error error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple documents concurrently
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A nil limiter disables
// per-host rate limiting.
func NewBatchProcessor(scanner Scanner, concurrency int, limiter *Limiter) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessRefs scans the documents concurrently and returns results in input order
func (b *BatchProcessor) ProcessRefs(ctx context.Context, refs []string) []*DocumentResult {
	if len(refs) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	complete := true
	for i, ref := range refs {
		job := &DocumentJob{
			Index:   i,
			Ref:     ref,
			Scanner: b.scanner,
			Limiter: b.limiter,
		}
		if !pool.Submit(job) {
			complete = false
			break
		}
	}

	var results []Result
	if complete {
		results = pool.Wait()
	} else {
		results = pool.Shutdown()
	}

	docResults := make([]*DocumentResult, 0, len(refs))
	seen := make(map[int]bool, len(results))
	for _, result := range results {
		r := result.(*DocumentResult)
		seen[r.Index] = true
		docResults = append(docResults, r)
	}

	// Jobs dropped by cancellation still get a result
	for i, ref := range refs {
		if !seen[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			docResults = append(docResults, &DocumentResult{Index: i, Ref: ref, Error: eris.Wrap(err, "not processed")})
		}
	}

	sort.Slice(docResults, func(i, j int) bool {
		return docResults[i].Index < docResults[j].Index
	})

	return docResults
}

// ProcessFile reads document references from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	refs, err := ReadRefsFromFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "read document list")
	}

	return b.ProcessRefs(ctx, refs), nil
}

// ReadRefsFromFile reads document paths or URLs from a file (one per line).
// Blank lines and # comments are skipped, duplicates are dropped.
func ReadRefsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var refs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			refs = append(refs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan file")
	}

	return refs, nil
}

// IsRemote reports whether ref is an http(s) URL rather than a local path
func IsRemote(ref string) bool {
	return pipeline.IsRemote(ref)
}
