package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"networth-analyzer/models"
	"networth-analyzer/storage"
	"networth-analyzer/utils"
)

// SourceOpener opens an input source for reading.
type SourceOpener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to SourceOpener.
type OpenerFunc func(ctx context.Context, source string) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	return f(ctx, source)
}

// LocalOpener opens sources from the local filesystem.
var LocalOpener = OpenerFunc(func(_ context.Context, source string) (io.ReadCloser, error) {
	return storage.OpenFile(source)
})

// Result is the outcome of analyzing one source. Exactly one of Summary and
// Err is set.
type Result struct {
	Source  string
	Summary *models.Summary
	Err     error
}

// Analyzer runs the read, clean and aggregate pass over tabular sources.
type Analyzer struct {
	opener  SourceOpener
	cleaner *Cleaner
	logger  *utils.Logger

	maxConcurrency int
	rateLimitMs    int
}

// NewAnalyzer creates an Analyzer. maxConcurrency bounds how many sources
// AnalyzeAll processes at once; rateLimitMs spaces their start times.
func NewAnalyzer(opener SourceOpener, logger *utils.Logger, maxConcurrency, rateLimitMs int) *Analyzer {
	return &Analyzer{
		opener:         opener,
		cleaner:        NewCleaner(logger),
		logger:         logger,
		maxConcurrency: maxConcurrency,
		rateLimitMs:    rateLimitMs,
	}
}

// Analyze makes a single pass over source. Structural failures (source not
// found, schema mismatch, unreadable data) abort the pass and no summary is
// returned. The source is closed on every path.
func (a *Analyzer) Analyze(ctx context.Context, source string) (summary *models.Summary, err error) {
	rc, err := a.opener.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			a.logger.Warn("[analyzer] Closing %s: %v", source, cerr)
		}
	}()

	reader, err := storage.NewPersonReader(rc, a.logger)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(source)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		agg.Add(a.cleaner.Clean(*raw))
	}
	agg.SetSkipped(reader.Skipped())

	summary = agg.Summary()
	a.logger.Debug("[analyzer] %s: %d rows read, %d skipped, %d unparseable",
		source, summary.RowsRead, summary.RowsSkipped, summary.Unparseable)
	return summary, nil
}

// AnalyzeAll analyzes each distinct source independently and returns one
// Result per distinct source, in input order. Repeated sources are analyzed
// once.
func (a *Analyzer) AnalyzeAll(ctx context.Context, sources []string) []Result {
	seen := utils.NewSourceSet()
	var unique []string
	for _, s := range sources {
		if seen.Add(s) {
			unique = append(unique, s)
		} else {
			a.logger.Warn("[analyzer] Duplicate source skipped: %s", s)
		}
	}

	results := make([]Result, len(unique))
	pool := utils.NewWorkerPool(a.maxConcurrency, a.rateLimitMs)
	for i, source := range unique {
		i, source := i, source
		pool.Submit(func() {
			results[i] = a.analyzeSafely(ctx, source)
		})
	}
	pool.Wait()

	return results
}

func (a *Analyzer) analyzeSafely(ctx context.Context, source string) (res Result) {
	res.Source = source
	defer func() {
		if r := recover(); r != nil {
			res.Summary = nil
			res.Err = fmt.Errorf("analyzer: %s: panic: %v", source, r)
		}
	}()

	res.Summary, res.Err = a.Analyze(ctx, source)
	return res
}
