// Package catalog implements a bounded streaming pipeline for scanning
// instance sources.
//
// The scanner coordinates four stages:
//   - Lister: Fetches key listings from the source (parallelized by prefix)
//   - Matcher: Filters keys by glob patterns
//   - Peeker: Reads instance headers for dimension filters and enrichment
//   - Writer: Emits matched instances as JSONL records
//
// Bounded channels between stages provide backpressure to prevent memory
// exhaustion on large collections.
package catalog

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Rastion/openshop-problem/pkg/match"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/source"
	"github.com/Rastion/openshop-problem/pkg/taillard"
)

// Config configures scanner behavior.
type Config struct {
	// Concurrency is the number of parallel list operations.
	// Each prefix from Matcher.Prefixes() can be listed concurrently.
	// Default: 4
	Concurrency int

	// ChannelBuffer is the size of bounded channels between pipeline stages.
	// Larger buffers reduce blocking but increase memory usage.
	// Default: 1000
	ChannelBuffer int

	// RateLimit is the maximum requests per second to the source.
	// Zero means unlimited (source handles its own throttling).
	// Default: 0
	RateLimit float64

	// ProgressEvery controls how often progress records are emitted.
	// A progress record is written every N matched instances.
	// Default: 1000
	ProgressEvery int

	// PeekHeaders forces header peeking even when no dimension filter
	// requires it, enriching instance records with jobs/machines counts.
	PeekHeaders bool

	// PeekLimitBytes caps how much of each file is read when peeking.
	// Default: 4096
	PeekLimitBytes int64
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		ChannelBuffer:  1000,
		RateLimit:      0,
		ProgressEvery:  1000,
		PeekLimitBytes: 4096,
	}
}

// Summary contains aggregate statistics from a completed scan.
type Summary struct {
	// KeysListed is the total number of keys seen from the source.
	KeysListed int64

	// KeysMatched is the number of keys that matched the patterns.
	KeysMatched int64

	// BytesTotal is the cumulative size of matched instances in bytes.
	BytesTotal int64

	// Duration is the total time spent scanning.
	Duration time.Duration

	// Errors is the count of non-fatal errors encountered.
	Errors int64

	// Prefixes lists the prefixes that were scanned.
	Prefixes []string
}

// Scanner executes a scan against an instance source.
//
// Scanner is safe for single use only. Create a new Scanner for each run.
type Scanner struct {
	source  source.Source
	matcher *match.Matcher
	filter  *match.CompositeFilter // Optional dimension/regex filter
	writer  output.Writer
	config  Config
	runID   string

	prefixes []string

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter

	// Atomic counters for stats
	keysListed   atomic.Int64
	keysMatched  atomic.Int64
	keysFiltered atomic.Int64 // Keys that passed glob but failed filter
	bytesTotal   atomic.Int64
	errorCount   atomic.Int64
}

// New creates a new scanner.
//
// Parameters:
//   - src: Source for listing instances
//   - m: Matcher for filtering keys by pattern
//   - w: Writer for JSONL output
//   - runID: Correlation ID for this run
//   - cfg: Scanner configuration (use DefaultConfig() as base)
//
// Use WithFilter() to add dimension filters after creation.
func New(src source.Source, m *match.Matcher, w output.Writer, runID string, cfg Config) *Scanner {
	// Apply defaults for zero values
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = DefaultConfig().ChannelBuffer
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultConfig().ProgressEvery
	}
	if cfg.PeekLimitBytes <= 0 {
		cfg.PeekLimitBytes = DefaultConfig().PeekLimitBytes
	}

	s := &Scanner{
		source:  src,
		matcher: m,
		writer:  w,
		config:  cfg,
		runID:   runID,
	}

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return s
}

// WithFilter sets an optional dimension filter for the scanner.
// Filters are applied after glob pattern matching with AND semantics.
// Returns the scanner for method chaining.
func (s *Scanner) WithFilter(f *match.CompositeFilter) *Scanner {
	s.filter = f
	return s
}

// WithPrefixes overrides the prefixes to scan.
//
// When set, the scanner uses these prefixes instead of matcher-derived prefixes.
func (s *Scanner) WithPrefixes(prefixes []string) *Scanner {
	s.prefixes = prefixes
	return s
}

// needsPeek reports whether the pipeline must read instance headers.
func (s *Scanner) needsPeek() bool {
	if s.config.PeekHeaders {
		return true
	}
	return s.filter != nil && s.filter.RequiresPeek()
}

// Run executes the scan and returns summary statistics.
//
// Run blocks until the scan completes, is cancelled via context, or
// encounters a fatal error. Non-fatal errors (e.g., permission denied
// on a single instance) are written as error records and counted in
// the summary.
//
// The scan can be cancelled by cancelling the context. Cancellation
// is graceful: in-flight operations complete, channels are drained,
// and a partial summary is returned.
func (s *Scanner) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()

	prefixes := s.prefixes
	if prefixes == nil {
		prefixes = s.matcher.Prefixes()
	}
	if len(prefixes) == 0 {
		// No prefixes means match everything - use empty prefix
		prefixes = []string{""}
	}

	if err := s.writeProgress(ctx, output.PhaseStarting, ""); err != nil {
		return nil, err
	}

	if err := s.runPipeline(ctx, prefixes); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Return partial summary on cancellation
			return s.buildSummary(prefixes, time.Since(startTime)), err
		}
		return nil, err
	}

	summary := s.buildSummary(prefixes, time.Since(startTime))

	if err := s.writeSummary(ctx, summary); err != nil {
		return summary, err
	}

	return summary, nil
}

// buildSummary creates a Summary from the atomic counters.
func (s *Scanner) buildSummary(prefixes []string, duration time.Duration) *Summary {
	return &Summary{
		KeysListed:  s.keysListed.Load(),
		KeysMatched: s.keysMatched.Load(),
		BytesTotal:  s.bytesTotal.Load(),
		Duration:    duration,
		Errors:      s.errorCount.Load(),
		Prefixes:    prefixes,
	}
}

// writeProgress emits a progress record.
func (s *Scanner) writeProgress(ctx context.Context, phase, prefix string) error {
	prog := &output.ProgressRecord{
		Phase:       phase,
		KeysSeen:    s.keysListed.Load(),
		KeysMatched: s.keysMatched.Load(),
		BytesTotal:  s.bytesTotal.Load(),
		Prefix:      prefix,
	}
	return s.writer.WriteProgress(ctx, prog)
}

// writeSummary emits a summary record.
func (s *Scanner) writeSummary(ctx context.Context, summary *Summary) error {
	sum := &output.SummaryRecord{
		KeysSeen:      summary.KeysListed,
		KeysMatched:   summary.KeysMatched,
		BytesTotal:    summary.BytesTotal,
		Duration:      summary.Duration,
		DurationHuman: summary.Duration.Round(time.Millisecond).String(),
		Errors:        summary.Errors,
		Prefixes:      summary.Prefixes,
	}
	return s.writer.WriteSummary(ctx, sum)
}

// writeError emits an error record and increments the error counter.
func (s *Scanner) writeError(ctx context.Context, code, message, key, prefix string) {
	s.errorCount.Add(1)

	errRec := &output.ErrorRecord{
		Code:    code,
		Message: message,
		Key:     key,
		Prefix:  prefix,
	}

	// Best effort - don't fail the scan if we can't write the error
	_ = s.writer.WriteError(ctx, errRec)
}

// waitForRateLimit blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (s *Scanner) waitForRateLimit(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// keyItem represents an instance flowing through the pipeline.
type keyItem struct {
	summary source.ObjectSummary
	prefix  string // The prefix this key was listed under

	// Dimensions from the peeked header, zero when not peeked.
	jobs     int
	machines int
}

// runPipeline orchestrates the lister → matcher → peeker → writer pipeline.
func (s *Scanner) runPipeline(ctx context.Context, prefixes []string) error {
	pipeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	listCh := make(chan keyItem, s.config.ChannelBuffer)
	peekCh := make(chan keyItem, s.config.ChannelBuffer)
	matchCh := make(chan keyItem, s.config.ChannelBuffer)

	// Error channel for fatal errors from any stage
	errCh := make(chan error, 1)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(listCh)
		if err := s.runListers(pipeCtx, prefixes, listCh); err != nil {
			select {
			case errCh <- err:
			default:
			}
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(peekCh)
		s.runMatcher(pipeCtx, listCh, peekCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(matchCh)
		s.runPeeker(pipeCtx, peekCh, matchCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.runWriter(pipeCtx, matchCh); err != nil {
			select {
			case errCh <- err:
			default:
			}
			cancel()
		}
	}()

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

// runListers runs listing operations for all prefixes with bounded concurrency.
func (s *Scanner) runListers(ctx context.Context, prefixes []string, out chan<- keyItem) error {
	sem := make(chan struct{}, s.config.Concurrency)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for _, prefix := range prefixes {
		// Acquire semaphore or bail on cancellation. Only release the
		// semaphore when it was actually acquired.
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}

		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.listPrefix(ctx, p, out); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
			}
		}(prefix)
	}

	wg.Wait()
	return firstErr
}

// listPrefix lists all keys with the given prefix and sends them to the channel.
func (s *Scanner) listPrefix(ctx context.Context, prefix string, out chan<- keyItem) error {
	var continuationToken string

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.waitForRateLimit(ctx); err != nil {
			return err
		}

		result, err := s.source.List(ctx, source.ListOptions{
			Prefix:            prefix,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			// Classify the error
			if source.IsAccessDenied(err) {
				s.writeError(ctx, output.ErrCodeAccessDenied, err.Error(), "", prefix)
				return nil // Non-fatal: skip this prefix
			}
			if source.IsNotFound(err) {
				s.writeError(ctx, output.ErrCodeNotFound, err.Error(), "", prefix)
				return nil // Non-fatal: skip this prefix
			}
			if source.IsThrottled(err) {
				s.writeError(ctx, output.ErrCodeThrottled, err.Error(), "", prefix)
				return nil
			}
			// Fatal error
			return err
		}

		for _, obj := range result.Objects {
			s.keysListed.Add(1)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- keyItem{summary: obj, prefix: prefix}:
			}
		}

		if !result.IsTruncated || result.ContinuationToken == "" {
			break
		}
		continuationToken = result.ContinuationToken
	}

	return nil
}

// runMatcher filters keys by glob patterns and forwards matches.
func (s *Scanner) runMatcher(ctx context.Context, in <-chan keyItem, out chan<- keyItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}

			if !s.matcher.Match(item.summary.Key) {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- item:
			}
		}
	}
}

// runPeeker reads instance headers when needed and applies the filter.
//
// When no header is needed (no dimension filter, peeking disabled), items
// pass through with only the key-based filter applied.
func (s *Scanner) runPeeker(ctx context.Context, in <-chan keyItem, out chan<- keyItem) {
	peek := s.needsPeek()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}

			if peek {
				dims, err := s.peekDims(ctx, item.summary.Key)
				if err != nil {
					s.writeError(ctx, output.ErrCodeParse, err.Error(), item.summary.Key, item.prefix)
					continue
				}
				item.jobs = dims.Jobs
				item.machines = dims.Machines
			}

			if s.filter != nil && !s.filter.Match(item.summary.Key, item.jobs, item.machines) {
				s.keysFiltered.Add(1)
				continue
			}

			s.keysMatched.Add(1)
			s.bytesTotal.Add(item.summary.Size)

			select {
			case <-ctx.Done():
				return
			case out <- item:
			}
		}
	}
}

// peekDims reads the leading bytes of an instance and parses its dimensions.
func (s *Scanner) peekDims(ctx context.Context, key string) (taillard.Dims, error) {
	if err := s.waitForRateLimit(ctx); err != nil {
		return taillard.Dims{}, err
	}

	body, _, err := s.source.Get(ctx, key)
	if err != nil {
		return taillard.Dims{}, err
	}
	defer func() { _ = body.Close() }()

	return taillard.PeekDims(io.LimitReader(body, s.config.PeekLimitBytes))
}

// runWriter writes matched instances as JSONL records.
func (s *Scanner) runWriter(ctx context.Context, in <-chan keyItem) error {
	var matchCount int64
	var lastProgressPrefix string

	for {
		select {
		case <-ctx.Done():
			// Write final progress before exiting
			_ = s.writeProgress(ctx, output.PhaseComplete, lastProgressPrefix)
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				// Input channel closed - write final progress
				return s.writeProgress(ctx, output.PhaseComplete, lastProgressPrefix)
			}

			inst := &output.InstanceRecord{
				Key:          item.summary.Key,
				Size:         item.summary.Size,
				ETag:         item.summary.ETag,
				LastModified: item.summary.LastModified,
				Jobs:         item.jobs,
				Machines:     item.machines,
			}
			if err := s.writer.WriteInstance(ctx, inst); err != nil {
				return err
			}

			matchCount++
			lastProgressPrefix = item.prefix

			// Emit progress periodically
			if s.config.ProgressEvery > 0 && matchCount%int64(s.config.ProgressEvery) == 0 {
				if err := s.writeProgress(ctx, output.PhaseListing, item.prefix); err != nil {
					return err
				}
			}
		}
	}
}
