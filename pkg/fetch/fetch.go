// Package fetch downloads benchmark instances from a source into a local
// directory, for offline evaluation against a file-backed instance store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Rastion/openshop-problem/pkg/match"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/source"
	"github.com/Rastion/openshop-problem/pkg/taillard"
)

// OnExists policies for existing destination files.
const (
	OnExistsSkip      = "skip"
	OnExistsOverwrite = "overwrite"
	OnExistsFail      = "fail"
)

type Config struct {
	// DestDir is the local directory fetched instances are written to.
	DestDir string

	// Concurrency is the number of parallel downloads. Default: 8.
	Concurrency int

	// OnExists controls behavior for existing files: skip | overwrite | fail.
	// Default: skip.
	OnExists string

	// Verify parses each fetched file as a Taillard instance and fails
	// the key (not the run) on malformed content.
	Verify bool
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		OnExists:    OnExistsSkip,
	}
}

// Summary reports fetch totals.
type Summary struct {
	KeysListed   int64
	KeysMatched  int64
	Fetched      int64
	Skipped      int64
	BytesFetched int64
	Errors       int64
	Duration     time.Duration
}

// Fetcher downloads matched instances from a source.
type Fetcher struct {
	src     source.Source
	matcher *match.Matcher
	writer  output.Writer
	cfg     Config

	listed  atomic.Int64
	matched atomic.Int64
	fetched atomic.Int64
	skipped atomic.Int64
	bytes   atomic.Int64
	errs    atomic.Int64
}

func New(src source.Source, m *match.Matcher, w output.Writer, cfg Config) (*Fetcher, error) {
	if strings.TrimSpace(cfg.DestDir) == "" {
		return nil, errors.New("destination directory is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	switch cfg.OnExists {
	case "":
		cfg.OnExists = DefaultConfig().OnExists
	case OnExistsSkip, OnExistsOverwrite, OnExistsFail:
	default:
		return nil, fmt.Errorf("invalid on_exists policy: %q", cfg.OnExists)
	}

	return &Fetcher{src: src, matcher: m, writer: w, cfg: cfg}, nil
}

// Run lists, matches, and downloads instances.
//
// A preflight list probe runs first so permission problems fail fast
// instead of surfacing as per-key errors. Individual key failures are
// written as error records and counted; they do not abort the run.
func (f *Fetcher) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if err := Preflight(ctx, f.src, f.matcher.Prefixes()); err != nil {
		return f.summary(time.Since(start)), err
	}

	if err := os.MkdirAll(f.cfg.DestDir, 0755); err != nil {
		return f.summary(time.Since(start)), fmt.Errorf("create destination dir: %w", err)
	}

	workCh := make(chan source.ObjectSummary, 1000)
	errCh := make(chan error, 1)

	go func() {
		defer close(workCh)
		prefixes := f.matcher.Prefixes()
		if len(prefixes) == 0 {
			prefixes = []string{""}
		}
		for _, prefix := range prefixes {
			if err := f.listPrefix(ctx, prefix, workCh); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < f.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range workCh {
				if err := f.fetchOne(ctx, obj); err != nil {
					f.errs.Add(1)
					_ = f.writer.WriteError(ctx, &output.ErrorRecord{
						Code:    classifyError(err),
						Message: err.Error(),
						Key:     obj.Key,
					})
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		// Drain workers before returning so counters are final.
		<-done
		return f.summary(time.Since(start)), err
	case <-done:
		select {
		case err := <-errCh:
			return f.summary(time.Since(start)), err
		default:
		}
		return f.summary(time.Since(start)), ctx.Err()
	case <-ctx.Done():
		<-done
		return f.summary(time.Since(start)), ctx.Err()
	}
}

func (f *Fetcher) listPrefix(ctx context.Context, prefix string, out chan<- source.ObjectSummary) error {
	var token string
	for {
		res, err := f.src.List(ctx, source.ListOptions{Prefix: prefix, ContinuationToken: token})
		if err != nil {
			return err
		}
		for _, obj := range res.Objects {
			f.listed.Add(1)
			if !f.matcher.Match(obj.Key) {
				continue
			}
			f.matched.Add(1)
			select {
			case out <- obj:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !res.IsTruncated || res.ContinuationToken == "" {
			return nil
		}
		token = res.ContinuationToken
	}
}

func (f *Fetcher) fetchOne(ctx context.Context, obj source.ObjectSummary) error {
	destPath, err := f.destPath(obj.Key)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(destPath); statErr == nil {
		switch f.cfg.OnExists {
		case OnExistsFail:
			return fmt.Errorf("destination exists: %s", destPath)
		case OnExistsSkip:
			f.skipped.Add(1)
			return nil
		}
	}

	body, _, err := f.src.Get(ctx, obj.Key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create instance dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".fetch.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	written, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("download %s: %w", obj.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	dims, err := f.verify(tmpName)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		return fmt.Errorf("rename instance file: %w", err)
	}

	f.fetched.Add(1)
	f.bytes.Add(written)

	rec := &output.InstanceRecord{
		Key:          obj.Key,
		Size:         written,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
	}
	if dims != nil {
		rec.Jobs = dims.Jobs
		rec.Machines = dims.Machines
	}
	return f.writer.WriteInstance(ctx, rec)
}

// verify parses the downloaded file when Verify is enabled and returns
// its dimensions.
func (f *Fetcher) verify(path string) (*taillard.Dims, error) {
	if !f.cfg.Verify {
		return nil, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fetched file: %w", err)
	}
	data, err := taillard.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("verify instance: %w", err)
	}
	return &taillard.Dims{Jobs: data.Jobs, Machines: data.Machines}, nil
}

// destPath maps a source key to a path under DestDir, rejecting keys
// that would escape it.
func (f *Fetcher) destPath(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	dest := filepath.Join(f.cfg.DestDir, clean)

	base := filepath.Clean(f.cfg.DestDir)
	if dest != base && !strings.HasPrefix(dest, base+string(filepath.Separator)) {
		return "", fmt.Errorf("key escapes destination dir: %s", key)
	}
	return dest, nil
}

func (f *Fetcher) summary(d time.Duration) *Summary {
	return &Summary{
		KeysListed:   f.listed.Load(),
		KeysMatched:  f.matched.Load(),
		Fetched:      f.fetched.Load(),
		Skipped:      f.skipped.Load(),
		BytesFetched: f.bytes.Load(),
		Errors:       f.errs.Load(),
		Duration:     d,
	}
}

func classifyError(err error) string {
	switch {
	case source.IsAccessDenied(err), source.IsInvalidCredentials(err):
		return output.ErrCodeAccessDenied
	case source.IsNotFound(err), source.IsBucketNotFound(err):
		return output.ErrCodeNotFound
	case source.IsThrottled(err):
		return output.ErrCodeThrottled
	case errors.Is(err, taillard.ErrBadDims), errors.Is(err, taillard.ErrBadToken),
		errors.Is(err, taillard.ErrShortInput), errors.Is(err, taillard.ErrShortLine),
		errors.Is(err, taillard.ErrMachineIndex):
		return output.ErrCodeParse
	default:
		return output.ErrCodeInternal
	}
}
