// Package syncer mirrors selected manifest entries from a remote
// object store into a local directory tree. Objects land under their
// manifest paths, already-present files of the right size are skipped,
// and fetched archives are handed to the extraction pipeline.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wision-lab/datasets/internal/extract"
	"github.com/wision-lab/datasets/internal/logging"
	"github.com/wision-lab/datasets/internal/metrics"
	"github.com/wision-lab/datasets/internal/store"
	"github.com/wision-lab/datasets/pkg/bytesize"
	"github.com/wision-lab/datasets/pkg/manifest"
	"github.com/wision-lab/datasets/pkg/retry"
)

const partialSuffix = ".partial"

// Options configure a sync run.
type Options struct {
	// DestRoot is the local directory the tree is mirrored into.
	DestRoot string

	// KeyPrefix is prepended to manifest paths to form store keys,
	// usually the dataset's prefix inside the bucket.
	KeyPrefix string

	// Workers bounds concurrent fetches.
	Workers int

	// Retry bounds per-object fetch attempts. The zero value selects
	// retry.DefaultConfig.
	Retry retry.Config

	// FetchTimeout limits a single fetch attempt. Zero means no limit.
	FetchTimeout time.Duration

	// DryRun reports what would be fetched without touching the store
	// or the filesystem.
	DryRun bool

	// NoExtract leaves fetched archives as they are.
	NoExtract bool

	// KeepArchives extracts but does not delete the archive files.
	KeepArchives bool

	// ProgressWriter receives an in-place status line while the run is
	// going, meant for interactive terminals. Nil disables it.
	ProgressWriter io.Writer
}

// Engine runs sync operations against one store.
type Engine struct {
	store    store.Store
	pipeline *extract.Pipeline
	opts     Options

	// logObject logs per-object progress. With the inline status line
	// active these drop to debug so the line stays readable.
	logObject func(msg string, fields ...zap.Field)
}

// New builds an engine. Unset options get working defaults.
func New(st store.Store, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retry == (retry.Config{}) {
		opts.Retry = retry.DefaultConfig()
	}
	e := &Engine{
		store:    st,
		pipeline: extract.NewPipeline(extract.Default(), opts.KeepArchives),
		opts:     opts,
	}
	e.logObject = logging.Info
	if opts.ProgressWriter != nil {
		e.logObject = logging.Debug
	}
	return e
}

type status uint8

const (
	statusFetched status = iota
	statusSkipped
	statusFailed
	statusAborted
)

type outcome struct {
	leaf       *manifest.Node
	status     status
	err        error
	bytes      int64
	extracted  bool
	extractErr error
}

// Run mirrors the selected leaves. Failures are isolated per object;
// the run keeps going and the report accounts for every selected
// leaf. Cancelling ctx stops scheduling new objects, and Run returns
// the context error alongside the partial report.
func (e *Engine) Run(ctx context.Context, m *manifest.Manifest, sel Selection) (*Report, error) {
	if err := sel.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection pattern %q: %w", sel.Pattern, err)
	}
	leaves := Select(m, sel)
	metrics.SetManifestNodes(m.Count())

	report := &Report{Selected: len(leaves)}
	if len(leaves) == 0 {
		logging.Warn("selection matched no objects",
			zap.String("prefix", sel.Prefix),
			zap.String("pattern", sel.Pattern),
		)
		return report, nil
	}

	logging.Info("sync starting",
		zap.String("dataset", m.Label),
		zap.Int("objects", len(leaves)),
		zap.String("total", bytesize.Format(totalSize(leaves))),
		zap.Int("workers", e.opts.Workers),
		zap.Bool("dry_run", e.opts.DryRun),
	)

	start := time.Now()
	prog := newProgressLine(e.opts.ProgressWriter, len(leaves))
	jobs := make(chan *manifest.Node)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for leaf := range jobs {
				out := e.processLeaf(ctx, leaf)
				mu.Lock()
				report.add(out)
				mu.Unlock()
				prog.step(out)
			}
		}()
	}

feed:
	for _, leaf := range leaves {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- leaf:
		}
	}
	close(jobs)
	wg.Wait()
	prog.finish()
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		logging.Warn("sync interrupted", zap.Error(err))
		return report, err
	}
	return report, nil
}

func totalSize(leaves []*manifest.Node) int64 {
	var total int64
	for _, leaf := range leaves {
		total += leaf.Size
	}
	return total
}

func (e *Engine) processLeaf(ctx context.Context, leaf *manifest.Node) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{leaf: leaf, status: statusAborted, err: err}
	}
	target := filepath.Join(e.opts.DestRoot, filepath.FromSlash(leaf.RemotePath))

	if fi, err := os.Stat(target); err == nil && fi.Size() == leaf.Size {
		logging.Debug("already present", zap.String("path", leaf.RemotePath))
		metrics.RecordSkip()
		return outcome{leaf: leaf, status: statusSkipped}
	}

	if e.opts.DryRun {
		logging.Info("would fetch",
			zap.String("path", leaf.RemotePath),
			zap.String("size", bytesize.Format(leaf.Size)),
		)
		return outcome{leaf: leaf, status: statusFetched}
	}

	key := leaf.RemotePath
	if e.opts.KeyPrefix != "" {
		key = path.Join(e.opts.KeyPrefix, leaf.RemotePath)
	}

	start := time.Now()
	err := retry.Do(ctx, e.opts.Retry, func() error {
		return e.fetchOnce(ctx, key, leaf, target)
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcome{leaf: leaf, status: statusAborted, err: err}
		}
		metrics.RecordFailure()
		logging.Error("fetch failed",
			zap.String("path", leaf.RemotePath),
			zap.Error(err),
		)
		return outcome{leaf: leaf, status: statusFailed, err: err}
	}
	metrics.RecordFetch(leaf.Size, time.Since(start))
	e.logObject("fetched",
		zap.String("path", leaf.RemotePath),
		zap.String("size", bytesize.Format(leaf.Size)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)

	out := outcome{leaf: leaf, status: statusFetched, bytes: leaf.Size}
	if leaf.Kind == manifest.KindArchive && !e.opts.NoExtract {
		res := e.pipeline.Process(ctx, target)
		switch res.State {
		case extract.StateExtracted:
			out.extracted = true
			e.logObject("extracted", zap.String("archive", leaf.RemotePath))
		case extract.StateFailed:
			out.extractErr = res.Err
			logging.Error("extraction failed",
				zap.String("archive", leaf.RemotePath),
				zap.Error(res.Err),
			)
		}
	}
	return out
}

// fetchOnce downloads a single object into place. The object is
// staged under a partial name and renamed only after the full
// manifest-declared size arrived, so a crash or retry never leaves a
// truncated file under the final name.
func (e *Engine) fetchOnce(ctx context.Context, key string, leaf *manifest.Node, target string) error {
	if e.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()
	}

	body, size, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return retry.Retryable(err)
	}
	defer body.Close()

	if size > 0 && size != leaf.Size {
		return fmt.Errorf("remote size %d does not match manifest size %d for %s", size, leaf.Size, key)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	tmp := target + partialSuffix
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	written, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return retry.Retryable(fmt.Errorf("read %s: %w", key, err))
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if written != leaf.Size {
		os.Remove(tmp)
		return retry.Retryable(fmt.Errorf("short object %s: got %d bytes, want %d", key, written, leaf.Size))
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
