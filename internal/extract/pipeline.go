package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wision-lab/datasets/internal/logging"
	"github.com/wision-lab/datasets/internal/metrics"
)

// State tracks an archive through extraction.
type State uint8

const (
	StateDownloaded State = iota
	StateExtracting
	StateExtracted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDownloaded:
		return "downloaded"
	case StateExtracting:
		return "extracting"
	case StateExtracted:
		return "extracted"
	case StateFailed:
		return "extraction_failed"
	}
	return "unknown"
}

// Result is the outcome for one archive.
type Result struct {
	Archive string
	State   State
	Err     error
}

// Pipeline drives a downloaded archive to extracted. Contents are
// unpacked next to the archive; the archive itself is removed only
// after every entry landed, and is left untouched when extraction
// fails so the failure can be inspected and retried.
type Pipeline struct {
	registry *Registry
	keep     bool
}

// NewPipeline builds a pipeline over the given registry. With keep set
// the source archives survive successful extraction.
func NewPipeline(registry *Registry, keep bool) *Pipeline {
	if registry == nil {
		registry = Default()
	}
	return &Pipeline{registry: registry, keep: keep}
}

// Supports reports whether the pipeline can unpack path.
func (p *Pipeline) Supports(path string) bool {
	return p.registry.Supports(path)
}

// Process runs the state machine for one downloaded archive.
func (p *Pipeline) Process(ctx context.Context, archivePath string) Result {
	res := Result{Archive: archivePath, State: StateDownloaded}

	ext, ok := p.registry.ForPath(archivePath)
	if !ok {
		res.State = StateFailed
		res.Err = fmt.Errorf("no extractor registered for %s", filepath.Base(archivePath))
		return res
	}

	res.State = StateExtracting
	start := time.Now()
	if err := ext.Extract(ctx, archivePath, filepath.Dir(archivePath)); err != nil {
		metrics.RecordExtraction(time.Since(start), false)
		res.State = StateFailed
		res.Err = err
		return res
	}
	metrics.RecordExtraction(time.Since(start), true)

	if !p.keep {
		if err := os.Remove(archivePath); err != nil {
			logging.Warn("could not remove extracted archive",
				logging.String("archive", archivePath),
				logging.Err(err),
			)
		}
	}
	res.State = StateExtracted
	return res
}
