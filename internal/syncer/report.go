package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/wision-lab/datasets/pkg/bytesize"
)

// Stage names the phase an object failed in.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
)

// Failure records one object that could not be fully processed.
type Failure struct {
	Path  string
	Stage Stage
	Err   error
}

// Report partitions a sync run's selection by outcome. A leaf appears
// in exactly one of Fetched, Skipped, Aborted, or the fetch-stage
// Failures; extract-stage failures reference leaves that did fetch.
type Report struct {
	Selected     int
	Fetched      []string
	Skipped      []string
	Aborted      []string
	Failures     []Failure
	Extracted    int
	BytesFetched int64
	Duration     time.Duration
}

// OK reports whether every selected object was fully processed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) add(o outcome) {
	p := o.leaf.RemotePath
	switch o.status {
	case statusFetched:
		r.Fetched = append(r.Fetched, p)
		r.BytesFetched += o.bytes
	case statusSkipped:
		r.Skipped = append(r.Skipped, p)
	case statusAborted:
		r.Aborted = append(r.Aborted, p)
	case statusFailed:
		r.Failures = append(r.Failures, Failure{Path: p, Stage: StageFetch, Err: o.err})
	}
	if o.extracted {
		r.Extracted++
	}
	if o.extractErr != nil {
		r.Failures = append(r.Failures, Failure{Path: p, Stage: StageExtract, Err: o.extractErr})
	}
}

// Summary renders the report for humans.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fetched %d/%d objects (%s) in %s, skipped %d",
		len(r.Fetched), r.Selected, bytesize.Format(r.BytesFetched),
		r.Duration.Round(time.Millisecond), len(r.Skipped))
	if r.Extracted > 0 {
		fmt.Fprintf(&sb, ", extracted %d", r.Extracted)
	}
	if len(r.Aborted) > 0 {
		fmt.Fprintf(&sb, ", aborted %d", len(r.Aborted))
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(&sb, ", failed %d", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "\n  %s %s: %v", f.Stage, f.Path, f.Err)
		}
	}
	return sb.String()
}
