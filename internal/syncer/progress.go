package syncer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wision-lab/datasets/pkg/bytesize"
)

// progressLine is the single status line shown on interactive runs,
// rewritten in place as objects complete. A nil writer disables it.
type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	done    int
	fetched int64
	skipped int
	failed  int
	width   int
}

func newProgressLine(w io.Writer, total int) *progressLine {
	return &progressLine{w: w, total: total}
}

func (p *progressLine) step(o outcome) {
	if p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	switch o.status {
	case statusFetched:
		p.fetched += o.bytes
	case statusSkipped:
		p.skipped++
	case statusFailed:
		p.failed++
	}

	line := fmt.Sprintf("%d/%d objects  %s fetched", p.done, p.total, bytesize.Format(p.fetched))
	if p.skipped > 0 {
		line += fmt.Sprintf("  %d skipped", p.skipped)
	}
	if p.failed > 0 {
		line += fmt.Sprintf("  %d failed", p.failed)
	}
	p.print(line)
}

// finish clears the line so the report starts at column zero.
func (p *progressLine) finish() {
	if p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print("")
	fmt.Fprint(p.w, "\r")
}

// print rewrites the line, padding over whatever the previous write
// left behind.
func (p *progressLine) print(line string) {
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.width = len(line)
}
