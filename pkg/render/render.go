// Package render produces the textual views of a dataset manifest: a
// full listing of every node, or a summarized view that batches leaf
// entries into logical shards and collapses deep directories.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/wision-lab/datasets/pkg/bytesize"
	"github.com/wision-lab/datasets/pkg/manifest"
)

// InvalidDepthError reports a negative collapse depth.
type InvalidDepthError struct {
	Depth int
}

func (e *InvalidDepthError) Error() string {
	return fmt.Sprintf("render: invalid depth %d", e.Depth)
}

// Options control the rendered view.
type Options struct {
	// Full lists every node, one line per node. When false the
	// summarized view is rendered instead.
	Full bool

	// Depth collapses directories this many levels below the root in
	// the summarized view. Zero disables collapsing. Negative values
	// fail with InvalidDepthError.
	Depth int

	// Batcher groups the leaf children of each directory into shards
	// in the summarized view. Nil renders each leaf on its own line.
	Batcher Batcher
}

// Tree writes the manifest to w. Output is deterministic: children
// appear in stored order, sizes in compact 1024-based form.
func Tree(w io.Writer, m *manifest.Manifest, opts Options) error {
	if opts.Depth < 0 {
		return &InvalidDepthError{Depth: opts.Depth}
	}
	r := &renderer{w: w, opts: opts}
	label := m.Label
	if label == "" {
		label = "/"
	}
	r.printf("%s (%s)\n", label, bytesize.Format(m.TotalSize()))
	if opts.Full {
		r.full(m.Root, 1)
	} else {
		r.summarized(m.Root, 1)
	}
	return r.err
}

type renderer struct {
	w    io.Writer
	opts Options
	err  error
}

func (r *renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) full(n *manifest.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range n.Children {
		if c.IsLeaf() {
			r.printf("%s%s (%s)\n", indent, c.Name, bytesize.Format(c.Size))
			continue
		}
		r.printf("%s%s/ (%s)\n", indent, c.Name, bytesize.Format(c.Size))
		r.full(c, depth+1)
	}
}

// summarized renders subdirectories first, then the directory's own
// leaves grouped into shards.
func (r *renderer) summarized(n *manifest.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	var leaves []*manifest.Node
	for _, c := range n.Children {
		if c.IsLeaf() {
			leaves = append(leaves, c)
			continue
		}
		r.printf("%s%s/ (%s)\n", indent, c.Name, bytesize.Format(c.Size))
		if r.opts.Depth > 0 && depth >= r.opts.Depth {
			continue
		}
		r.summarized(c, depth+1)
	}

	if r.opts.Batcher == nil {
		for _, leaf := range leaves {
			r.printf("%s%s (%s)\n", indent, leaf.Name, bytesize.Format(leaf.Size))
		}
		return
	}
	shards := r.opts.Batcher.Batch(leaves)
	for i, shard := range shards {
		var total int64
		names := make([]string, len(shard))
		for j, leaf := range shard {
			total += leaf.Size
			names[j] = leaf.Name
		}
		joined := strings.Join(names, ", ")
		if len(shards) == 1 {
			r.printf("%s(ZIP %s) %s\n", indent, bytesize.Format(total), joined)
		} else {
			r.printf("%s(ZIP #%d/%d %s) %s\n", indent, i+1, len(shards), bytesize.Format(total), joined)
		}
	}
}
