package render

import "github.com/wision-lab/datasets/pkg/manifest"

// Batcher groups an ordered run of leaf nodes into shards. Input order
// is preserved within and across shards.
type Batcher interface {
	Batch(leaves []*manifest.Node) [][]*manifest.Node
}

// SizeBatcher starts a new shard each time the running cumulative size
// crosses into the next Threshold-sized bucket. A single leaf larger
// than the threshold still forms one shard.
type SizeBatcher struct {
	Threshold int64
}

func (b SizeBatcher) Batch(leaves []*manifest.Node) [][]*manifest.Node {
	if len(leaves) == 0 {
		return nil
	}
	if b.Threshold <= 0 {
		return [][]*manifest.Node{leaves}
	}
	var out [][]*manifest.Node
	cur := []*manifest.Node{leaves[0]}
	cum := leaves[0].Size
	for _, leaf := range leaves[1:] {
		next := cum + leaf.Size
		if next/b.Threshold != cum/b.Threshold {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, leaf)
		cum = next
	}
	return append(out, cur)
}

// CountBatcher puts a fixed number of leaves in each shard.
type CountBatcher struct {
	N int
}

func (b CountBatcher) Batch(leaves []*manifest.Node) [][]*manifest.Node {
	if len(leaves) == 0 {
		return nil
	}
	if b.N <= 0 {
		return [][]*manifest.Node{leaves}
	}
	var out [][]*manifest.Node
	for len(leaves) > b.N {
		out = append(out, leaves[:b.N])
		leaves = leaves[b.N:]
	}
	return append(out, leaves)
}
