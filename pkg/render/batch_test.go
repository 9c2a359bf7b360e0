package render

import (
	"testing"

	"github.com/wision-lab/datasets/pkg/manifest"
)

func leaves(sizes ...int64) []*manifest.Node {
	out := make([]*manifest.Node, len(sizes))
	for i, s := range sizes {
		out[i] = &manifest.Node{Kind: manifest.KindArchive, Size: s}
	}
	return out
}

func shardSizes(shards [][]*manifest.Node) []int {
	out := make([]int, len(shards))
	for i, s := range shards {
		out[i] = len(s)
	}
	return out
}

func TestSizeBatcher(t *testing.T) {
	tests := []struct {
		name      string
		threshold int64
		sizes     []int64
		want      []int
	}{
		{"empty", 10, nil, nil},
		{"all in one bucket", 100, []int64{10, 20, 30}, []int{3}},
		{"split on bucket change", 10, []int64{5, 5, 4}, []int{1, 2}},
		{"oversize leaf alone", 10, []int64{25, 6}, []int{1, 1}},
		{"zero threshold keeps all", 0, []int64{1, 2, 3}, []int{3}},
	}
	for _, tt := range tests {
		got := shardSizes(SizeBatcher{Threshold: tt.threshold}.Batch(leaves(tt.sizes...)))
		if len(got) != len(tt.want) {
			t.Errorf("%s: shards = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: shards = %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}

func TestSizeBatcherPreservesOrder(t *testing.T) {
	in := leaves(5, 5, 4, 6)
	shards := SizeBatcher{Threshold: 10}.Batch(in)
	i := 0
	for _, shard := range shards {
		for _, leaf := range shard {
			if leaf != in[i] {
				t.Fatalf("leaf %d out of order", i)
			}
			i++
		}
	}
	if i != len(in) {
		t.Errorf("batched %d leaves, want %d", i, len(in))
	}
}

func TestCountBatcher(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		count int
		want  []int
	}{
		{"empty", 3, 0, nil},
		{"exact multiple", 2, 4, []int{2, 2}},
		{"remainder", 3, 7, []int{3, 3, 1}},
		{"zero keeps all", 0, 3, []int{3}},
	}
	for _, tt := range tests {
		in := leaves(make([]int64, tt.count)...)
		got := shardSizes(CountBatcher{N: tt.n}.Batch(in))
		if len(got) != len(tt.want) {
			t.Errorf("%s: shards = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: shards = %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}
