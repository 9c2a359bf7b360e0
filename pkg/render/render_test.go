package render

import (
	"strings"
	"testing"

	"github.com/wision-lab/datasets/pkg/manifest"
)

func build(t *testing.T, records []manifest.Record) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Build("frames", records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func renderToString(t *testing.T, m *manifest.Manifest, opts Options) string {
	t.Helper()
	var sb strings.Builder
	if err := Tree(&sb, m, opts); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	return sb.String()
}

func TestFullView(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "a/x.zip", Size: 100, Kind: manifest.KindArchive},
		{Path: "b.zip", Size: 50, Kind: manifest.KindArchive},
	})
	got := renderToString(t, m, Options{Full: true})
	want := "frames (150.0B)\n" +
		"  a/ (100.0B)\n" +
		"    x.zip (100.0B)\n" +
		"  b.zip (50.0B)\n"
	if got != want {
		t.Errorf("full view:\n%s\nwant:\n%s", got, want)
	}
}

func TestFullViewLeafLineCount(t *testing.T) {
	records := []manifest.Record{
		{Path: "s0/a.zip", Size: 1, Kind: manifest.KindArchive},
		{Path: "s0/b.zip", Size: 2, Kind: manifest.KindArchive},
		{Path: "s1/deep/c.zip", Size: 3, Kind: manifest.KindArchive},
		{Path: "top.txt", Size: 4, Kind: manifest.KindFile},
	}
	m := build(t, records)
	got := renderToString(t, m, Options{Full: true})

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	leafLines := 0
	for _, line := range lines[1:] {
		if !strings.HasSuffix(strings.Fields(line)[0], "/") {
			leafLines++
		}
	}
	if leafLines != len(records) {
		t.Errorf("got %d leaf lines, want %d:\n%s", leafLines, len(records), got)
	}
	// one line per node, plus the root line
	if len(lines) != m.Count() {
		t.Errorf("got %d lines, want %d", len(lines), m.Count())
	}
}

func TestSummarizedWithoutBatcher(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "x.zip", Size: 10, Kind: manifest.KindArchive},
		{Path: "dir/y.zip", Size: 20, Kind: manifest.KindArchive},
	})
	got := renderToString(t, m, Options{})
	// directories first, then leaves
	want := "frames (30.0B)\n" +
		"  dir/ (20.0B)\n" +
		"    y.zip (20.0B)\n" +
		"  x.zip (10.0B)\n"
	if got != want {
		t.Errorf("summarized view:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummarizedShards(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "seq/f0.zip", Size: 5, Kind: manifest.KindArchive},
		{Path: "seq/f1.zip", Size: 5, Kind: manifest.KindArchive},
		{Path: "seq/f2.zip", Size: 4, Kind: manifest.KindArchive},
	})
	got := renderToString(t, m, Options{Batcher: SizeBatcher{Threshold: 10}})
	want := "frames (14.0B)\n" +
		"  seq/ (14.0B)\n" +
		"    (ZIP #1/2 5.0B) f0.zip\n" +
		"    (ZIP #2/2 9.0B) f1.zip, f2.zip\n"
	if got != want {
		t.Errorf("sharded view:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummarizedSingleShard(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "seq/f0.zip", Size: 5, Kind: manifest.KindArchive},
		{Path: "seq/f1.zip", Size: 3, Kind: manifest.KindArchive},
	})
	got := renderToString(t, m, Options{Batcher: SizeBatcher{Threshold: 100}})
	if !strings.Contains(got, "(ZIP 8.0B) f0.zip, f1.zip") {
		t.Errorf("single shard tag missing:\n%s", got)
	}
	if strings.Contains(got, "#1/1") {
		t.Errorf("single shard should not be numbered:\n%s", got)
	}
}

func TestDepthCollapse(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "s0/inner/a.zip", Size: 1, Kind: manifest.KindArchive},
		{Path: "s0/b.zip", Size: 2, Kind: manifest.KindArchive},
	})

	got := renderToString(t, m, Options{Depth: 1})
	want := "frames (3.0B)\n" +
		"  s0/ (3.0B)\n"
	if got != want {
		t.Errorf("depth 1:\n%s\nwant:\n%s", got, want)
	}

	got = renderToString(t, m, Options{Depth: 2})
	if !strings.Contains(got, "inner/") || strings.Contains(got, "a.zip") {
		t.Errorf("depth 2 should show inner/ but not its leaves:\n%s", got)
	}
	if !strings.Contains(got, "b.zip") {
		t.Errorf("depth 2 should keep s0's own leaves:\n%s", got)
	}
}

func TestInvalidDepth(t *testing.T) {
	m := build(t, []manifest.Record{{Path: "a.zip", Size: 1, Kind: manifest.KindArchive}})
	err := Tree(&strings.Builder{}, m, Options{Depth: -1})
	if _, ok := err.(*InvalidDepthError); !ok {
		t.Errorf("err = %v, want InvalidDepthError", err)
	}
}

func TestRenderDeterministic(t *testing.T) {
	m := build(t, []manifest.Record{
		{Path: "s0/a.zip", Size: 7, Kind: manifest.KindArchive},
		{Path: "s0/b.zip", Size: 9, Kind: manifest.KindArchive},
	})
	opts := Options{Batcher: SizeBatcher{Threshold: 8}}
	if renderToString(t, m, opts) != renderToString(t, m, opts) {
		t.Error("render is not deterministic")
	}
}
