package manifest

import (
	"errors"
	"testing"
)

func TestBuildAggregatesSizes(t *testing.T) {
	m, err := Build("frames", []Record{
		{Path: "a/x.zip", Size: 100, Kind: KindArchive},
		{Path: "b.zip", Size: 50, Kind: KindArchive},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := m.TotalSize(); got != 150 {
		t.Errorf("TotalSize = %d, want 150", got)
	}
	a := m.Find("a")
	if a == nil || a.Kind != KindDirectory {
		t.Fatalf("intermediate directory a missing")
	}
	if a.Size != 100 {
		t.Errorf("size of a = %d, want 100", a.Size)
	}
	if x := m.Find("a/x.zip"); x == nil || x.Kind != KindArchive || x.Size != 100 {
		t.Errorf("a/x.zip = %+v", x)
	}
}

func TestBuildKeepsListingOrder(t *testing.T) {
	m, err := Build("", []Record{
		{Path: "zebra/1.zip", Size: 1, Kind: KindArchive},
		{Path: "alpha/2.zip", Size: 1, Kind: KindArchive},
		{Path: "zebra/0.zip", Size: 1, Kind: KindArchive},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Root.Children[0].Name != "zebra" || m.Root.Children[1].Name != "alpha" {
		t.Errorf("top-level order = %q, %q", m.Root.Children[0].Name, m.Root.Children[1].Name)
	}
	zebra := m.Find("zebra")
	if zebra.Children[0].Name != "1.zip" || zebra.Children[1].Name != "0.zip" {
		t.Errorf("zebra order = %q, %q", zebra.Children[0].Name, zebra.Children[1].Name)
	}
}

func TestBuildIdenticalDuplicateIgnored(t *testing.T) {
	m, err := Build("", []Record{
		{Path: "a/x.zip", Size: 100, Kind: KindArchive},
		{Path: "a/x.zip", Size: 100, Kind: KindArchive},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(m.Find("a").Children); got != 1 {
		t.Errorf("got %d children, want 1", got)
	}
	if got := m.TotalSize(); got != 100 {
		t.Errorf("TotalSize = %d, want 100", got)
	}
}

func TestBuildConflictingDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
	}{
		{"size differs", []Record{
			{Path: "a/x.zip", Size: 100, Kind: KindArchive},
			{Path: "a/x.zip", Size: 101, Kind: KindArchive},
		}},
		{"kind differs", []Record{
			{Path: "a/x.zip", Size: 100, Kind: KindArchive},
			{Path: "a/x.zip", Size: 100, Kind: KindFile},
		}},
		{"leaf where directory exists", []Record{
			{Path: "a/x.zip", Size: 100, Kind: KindArchive},
			{Path: "a", Size: 5, Kind: KindFile},
		}},
		{"directory through a leaf", []Record{
			{Path: "a", Size: 5, Kind: KindFile},
			{Path: "a/x.zip", Size: 100, Kind: KindArchive},
		}},
	}
	for _, tt := range tests {
		_, err := Build("", tt.records)
		var dup *DuplicateLeafError
		if !errors.As(err, &dup) {
			t.Errorf("%s: err = %v, want DuplicateLeafError", tt.name, err)
		}
	}
}

func TestBuildMalformedPaths(t *testing.T) {
	for _, path := range []string{"", "/a", "a/", "a//b", ".", "a/../b"} {
		_, err := Build("", []Record{{Path: path, Size: 1, Kind: KindFile}})
		var malformed *MalformedPathError
		if !errors.As(err, &malformed) {
			t.Errorf("Build(%q): err = %v, want MalformedPathError", path, err)
		}
	}
}

func TestBuildRejectsDirectoryRecords(t *testing.T) {
	_, err := Build("", []Record{{Path: "a", Size: 1, Kind: KindDirectory}})
	if err == nil {
		t.Error("directory record should fail")
	}
}

func TestBuildEmptyListing(t *testing.T) {
	m, err := Build("empty", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.TotalSize() != 0 || len(m.Leaves()) != 0 {
		t.Errorf("empty manifest has size %d, %d leaves", m.TotalSize(), len(m.Leaves()))
	}
}

func TestBuildDeterministic(t *testing.T) {
	records := []Record{
		{Path: "seq/0001.zip", Size: 10, Kind: KindArchive},
		{Path: "seq/0002.zip", Size: 20, Kind: KindArchive},
		{Path: "readme.txt", Size: 3, Kind: KindFile},
	}
	a, err := Build("d", records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build("d", records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if string(a.Encode()) != string(b.Encode()) {
		t.Error("identical listings produced different manifests")
	}
}
