package manifest

import "testing"

func sample(t *testing.T) *Manifest {
	t.Helper()
	m, err := Build("sample", []Record{
		{Path: "a/x.zip", Size: 100, Kind: KindArchive},
		{Path: "a/y.txt", Size: 20, Kind: KindFile},
		{Path: "b.zip", Size: 50, Kind: KindArchive},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestChildPath(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "a", "a"},
		{"a", "x.zip", "a/x.zip"},
		{"a/b", "c", "a/b/c"},
	}
	for _, tt := range tests {
		if got := ChildPath(tt.parent, tt.name); got != tt.want {
			t.Errorf("ChildPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	m := sample(t)
	tests := []struct {
		path  string
		found bool
	}{
		{"", true},
		{"a", true},
		{"a/x.zip", true},
		{"b.zip", true},
		{"a/missing", false},
		{"c", false},
	}
	for _, tt := range tests {
		node := m.Find(tt.path)
		if (node != nil) != tt.found {
			t.Errorf("Find(%q) found=%v, want %v", tt.path, node != nil, tt.found)
		}
		if node != nil && node.RemotePath != tt.path {
			t.Errorf("Find(%q).RemotePath = %q", tt.path, node.RemotePath)
		}
	}
}

func TestLeavesOrder(t *testing.T) {
	m := sample(t)
	leaves := m.Leaves()
	want := []string{"a/x.zip", "a/y.txt", "b.zip"}
	if len(leaves) != len(want) {
		t.Fatalf("got %d leaves, want %d", len(leaves), len(want))
	}
	for i, w := range want {
		if leaves[i].RemotePath != w {
			t.Errorf("leaf %d = %q, want %q", i, leaves[i].RemotePath, w)
		}
	}
}

func TestCount(t *testing.T) {
	m := sample(t)
	// root, a, a/x.zip, a/y.txt, b.zip
	if got := m.Count(); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}

func TestRecomputeSizes(t *testing.T) {
	m := sample(t)
	if got := m.TotalSize(); got != 170 {
		t.Errorf("TotalSize = %d, want 170", got)
	}
	if got := m.Find("a").Size; got != 120 {
		t.Errorf("size of a = %d, want 120", got)
	}

	m.Find("a/y.txt").Size = 30
	m.Root.RecomputeSizes()
	if got := m.Find("a").Size; got != 130 {
		t.Errorf("size of a after update = %d, want 130", got)
	}
	if got := m.TotalSize(); got != 180 {
		t.Errorf("TotalSize after update = %d, want 180", got)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	m := sample(t)
	visited := 0
	sentinel := &ParseError{Detail: "stop"}
	err := m.Root.Walk(func(n *Node) error {
		visited++
		if n.RemotePath == "a/x.zip" {
			return sentinel
		}
		return nil
	})
	if err != sentinel {
		t.Errorf("Walk error = %v, want sentinel", err)
	}
	// root, a, a/x.zip
	if visited != 3 {
		t.Errorf("visited %d nodes, want 3", visited)
	}
}
