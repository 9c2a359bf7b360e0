package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
endpoint: https://web.s3.wisc.edu

datasets:
  - name: visionsim50/frames
    description: frame archives
    bucket: visionsim50
    prefix: frames
    manifest: trees/frames.json
  - name: visionsim50/depths
    bucket: visionsim50
    prefix: depths
    manifest: trees/depths.json
  - name: burst
    endpoint: https://campus.s3.wisc.edu
    bucket: burst-imaging
`

func TestParseKeepsOrderAndDefaults(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := c.All()
	if len(all) != 3 {
		t.Fatalf("got %d datasets, want 3", len(all))
	}
	if all[0].Name != "visionsim50/frames" || all[2].Name != "burst" {
		t.Errorf("order = %q ... %q", all[0].Name, all[2].Name)
	}
	if all[0].Endpoint != "https://web.s3.wisc.edu" {
		t.Errorf("file endpoint not inherited: %q", all[0].Endpoint)
	}
	if all[2].Endpoint != "https://campus.s3.wisc.edu" {
		t.Errorf("entry endpoint overridden: %q", all[2].Endpoint)
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "datasets:\n  - bucket: b\n", "name is required"},
		{"missing bucket", "datasets:\n  - name: a\n", "bucket is required"},
		{"duplicate name", "datasets:\n  - {name: a, bucket: b}\n  - {name: a, bucket: c}\n", "duplicate"},
		{"bad yaml", "datasets: [", "parse"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ds, ok := c.Find("visionsim50/depths")
	if !ok || ds.Prefix != "depths" {
		t.Errorf("Find = %+v, %v", ds, ok)
	}
	if _, ok := c.Find("nope"); ok {
		t.Error("Find matched a missing dataset")
	}
}

func TestResolve(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tests := []struct {
		arg      string
		wantName string
		wantRest string
		wantOK   bool
	}{
		{"visionsim50/frames", "visionsim50/frames", "", true},
		{"visionsim50/frames/seq-000", "visionsim50/frames", "seq-000", true},
		{"visionsim50/frames/seq-000/f0.zip", "visionsim50/frames", "seq-000/f0.zip", true},
		{"burst", "burst", "", true},
		{"visionsim50", "", "", false},
		{"visionsim50/framesplus", "", "", false},
		{"other", "", "", false},
	}
	for _, tt := range tests {
		ds, rest, ok := c.Resolve(tt.arg)
		if ok != tt.wantOK || ds.Name != tt.wantName || rest != tt.wantRest {
			t.Errorf("Resolve(%q) = %q, %q, %v; want %q, %q, %v",
				tt.arg, ds.Name, rest, ok, tt.wantName, tt.wantRest, tt.wantOK)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.All()) != 3 {
		t.Errorf("got %d datasets, want 3", len(c.All()))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestDefaultRegistryIsValid(t *testing.T) {
	c := Default()
	if len(c.All()) == 0 {
		t.Fatal("built-in registry is empty")
	}
	for _, ds := range c.All() {
		if ds.Endpoint == "" {
			t.Errorf("dataset %q has no endpoint", ds.Name)
		}
		if ds.Manifest == "" {
			t.Errorf("dataset %q has no manifest key", ds.Name)
		}
	}
}
