// Package catalog resolves the short dataset names accepted on the
// command line ("visionsim50/frames") to their bucket coordinates:
// endpoint, bucket, key prefix, and the key of the published manifest.
// A registry of the lab's released datasets is compiled in; a local
// YAML file can replace it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed datasets.yaml
var builtin []byte

// Dataset is one published dataset split.
type Dataset struct {
	// Name is the identifier used on the command line, conventionally
	// <dataset>/<split>.
	Name string `yaml:"name"`

	// Description is a one-line summary shown by the list command.
	Description string `yaml:"description"`

	// Endpoint is the object-store URL. Empty entries inherit the
	// file-level endpoint.
	Endpoint string `yaml:"endpoint"`

	// Bucket holds the dataset's objects.
	Bucket string `yaml:"bucket"`

	// Prefix is the key prefix of the split inside the bucket. Manifest
	// paths are relative to it.
	Prefix string `yaml:"prefix"`

	// Manifest is the bucket key of the split's manifest JSON.
	Manifest string `yaml:"manifest"`
}

// Catalog is an ordered dataset registry.
type Catalog struct {
	datasets []Dataset
}

type catalogFile struct {
	Endpoint string    `yaml:"endpoint"`
	Datasets []Dataset `yaml:"datasets"`
}

// Parse reads a registry from YAML. Entry order is preserved for
// listing; names must be unique and name and bucket are required.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	seen := make(map[string]bool, len(file.Datasets))
	for i := range file.Datasets {
		ds := &file.Datasets[i]
		if ds.Name == "" {
			return nil, fmt.Errorf("catalog: entry %d: name is required", i)
		}
		if ds.Bucket == "" {
			return nil, fmt.Errorf("catalog: dataset %q: bucket is required", ds.Name)
		}
		if seen[ds.Name] {
			return nil, fmt.Errorf("catalog: duplicate dataset %q", ds.Name)
		}
		seen[ds.Name] = true
		if ds.Endpoint == "" {
			ds.Endpoint = file.Endpoint
		}
	}
	return &Catalog{datasets: file.Datasets}, nil
}

// Load reads a registry file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the compiled-in registry.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		// The embedded registry is validated by tests.
		panic(err)
	}
	return c
}

// All returns the datasets in registry order.
func (c *Catalog) All() []Dataset {
	return c.datasets
}

// Find returns the dataset with the given name.
func (c *Catalog) Find(name string) (Dataset, bool) {
	for _, ds := range c.datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return Dataset{}, false
}

// Resolve matches arg against dataset names, allowing a sub-path after
// the name: "visionsim50/frames/seq-000" resolves to the
// visionsim50/frames entry with rest "seq-000". The longest matching
// name wins.
func (c *Catalog) Resolve(arg string) (Dataset, string, bool) {
	var (
		best  Dataset
		rest  string
		found bool
	)
	for _, ds := range c.datasets {
		if arg != ds.Name && !strings.HasPrefix(arg, ds.Name+"/") {
			continue
		}
		if !found || len(ds.Name) > len(best.Name) {
			best = ds
			rest = strings.TrimPrefix(strings.TrimPrefix(arg, ds.Name), "/")
			found = true
		}
	}
	return best, rest, found
}
