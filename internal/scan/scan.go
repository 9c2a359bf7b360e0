// Package scan rebuilds a dataset manifest from a live object listing,
// the reader-side counterpart of the catalog JSON published at upload
// time.
package scan

import (
	"context"
	"path"
	"strings"

	"github.com/wision-lab/datasets/internal/extract"
	"github.com/wision-lab/datasets/internal/logging"
	"github.com/wision-lab/datasets/internal/store"
	"github.com/wision-lab/datasets/pkg/manifest"
)

// Options shape one scan.
type Options struct {
	// Prefix scopes the listing to one dataset inside the bucket and is
	// stripped from manifest paths. It matches whole key segments, so
	// "frames" does not pick up "frames_raw/...".
	Prefix string

	// Exclude drops objects matching any of these glob patterns, tried
	// against the relative path and against the base name.
	Exclude []string

	// Archives classifies keys into archive leaves by suffix. Nil uses
	// extract.Default().
	Archives *extract.Registry
}

// Run lists the store under the prefix and builds a manifest from what
// it finds. Hidden entries (dot or underscore prefixed segments),
// directory marker keys, and excluded patterns are dropped, matching
// what the upload tooling publishes.
func Run(ctx context.Context, st store.Store, label string, opts Options) (*manifest.Manifest, error) {
	reg := opts.Archives
	if reg == nil {
		reg = extract.Default()
	}

	objects, err := st.List(ctx, opts.Prefix)
	if err != nil {
		return nil, err
	}

	var records []manifest.Record
	for _, obj := range objects {
		rel, ok := relativeKey(obj.Key, opts.Prefix)
		if !ok || excluded(rel, opts.Exclude) {
			continue
		}
		kind := manifest.KindFile
		if reg.Supports(rel) {
			kind = manifest.KindArchive
		}
		records = append(records, manifest.Record{Path: rel, Size: obj.Size, Kind: kind})
	}

	m, err := manifest.Build(label, records)
	if err != nil {
		return nil, err
	}
	logging.Info("scanned listing",
		logging.String("prefix", opts.Prefix),
		logging.Int("listed", len(objects)),
		logging.Int("kept", len(records)),
		logging.Int64("bytes", m.TotalSize()),
	)
	return m, nil
}

// relativeKey strips the dataset prefix. Keys outside the prefix
// directory and bare directory markers are dropped.
func relativeKey(key, prefix string) (string, bool) {
	if key == "" || strings.HasSuffix(key, "/") {
		return "", false
	}
	if prefix == "" {
		return key, true
	}
	rel, ok := strings.CutPrefix(key, prefix+"/")
	if !ok || rel == "" {
		return "", false
	}
	return rel, true
}

func excluded(rel string, patterns []string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "_") {
			return true
		}
	}
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if ok, _ := path.Match(pat, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
