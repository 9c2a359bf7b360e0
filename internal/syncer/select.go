package syncer

import (
	"path"
	"strings"

	"github.com/wision-lab/datasets/pkg/manifest"
)

// Selection narrows a manifest to the leaves worth mirroring. A zero
// Selection matches everything. Prefix matches whole path segments,
// so "seq-00" does not select "seq-001/...". Pattern is a path.Match
// glob tried against the full remote path and, as a convenience,
// against the base name. Both constraints apply when both are set.
type Selection struct {
	Prefix  string
	Pattern string
}

// Validate reports a malformed glob pattern before any work starts.
func (s Selection) Validate() error {
	_, err := path.Match(s.Pattern, "probe")
	return err
}

// Matches reports whether the remote path is selected.
func (s Selection) Matches(p string) bool {
	if s.Prefix != "" {
		if p != s.Prefix && !strings.HasPrefix(p, s.Prefix+"/") {
			return false
		}
	}
	if s.Pattern != "" {
		if ok, _ := path.Match(s.Pattern, p); ok {
			return true
		}
		ok, _ := path.Match(s.Pattern, path.Base(p))
		return ok
	}
	return true
}

// Select returns the selected leaves in manifest order.
func Select(m *manifest.Manifest, sel Selection) []*manifest.Node {
	var out []*manifest.Node
	for _, leaf := range m.Leaves() {
		if sel.Matches(leaf.RemotePath) {
			out = append(out, leaf)
		}
	}
	return out
}
