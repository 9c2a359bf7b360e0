package manifest

import (
	"fmt"
	"strings"
)

// Record is one object from a flat remote listing: a slash-separated
// path relative to the dataset root, the object's size in bytes, and
// whether it is an archive.
type Record struct {
	Path string
	Size int64
	Kind Kind
}

// DuplicateLeafError reports a record that conflicts with a node
// already in the tree: same path with a different kind or size, or a
// leaf colliding with a directory.
type DuplicateLeafError struct {
	Path string
}

func (e *DuplicateLeafError) Error() string {
	return fmt.Sprintf("manifest: duplicate entry %q", e.Path)
}

// MalformedPathError reports a listing path that cannot be placed in
// the tree.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("manifest: malformed path %q: %s", e.Path, e.Reason)
}

// Build assembles a manifest from a flat listing. Intermediate
// directories are created on demand, children keep first-mention
// order, and directory sizes are aggregated before returning. Records
// that repeat an existing leaf exactly are ignored; conflicting
// records fail with DuplicateLeafError.
func Build(label string, records []Record) (*Manifest, error) {
	m := New(label)
	for _, rec := range records {
		if err := m.insert(rec); err != nil {
			return nil, err
		}
	}
	m.Root.RecomputeSizes()
	return m, nil
}

func (m *Manifest) insert(rec Record) error {
	if rec.Kind == KindDirectory {
		return &MalformedPathError{Path: rec.Path, Reason: "record kind must be file or archive"}
	}
	if rec.Size < 0 {
		return &MalformedPathError{Path: rec.Path, Reason: "negative size"}
	}
	segs, err := splitPath(rec.Path)
	if err != nil {
		return err
	}

	cur := m.Root
	for _, seg := range segs[:len(segs)-1] {
		child := cur.Child(seg)
		if child == nil {
			child = &Node{
				Name:       seg,
				RemotePath: ChildPath(cur.RemotePath, seg),
				Kind:       KindDirectory,
			}
			cur.Children = append(cur.Children, child)
		} else if child.IsLeaf() {
			return &DuplicateLeafError{Path: child.RemotePath}
		}
		cur = child
	}

	name := segs[len(segs)-1]
	if existing := cur.Child(name); existing != nil {
		if existing.Kind == rec.Kind && existing.Size == rec.Size {
			return nil
		}
		return &DuplicateLeafError{Path: existing.RemotePath}
	}
	cur.Children = append(cur.Children, &Node{
		Name:       name,
		RemotePath: ChildPath(cur.RemotePath, name),
		Kind:       rec.Kind,
		Size:       rec.Size,
	})
	return nil
}

func splitPath(p string) ([]string, error) {
	if p == "" {
		return nil, &MalformedPathError{Path: p, Reason: "empty path"}
	}
	segs := strings.Split(p, "/")
	for _, seg := range segs {
		switch seg {
		case "":
			return nil, &MalformedPathError{Path: p, Reason: "empty segment"}
		case ".", "..":
			return nil, &MalformedPathError{Path: p, Reason: "relative segment"}
		}
	}
	return segs, nil
}
