// Package manifest models the contents of a remote dataset as a tree:
// one node per directory or stored object, with directory sizes
// aggregated from the leaves below them. Trees are built from flat
// object listings or decoded from the nested JSON interchange form.
package manifest

import (
	"strconv"
	"strings"
)

// Kind classifies a node.
type Kind uint8

const (
	KindDirectory Kind = iota
	KindFile
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindArchive:
		return "archive"
	}
	return "unknown"
}

// ParseKind reads a leaf kind from its interchange name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "file":
		return KindFile, nil
	case "archive":
		return KindArchive, nil
	}
	return 0, &ParseError{Detail: "unknown kind " + strconv.Quote(s)}
}

// Node is a single entry in the dataset tree. For directories, Size is
// the sum of all leaf sizes below and must be refreshed with
// RecomputeSizes after the children change.
type Node struct {
	Name       string
	RemotePath string
	Kind       Kind
	Size       int64
	Children   []*Node
}

// IsLeaf reports whether the node is a stored object rather than a
// directory.
func (n *Node) IsLeaf() bool {
	return n.Kind != KindDirectory
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits the node and all descendants in depth-first order,
// children in stored order. Walking stops at the first error.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns all leaf nodes below n in stored order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(c *Node) error {
		if c.IsLeaf() {
			out = append(out, c)
		}
		return nil
	})
	return out
}

// Count returns the number of nodes in the subtree, including n.
func (n *Node) Count() int {
	count := 1
	for _, c := range n.Children {
		count += c.Count()
	}
	return count
}

// RecomputeSizes recalculates directory sizes bottom-up and returns the
// size of n.
func (n *Node) RecomputeSizes() int64 {
	if n.IsLeaf() {
		return n.Size
	}
	var total int64
	for _, c := range n.Children {
		total += c.RecomputeSizes()
	}
	n.Size = total
	return total
}

// ChildPath joins a parent remote path with a child name. Top-level
// children sit directly under the unnamed root, so their path is the
// bare name.
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// Manifest is a labeled dataset tree. The root is an unnamed directory
// whose RemotePath is the empty string.
type Manifest struct {
	Label string
	Root  *Node
}

// New returns an empty manifest with the given label.
func New(label string) *Manifest {
	return &Manifest{Label: label, Root: &Node{Kind: KindDirectory}}
}

// Find resolves a remote path to its node, or nil. The empty path
// resolves to the root.
func (m *Manifest) Find(path string) *Node {
	cur := m.Root
	if path == "" {
		return cur
	}
	for _, seg := range strings.Split(path, "/") {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}

// Leaves returns all stored objects in the manifest in stored order.
func (m *Manifest) Leaves() []*Node {
	return m.Root.Leaves()
}

// Count returns the total number of nodes, including the root.
func (m *Manifest) Count() int {
	return m.Root.Count()
}

// TotalSize returns the aggregate size of all leaves.
func (m *Manifest) TotalSize() int64 {
	return m.Root.Size
}
