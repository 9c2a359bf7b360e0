package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// The interchange form is a nested JSON object. Directories are
// objects whose members are their children; stored objects are leaf
// records of the shape {"size": N, "kind": "file"|"archive"}. Member
// order in the document is the stored child order.

// ParseError reports a manifest document that cannot be decoded.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return "manifest: " + e.Detail
}

// Parse decodes a manifest document into a tree. Comments and trailing
// commas are tolerated. Directory sizes are recomputed from the leaves,
// so any aggregate sizes in the document are ignored.
func Parse(label string, data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err == io.EOF {
		return nil, &ParseError{Detail: "empty document"}
	}
	if err != nil {
		return nil, err
	}
	if v.members == nil {
		return nil, &ParseError{Detail: "top level must be an object"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Detail: "trailing data after document"}
	}

	m := New(label)
	if err := buildChildren(m.Root, v.members); err != nil {
		return nil, err
	}
	m.Root.RecomputeSizes()
	return m, nil
}

// Load reads a manifest file. The label is the file name without its
// extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	label := strings.TrimSuffix(base, filepath.Ext(base))
	return Parse(label, data)
}

// Encode renders the manifest in the interchange form, children in
// stored order, indented for human review.
func (m *Manifest) Encode() []byte {
	var buf bytes.Buffer
	encodeChildren(&buf, m.Root, 0)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// WriteFile writes the encoded manifest to path.
func (m *Manifest) WriteFile(path string) error {
	return os.WriteFile(path, m.Encode(), 0o644)
}

func encodeChildren(buf *bytes.Buffer, n *Node, depth int) {
	if len(n.Children) == 0 {
		buf.WriteString("{}")
		return
	}
	buf.WriteString("{\n")
	indent := strings.Repeat("  ", depth+1)
	for i, c := range n.Children {
		buf.WriteString(indent)
		key, _ := json.Marshal(c.Name)
		buf.Write(key)
		buf.WriteString(": ")
		if c.IsLeaf() {
			fmt.Fprintf(buf, `{"size": %d, "kind": %q}`, c.Size, c.Kind.String())
		} else {
			encodeChildren(buf, c, depth+1)
		}
		if i < len(n.Children)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteByte('}')
}

// member preserves one key/value pair of a JSON object in document
// order, which encoding/json map decoding would lose.
type member struct {
	key string
	val value
}

// value is either an object (members non-nil) or a scalar token.
type value struct {
	members []member
	scalar  json.Token
}

func parseValue(dec *json.Decoder) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return value{scalar: tok}, nil
	}
	if delim != '{' {
		return value{}, &ParseError{Detail: "arrays are not allowed in manifests"}
	}
	members := []member{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return value{}, &ParseError{Detail: "object key is not a string"}
		}
		v, err := parseValue(dec)
		if err != nil {
			return value{}, err
		}
		members = append(members, member{key: key, val: v})
	}
	if _, err := dec.Token(); err != nil {
		return value{}, err
	}
	return value{members: members}, nil
}

func buildChildren(parent *Node, members []member) error {
	for _, mb := range members {
		path := ChildPath(parent.RemotePath, mb.key)
		if mb.key == "" || strings.Contains(mb.key, "/") {
			return &MalformedPathError{Path: path, Reason: "invalid entry name"}
		}
		if mb.key == "." || mb.key == ".." {
			return &MalformedPathError{Path: path, Reason: "relative segment"}
		}
		if parent.Child(mb.key) != nil {
			return &DuplicateLeafError{Path: path}
		}
		if mb.val.members == nil {
			return &ParseError{Detail: fmt.Sprintf("entry %q must be an object", path)}
		}

		node := &Node{Name: mb.key, RemotePath: path}
		if rec, ok := leafMembers(mb.val.members); ok {
			if err := fillLeaf(node, rec); err != nil {
				return err
			}
		} else {
			node.Kind = KindDirectory
			if err := buildChildren(node, mb.val.members); err != nil {
				return err
			}
		}
		parent.Children = append(parent.Children, node)
	}
	return nil
}

// leafMembers reports whether an object is a leaf record: every member
// a scalar, with size and kind present. Extra scalar members are
// tolerated for forward compatibility.
func leafMembers(members []member) (map[string]json.Token, bool) {
	rec := make(map[string]json.Token, len(members))
	for _, mb := range members {
		if mb.val.members != nil {
			return nil, false
		}
		rec[mb.key] = mb.val.scalar
	}
	_, hasSize := rec["size"]
	_, hasKind := rec["kind"]
	if !hasSize || !hasKind {
		return nil, false
	}
	return rec, true
}

func fillLeaf(node *Node, rec map[string]json.Token) error {
	num, ok := rec["size"].(json.Number)
	if !ok {
		return &ParseError{Detail: fmt.Sprintf("entry %q: size is not a number", node.RemotePath)}
	}
	size, err := num.Int64()
	if err != nil || size < 0 {
		return &ParseError{Detail: fmt.Sprintf("entry %q: invalid size %s", node.RemotePath, num)}
	}
	kindName, ok := rec["kind"].(string)
	if !ok {
		return &ParseError{Detail: fmt.Sprintf("entry %q: kind is not a string", node.RemotePath)}
	}
	kind, err := ParseKind(kindName)
	if err != nil {
		return &ParseError{Detail: fmt.Sprintf("entry %q: %v", node.RemotePath, err)}
	}
	node.Size = size
	node.Kind = kind
	return nil
}
