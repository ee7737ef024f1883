package schema

import (
	"strconv"
	"strings"

	"docforms/internal/datapath"
)

// Initial returns the empty data tree matching n. Arrays start empty; their
// item template is only instantiated when an item is added.
func (n *Node) Initial() any {
	switch n.Kind {
	case KindObject:
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			out[f.Key] = f.Node.Initial()
		}
		return out
	case KindArray:
		return []any{}
	default:
		return n.Type.Zero()
	}
}

// Zero is the empty value of a leaf of type t.
func (t LeafType) Zero() any {
	switch t {
	case TypeNumber:
		return float64(0)
	case TypeBoolean:
		return false
	default:
		return ""
	}
}

// Lookup returns the node describing the data at segments. Any segment under
// an array addresses its item template.
func (n *Node) Lookup(segments []string) (*Node, bool) {
	current := n
	for _, seg := range segments {
		switch current.Kind {
		case KindObject:
			child := current.Field(seg)
			if child == nil {
				return nil, false
			}
			current = child
		case KindArray:
			if !datapath.IsIndex(seg) {
				return nil, false
			}
			current = current.Item
		default:
			return nil, false
		}
	}
	return current, true
}

// LookupPath is Lookup over a dotted path.
func (n *Node) LookupPath(path string) (*Node, bool) {
	return n.Lookup(datapath.Split(path))
}

// IsArrayAt implements datapath.Shape.
func (n *Node) IsArrayAt(prefix []string) (bool, bool) {
	node, ok := n.Lookup(prefix)
	if !ok || node.IsLeaf() {
		return false, false
	}
	return node.IsArray(), true
}

// Coerce converts text typed into a leaf input to the leaf's value type.
// Input that does not parse is kept as the raw string.
func (n *Node) Coerce(raw string) any {
	if n == nil || !n.IsLeaf() {
		return raw
	}
	switch n.Type {
	case TypeNumber:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return f
		}
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "on", "1":
			return true
		case "false", "off", "0", "":
			return false
		}
	}
	return raw
}
