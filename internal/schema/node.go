// Package schema normalizes template variables into a tagged tree.
//
// Template variables double as shape descriptor and example value. Legacy
// templates use example scalars as leaves ("", 0, false); newer ones use
// typed markers such as {"type": "date"}. Parse folds both dialects into
// Leaf nodes so nothing downstream has to tell them apart.
package schema

import (
	"strings"

	"github.com/tidwall/gjson"
)

type Kind int

const (
	KindLeaf Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "leaf"
	}
}

// LeafType is the declared type of a scalar field.
type LeafType string

const (
	TypeString   LeafType = "string"
	TypeDate     LeafType = "date"
	TypeDateTime LeafType = "datetime"
	TypeNumber   LeafType = "number"
	TypeBoolean  LeafType = "boolean"
)

// Node is one position of a normalized schema.
type Node struct {
	Kind Kind

	// Type is set for leaves.
	Type LeafType

	// Fields keeps object keys in the order the template author wrote them.
	Fields []Field

	// Item is the template of every array element, taken from the first
	// element of the schema array. Always set for arrays.
	Item *Node
}

type Field struct {
	Key  string
	Node *Node
}

// Leaf returns a leaf node of type t.
func Leaf(t LeafType) *Node {
	return &Node{Kind: KindLeaf, Type: t}
}

func (n *Node) IsLeaf() bool   { return n.Kind == KindLeaf }
func (n *Node) IsObject() bool { return n.Kind == KindObject }
func (n *Node) IsArray() bool  { return n.Kind == KindArray }

// Field returns the child stored under key, or nil.
func (n *Node) Field(key string) *Node {
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Node
		}
	}
	return nil
}

// Keys returns the object keys in schema order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Parse normalizes the JSON text of a template's variables.
func Parse(text string) (*Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySchema
	}
	if !gjson.Valid(text) {
		return nil, ErrInvalidSchema
	}
	return normalize(gjson.Parse(text)), nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(text string) *Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func normalize(r gjson.Result) *Node {
	switch {
	case r.IsObject():
		if marker := r.Get("type"); marker.Type == gjson.String {
			return Leaf(leafType(marker.Str))
		}
		n := &Node{Kind: KindObject}
		seen := make(map[string]int)
		r.ForEach(func(key, value gjson.Result) bool {
			child := normalize(value)
			if i, dup := seen[key.Str]; dup {
				// later duplicates win, like encoding/json
				n.Fields[i].Node = child
				return true
			}
			seen[key.Str] = len(n.Fields)
			n.Fields = append(n.Fields, Field{Key: key.Str, Node: child})
			return true
		})
		return n

	case r.IsArray():
		item := Leaf(TypeString)
		if first := r.Get("0"); first.Exists() {
			item = normalize(first)
		}
		return &Node{Kind: KindArray, Item: item}

	case r.Type == gjson.Number:
		return Leaf(TypeNumber)

	case r.Type == gjson.True, r.Type == gjson.False:
		return Leaf(TypeBoolean)

	default:
		// strings, null
		return Leaf(TypeString)
	}
}

func leafType(declared string) LeafType {
	switch t := LeafType(strings.ToLower(declared)); t {
	case TypeDate, TypeDateTime, TypeNumber, TypeBoolean:
		return t
	default:
		return TypeString
	}
}
