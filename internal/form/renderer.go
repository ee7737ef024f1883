package form

import (
	"fmt"
	"strings"

	"docforms/internal/datapath"
	"docforms/internal/schema"
)

// ImprovedSuffix names the sibling key that carries an AI-improved value.
const ImprovedSuffix = "_improved"

// Renderer builds form elements. OnChange receives every edit; OnEnhance,
// when set, enables the enhancement trigger on non-empty text leaves.
type Renderer struct {
	OnChange  func(path string, value any)
	OnEnhance func(path string)

	// EnhancingField is the path currently being enhanced, if any.
	EnhancingField string
}

// Form renders the top level of a data tree bound to an object schema.
func (r *Renderer) Form(root *schema.Node, data any) []Element {
	if root == nil {
		return nil
	}
	if !root.IsObject() {
		return []Element{r.Field("", root, data, 0)}
	}
	return r.fields("", root, data, 0)
}

// Field renders a leaf or object node. Arrays are delegated to Array;
// asked to draw an array node directly, Field returns a *Notice.
func (r *Renderer) Field(path string, node *schema.Node, value any, level int) Element {
	switch node.Kind {
	case schema.KindArray:
		return &Notice{Path: path, Label: labelOf(path), Text: ArrayNoticeText}
	case schema.KindObject:
		return &Group{
			Path:     path,
			Label:    labelOf(path),
			Level:    level,
			Children: r.fields(path, node, value, level+1),
		}
	default:
		return r.leaf(path, node, value, nil, level)
	}
}

func (r *Renderer) fields(path string, node *schema.Node, value any, level int) []Element {
	parent, _ := value.(map[string]any)
	out := make([]Element, 0, len(node.Fields))
	for _, f := range node.Fields {
		childPath := datapath.Child(path, f.Key)
		childValue := parent[f.Key]

		switch f.Node.Kind {
		case schema.KindArray:
			out = append(out, r.Array(childPath, Label(f.Key), f.Node.Item, childValue, level))
		case schema.KindLeaf:
			out = append(out, r.leaf(childPath, f.Node, childValue, parent, level))
		default:
			out = append(out, &Group{
				Path:     childPath,
				Label:    Label(f.Key),
				Level:    level,
				Children: r.fields(childPath, f.Node, childValue, level+1),
			})
		}
	}
	return out
}

// leaf renders a scalar. parent is the object holding it, used to find the
// improved overlay; nil for array elements.
func (r *Renderer) leaf(path string, node *schema.Node, value any, parent map[string]any, level int) *Leaf {
	raw := schema.FormatScalar(value)
	l := &Leaf{
		Path:      path,
		Label:     labelOf(path),
		Type:      node.Type,
		Level:     level,
		Value:     raw,
		Multiline: IsMultiline(path, value),
		node:      node,
		onChange:  r.OnChange,
		onEnhance: r.OnEnhance,
	}

	if parent != nil {
		key := lastSegment(path)
		if improved, ok := parent[key+ImprovedSuffix].(string); ok && improved != "" {
			l.Value = improved
			l.Original = raw
			l.Improved = true
			l.Multiline = l.Multiline || IsMultiline(path, improved)
		}
	}

	if s, ok := value.(string); ok && r.OnEnhance != nil && strings.TrimSpace(s) != "" {
		l.CanEnhance = true
		l.Enhancing = r.EnhancingField == path
	}
	return l
}

// Array renders the repeatable group at path. A value that is not an array
// renders as empty.
func (r *Renderer) Array(path, label string, item *schema.Node, value any, level int) *Array {
	current, _ := value.([]any)
	if item == nil {
		item = schema.Leaf(schema.TypeString)
	}

	a := &Array{
		Path:  path,
		Label: label,
		Level: level,
		Items: make([]*Item, 0, len(current)),
	}
	a.add = func() {
		next := make([]any, len(current), len(current)+1)
		copy(next, current)
		r.emit(path, append(next, item.Initial()))
	}

	for i, v := range current {
		itemPath := datapath.Index(path, i)
		it := &Item{
			Index: i,
			Path:  itemPath,
			Label: fmt.Sprintf("%s #%d", label, i+1),
		}
		idx := i
		it.remove = func() {
			next := make([]any, 0, len(current)-1)
			next = append(next, current[:idx]...)
			next = append(next, current[idx+1:]...)
			r.emit(path, next)
		}

		switch item.Kind {
		case schema.KindArray:
			it.Children = []Element{r.Array(itemPath, it.Label, item.Item, v, level+1)}
		case schema.KindObject:
			it.Children = r.fields(itemPath, item, v, level+1)
		default:
			it.Children = []Element{r.leaf(itemPath, item, v, nil, level+1)}
		}
		a.Items = append(a.Items, it)
	}
	return a
}

func (r *Renderer) emit(path string, value any) {
	if r.OnChange != nil {
		r.OnChange(path, value)
	}
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func labelOf(path string) string {
	seg := lastSegment(path)
	if datapath.IsIndex(seg) {
		return "#" + seg
	}
	return Label(seg)
}

// Find returns the element, or array item, whose path equals path.
func Find(elements []Element, path string) (any, bool) {
	for _, e := range elements {
		if e.ElementPath() == path {
			return e, true
		}
		var children []Element
		switch el := e.(type) {
		case *Group:
			children = el.Children
		case *Array:
			for _, it := range el.Items {
				if it.Path == path {
					return it, true
				}
				if found, ok := Find(it.Children, path); ok {
					return found, true
				}
			}
		}
		if found, ok := Find(children, path); ok {
			return found, true
		}
	}
	return nil, false
}

// Leaves lists every leaf in document order.
func Leaves(elements []Element) []*Leaf {
	var out []*Leaf
	for _, e := range elements {
		switch el := e.(type) {
		case *Leaf:
			out = append(out, el)
		case *Group:
			out = append(out, Leaves(el.Children)...)
		case *Array:
			for _, it := range el.Items {
				out = append(out, Leaves(it.Children)...)
			}
		}
	}
	return out
}
