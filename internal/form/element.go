// Package form turns a normalized schema and a data tree into an editable
// view model, and renders that model as HTML.
//
// The model is produced fresh for every data snapshot. Changes flow out
// through the Renderer's OnChange callback as (path, value) pairs; nothing in
// this package mutates the data tree it was given.
package form

import "docforms/internal/schema"

// Element is one node of a rendered form: *Leaf, *Group, *Array or *Notice.
type Element interface {
	Kind() string
	ElementPath() string
}

// Placeholder texts
const (
	InputPlaceholder = "入力してください"
	EmptyArrayText   = "項目がありません。「項目を追加」ボタンをクリックして追加してください。"
	ArrayNoticeText  = "配列フィールドは ArrayFieldRenderer で処理してください"
	AddItemText      = "項目を追加"
	RemoveItemText   = "削除"
	EnhanceText      = "改善"
	EnhancingText    = "処理中"
)

// Leaf is a scalar input.
type Leaf struct {
	Path  string
	Label string
	Type  schema.LeafType
	Level int

	// Value is what the input shows. With an improved overlay it is the
	// improved text and Original holds the stored value.
	Value    string
	Original string
	Improved bool

	Multiline  bool
	CanEnhance bool
	Enhancing  bool

	node      *schema.Node
	onChange  func(path string, value any)
	onEnhance func(path string)
}

func (l *Leaf) Kind() string        { return "leaf" }
func (l *Leaf) ElementPath() string { return l.Path }

// Set forwards typed input to the change callback. It always targets the
// leaf's own path, also when an improved overlay is shown.
func (l *Leaf) Set(raw string) {
	if l.onChange != nil {
		l.onChange(l.Path, l.node.Coerce(raw))
	}
}

// Enhance fires the enhancement callback. It does nothing while the field is
// already being enhanced or when enhancement is not offered.
func (l *Leaf) Enhance() bool {
	if !l.CanEnhance || l.Enhancing {
		return false
	}
	l.onEnhance(l.Path)
	return true
}

// Group is an object node with its fields in schema order.
type Group struct {
	Path     string
	Label    string
	Level    int
	Children []Element
}

func (g *Group) Kind() string        { return "group" }
func (g *Group) ElementPath() string { return g.Path }

// Array is a repeatable group.
type Array struct {
	Path  string
	Label string
	Level int
	Items []*Item

	add func()
}

func (a *Array) Kind() string        { return "array" }
func (a *Array) ElementPath() string { return a.Path }

// Empty reports whether the "no items" placeholder is shown.
func (a *Array) Empty() bool { return len(a.Items) == 0 }

// Add appends an empty item built from the item template.
func (a *Array) Add() { a.add() }

// Item is one card of an Array.
type Item struct {
	Index    int
	Path     string
	Label    string
	Children []Element

	remove func()
}

// Remove drops this item, keeping the order of the others.
func (it *Item) Remove() { it.remove() }

// Notice stands in for a node the field renderer does not draw itself.
type Notice struct {
	Path  string
	Label string
	Text  string
}

func (n *Notice) Kind() string        { return "notice" }
func (n *Notice) ElementPath() string { return n.Path }
