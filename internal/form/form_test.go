package form

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforms/internal/schema"
)

type change struct {
	path  string
	value any
}

type recorder struct {
	changes  []change
	enhanced []string
}

func (r *recorder) renderer() *Renderer {
	return &Renderer{
		OnChange: func(path string, value any) { r.changes = append(r.changes, change{path, value}) },
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"work_experience": "Work Experience",
		"firstName":       "First Name",
		"name":            "Name",
		"self_pr":         "Self Pr",
		"概要":              "概要",
	}
	for in, want := range tests {
		assert.Equal(t, want, Label(in), in)
	}
}

func TestIsMultiline(t *testing.T) {
	assert.False(t, IsMultiline("name", strings.Repeat("a", 40)))
	assert.True(t, IsMultiline("name", strings.Repeat("a", 150)))
	assert.False(t, IsMultiline("name", strings.Repeat("あ", 100)))
	assert.True(t, IsMultiline("name", "line\nbreak"))
	assert.True(t, IsMultiline("summary", strings.Repeat("a", 40)))
	assert.True(t, IsMultiline("Summary", ""))
	assert.True(t, IsMultiline("self_pr", strings.Repeat("a", 10)))
	assert.True(t, IsMultiline("projects.0.Description", ""))
	assert.True(t, IsMultiline("職務概要", nil))
	assert.False(t, IsMultiline("age", float64(42)))
}

func TestArrayEmptyState(t *testing.T) {
	rec := &recorder{}
	item := schema.MustParse(`{"category": "", "items": ""}`)

	a := rec.renderer().Array("skills", "Skills", item, []any{}, 0)
	assert.True(t, a.Empty())
	assert.Empty(t, a.Items)

	var b strings.Builder
	require.NoError(t, Render(&b, []Element{a}))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, EmptyArrayText, strings.TrimSpace(doc.Find(".empty-array").Text()))
	assert.Equal(t, 0, doc.Find(".array-item").Length())
}

func TestArrayItemsAreIndependentlyRemovable(t *testing.T) {
	rec := &recorder{}
	item := schema.MustParse(`{"category": ""}`)
	value := []any{
		map[string]any{"category": "a"},
		map[string]any{"category": "b"},
		map[string]any{"category": "c"},
	}

	a := rec.renderer().Array("skills", "Skills", item, value, 0)
	require.Len(t, a.Items, 3)
	assert.Equal(t, "Skills #2", a.Items[1].Label)
	assert.Equal(t, "skills.1.category", a.Items[1].Children[0].ElementPath())

	a.Items[1].Remove()
	require.Len(t, rec.changes, 1)
	assert.Equal(t, "skills", rec.changes[0].path)
	assert.Equal(t, []any{value[0], value[2]}, rec.changes[0].value)
	assert.Len(t, value, 3)

	var b strings.Builder
	require.NoError(t, Render(&b, []Element{a}))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Find(".array-item").Length())
	assert.Equal(t, 3, doc.Find("button.remove-item").Length())
	assert.Equal(t, 0, doc.Find(".empty-array").Length())
}

func TestArrayAdd(t *testing.T) {
	rec := &recorder{}
	item := schema.MustParse(`{"category": "", "level": 0}`)
	value := []any{map[string]any{"category": "Go", "level": float64(3)}}

	rec.renderer().Array("skills", "Skills", item, value, 0).Add()

	require.Len(t, rec.changes, 1)
	assert.Equal(t, []any{
		map[string]any{"category": "Go", "level": float64(3)},
		map[string]any{"category": "", "level": float64(0)},
	}, rec.changes[0].value)
	assert.Len(t, value, 1)
}

func TestNestedArraysAndPrimitiveItems(t *testing.T) {
	rec := &recorder{}
	root := schema.MustParse(`{"matrix": [[""]], "tags": [""]}`)
	data := map[string]any{
		"matrix": []any{[]any{"x", "y"}},
		"tags":   []any{"go"},
	}

	elems := rec.renderer().Form(root, data)
	require.Len(t, elems, 2)

	matrix := elems[0].(*Array)
	inner := matrix.Items[0].Children[0].(*Array)
	require.Len(t, inner.Items, 2)
	assert.Equal(t, "matrix.0.1", inner.Items[1].Children[0].ElementPath())

	tags := elems[1].(*Array)
	leaf := tags.Items[0].Children[0].(*Leaf)
	assert.Equal(t, "tags.0", leaf.Path)
	assert.Equal(t, "go", leaf.Value)
}

func TestFieldDelegatesArrays(t *testing.T) {
	r := &Renderer{}
	root := schema.MustParse(`{"profile": {"name": "", "links": [""]}}`)

	group := r.Field("profile", root.Field("profile"), map[string]any{"links": []any{"a"}}, 0).(*Group)
	require.Len(t, group.Children, 2)
	links, ok := group.Children[1].(*Array)
	require.True(t, ok)
	assert.Len(t, links.Items, 1)

	notice, ok := r.Field("links", root.Field("profile").Field("links"), nil, 0).(*Notice)
	require.True(t, ok)
	assert.Equal(t, ArrayNoticeText, notice.Text)
}

func TestImprovedOverlay(t *testing.T) {
	rec := &recorder{}
	root := schema.MustParse(`{"self_pr": ""}`)
	data := map[string]any{"self_pr": "orig", "self_pr_improved": "better"}

	elems := rec.renderer().Form(root, data)
	leaf := elems[0].(*Leaf)

	assert.Equal(t, "better", leaf.Value)
	assert.True(t, leaf.Improved)
	assert.Equal(t, "orig", leaf.Original)

	leaf.Set("edited")
	require.Len(t, rec.changes, 1)
	assert.Equal(t, "self_pr", rec.changes[0].path)
	assert.Equal(t, "edited", rec.changes[0].value)

	var b strings.Builder
	require.NoError(t, Render(&b, elems))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	area := doc.Find("textarea")
	name, _ := area.Attr("name")
	assert.Equal(t, FieldPrefix+"self_pr", name)
	assert.Equal(t, "better", area.Text())
	assert.Equal(t, "orig", doc.Find("details.original pre").Text())
}

func TestEmptyImprovedValueIsIgnored(t *testing.T) {
	root := schema.MustParse(`{"name": ""}`)
	elems := (&Renderer{}).Form(root, map[string]any{"name": "a", "name_improved": ""})

	leaf := elems[0].(*Leaf)
	assert.False(t, leaf.Improved)
	assert.Equal(t, "a", leaf.Value)
}

func TestEnhanceTrigger(t *testing.T) {
	rec := &recorder{}
	r := rec.renderer()
	r.OnEnhance = func(path string) { rec.enhanced = append(rec.enhanced, path) }
	r.EnhancingField = "busy"

	root := schema.MustParse(`{"free": "", "blank": "", "busy": "", "count": 0}`)
	data := map[string]any{"free": "text", "blank": "   ", "busy": "text", "count": float64(3)}
	leaves := Leaves(r.Form(root, data))
	require.Len(t, leaves, 4)

	assert.True(t, leaves[0].CanEnhance)
	assert.False(t, leaves[1].CanEnhance)
	assert.True(t, leaves[2].CanEnhance)
	assert.True(t, leaves[2].Enhancing)
	assert.False(t, leaves[3].CanEnhance)

	assert.True(t, leaves[0].Enhance())
	assert.False(t, leaves[2].Enhance())
	assert.False(t, leaves[1].Enhance())
	assert.Equal(t, []string{"free"}, rec.enhanced)

	var b strings.Builder
	require.NoError(t, Render(&b, []Element{leaves[2]}))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	_, disabled := doc.Find("button.enhance").Attr("disabled")
	assert.True(t, disabled)
	assert.Equal(t, EnhancingText, doc.Find("button.enhance").Text())
}

func TestNoEnhanceWithoutHandler(t *testing.T) {
	leaves := Leaves((&Renderer{}).Form(schema.MustParse(`{"a": ""}`), map[string]any{"a": "x"}))
	assert.False(t, leaves[0].CanEnhance)
}

func TestTypedLeafCoercion(t *testing.T) {
	rec := &recorder{}
	root := schema.MustParse(`{"age": {"type": "number"}, "active": {"type": "boolean"}}`)
	leaves := Leaves(rec.renderer().Form(root, root.Initial()))

	leaves[0].Set("42")
	leaves[1].Set("on")
	assert.Equal(t, []change{{"age", float64(42)}, {"active", true}}, rec.changes)
}

func TestFind(t *testing.T) {
	root := schema.MustParse(`{"basic_info": {"name": ""}, "skills": [{"category": ""}]}`)
	data := map[string]any{
		"basic_info": map[string]any{"name": ""},
		"skills":     []any{map[string]any{"category": "Go"}},
	}
	elems := (&Renderer{}).Form(root, data)

	el, ok := Find(elems, "skills.0.category")
	require.True(t, ok)
	assert.IsType(t, &Leaf{}, el)

	el, ok = Find(elems, "skills.0")
	require.True(t, ok)
	assert.IsType(t, &Item{}, el)

	el, ok = Find(elems, "skills")
	require.True(t, ok)
	assert.IsType(t, &Array{}, el)

	_, ok = Find(elems, "skills.1")
	assert.False(t, ok)
}
