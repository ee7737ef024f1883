package form

import (
	"embed"
	"html/template"
	"io"
	"strings"
)

// FieldPrefix prefixes the name of every leaf input in a posted form.
const FieldPrefix = "field:"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("form").Funcs(template.FuncMap{
	"fieldName":     func(path string) string { return FieldPrefix + path },
	"fieldID":       fieldID,
	"placeholder":   func() string { return InputPlaceholder },
	"emptyText":     func() string { return EmptyArrayText },
	"addText":       func() string { return AddItemText },
	"removeText":    func() string { return RemoveItemText },
	"enhanceText":   func() string { return EnhanceText },
	"enhancingText": func() string { return EnhancingText },
}).ParseFS(templateFS, "templates/*.html"))

// Render writes elements as an HTML fragment. Every input is named
// FieldPrefix+path; buttons submit action=<verb>|<path>.
func Render(w io.Writer, elements []Element) error {
	return templates.ExecuteTemplate(w, "form", elements)
}

// HTML renders elements for embedding in a page template.
func HTML(elements []Element) (template.HTML, error) {
	var b strings.Builder
	if err := Render(&b, elements); err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}

func fieldID(path string) string {
	return "f-" + strings.NewReplacer(".", "-", " ", "_").Replace(path)
}
