package schema

import (
	"encoding/json"
	"strconv"

	"docforms/internal/datapath"
)

// Row is one leaf value of a data tree, addressed by its path.
type Row struct {
	Path  string
	Value string
}

// Flatten lists the leaves of data in schema order. Array elements follow
// the data; object keys follow the schema. Keys unknown to the schema are skipped.
func (n *Node) Flatten(data any) []Row {
	var rows []Row
	n.flatten("", data, &rows)
	return rows
}

func (n *Node) flatten(path string, data any, rows *[]Row) {
	switch n.Kind {
	case KindObject:
		m, _ := data.(map[string]any)
		for _, f := range n.Fields {
			f.Node.flatten(datapath.Child(path, f.Key), m[f.Key], rows)
		}
	case KindArray:
		items, _ := data.([]any)
		for i, item := range items {
			n.Item.flatten(datapath.Index(path, i), item, rows)
		}
	default:
		*rows = append(*rows, Row{Path: path, Value: FormatScalar(data)})
	}
}

// FormatScalar renders a leaf value for display.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
