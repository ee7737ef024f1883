package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Violation is one place where a data tree does not match its schema.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Description)
}

// JSONSchema derives a JSON Schema document from n. Leaves accept null since
// extraction may leave fields unset; extra keys such as "<key>_improved" are allowed.
func (n *Node) JSONSchema() map[string]any {
	switch n.Kind {
	case KindObject:
		props := make(map[string]any, len(n.Fields))
		required := make([]any, 0, len(n.Fields))
		for _, f := range n.Fields {
			props[f.Key] = f.Node.JSONSchema()
			required = append(required, f.Key)
		}
		return map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		}
	case KindArray:
		return map[string]any{
			"type":  "array",
			"items": n.Item.JSONSchema(),
		}
	default:
		switch n.Type {
		case TypeNumber:
			return map[string]any{"type": []any{"number", "null"}}
		case TypeBoolean:
			return map[string]any{"type": []any{"boolean", "null"}}
		default:
			return map[string]any{"type": []any{"string", "null"}}
		}
	}
}

// Conform validates data against n. Violations are advisory; an error is only
// returned when validation itself could not run.
func (n *Node) Conform(data any) ([]Violation, error) {
	const op = "schema.Conform"

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(n.JSONSchema()),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, Violation{
			Field:       re.Field(),
			Description: re.Description(),
		})
	}
	return violations, nil
}
