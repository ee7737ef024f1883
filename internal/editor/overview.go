package editor

import (
	"fmt"

	"docforms/internal/form"
)

// FieldStatus summarizes one top-level field of the buffer.
type FieldStatus struct {
	Key    string
	Label  string
	Filled bool
	Status string
}

// Overview lists the fill state of every top-level schema key, in schema order.
func (s *Session) Overview() []FieldStatus {
	s.mu.Lock()
	root := s.root
	data, _ := s.data.(map[string]any)
	s.mu.Unlock()
	if root == nil {
		return nil
	}

	out := make([]FieldStatus, 0, len(root.Fields))
	for _, f := range root.Fields {
		st := FieldStatus{Key: f.Key, Label: form.Label(f.Key), Status: "未入力"}
		switch v := data[f.Key].(type) {
		case []any:
			if len(v) > 0 {
				st.Filled, st.Status = true, fmt.Sprintf("%d件", len(v))
			}
		case map[string]any:
			if len(v) > 0 {
				st.Filled, st.Status = true, "入力済み"
			}
		case string:
			if v != "" {
				st.Filled, st.Status = true, "入力済み"
			}
		case float64:
			if v != 0 {
				st.Filled, st.Status = true, "入力済み"
			}
		case bool:
			if v {
				st.Filled, st.Status = true, "入力済み"
			}
		}
		out = append(out, st)
	}
	return out
}
