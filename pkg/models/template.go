package models

type Template struct {
	TemplateID  string `json:"template_id"`
	Tenant      string `json:"tenant,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Filename    string `json:"filename"`
	FileKey     string `json:"file_key,omitempty"`

	// Variables is the JSON-encoded schema of the structured data bound to this template.
	Variables string `json:"variables,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}
