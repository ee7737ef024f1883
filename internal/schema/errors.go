package schema

import "errors"

var (
	// ErrInvalidSchema is returned when the template variables are not valid JSON.
	ErrInvalidSchema = errors.New("template variables are not valid JSON")

	// ErrEmptySchema is returned when a template carries no variables at all.
	ErrEmptySchema = errors.New("template has no variables")
)
