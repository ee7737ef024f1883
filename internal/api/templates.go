package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"docforms/internal/schema"
	"docforms/pkg/models"
)

// TemplateUpload describes a new Excel template.
type TemplateUpload struct {
	Filename    string
	File        io.Reader
	Name        string
	Description string

	// Variables is the schema as JSON text. It is checked locally before upload.
	Variables string
}

func (c *Client) UploadTemplate(ctx context.Context, t TemplateUpload) (*models.TemplateUploadResponse, error) {
	const op = "UploadTemplate"

	if t.Name == "" {
		return nil, fmt.Errorf("%s: template name is required", op)
	}

	fields := [][2]string{{"name", t.Name}}
	if t.Description != "" {
		fields = append(fields, [2]string{"description", t.Description})
	}
	if t.Variables != "" {
		root, err := schema.Parse(t.Variables)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidVariables, err)
		}
		if !root.IsObject() {
			return nil, fmt.Errorf("%s: %w: top level must be an object", op, ErrInvalidVariables)
		}
		fields = append(fields, [2]string{"variables", t.Variables})
	}

	body, contentType, err := multipartBody(t.Filename, t.File, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.TemplateUploadResponse
	req := request{op: op, method: http.MethodPost, path: "/templates", body: body, contentType: contentType}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}

	c.log.Info().Str("template_id", out.TemplateID).Str("name", out.Name).Msg("Template uploaded")
	return &out, nil
}

func (c *Client) GetTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	var out models.Template
	req := request{op: "GetTemplate", method: http.MethodGet, path: "/templates/" + url.PathEscape(templateID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTemplates(ctx context.Context, limit int, lastKey string) (*models.ListResponse[models.Template], error) {
	var out models.ListResponse[models.Template]
	req := request{op: "ListTemplates", method: http.MethodGet, path: "/templates", query: pageQuery(limit, lastKey)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, templateID string) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	req := request{op: "DeleteTemplate", method: http.MethodDelete, path: "/templates/" + url.PathEscape(templateID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
