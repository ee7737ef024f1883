package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"docforms/pkg/models"
)

// UploadDocument sends a PDF as multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, filename string, file io.Reader) (*models.DocumentUploadResponse, error) {
	const op = "UploadDocument"

	body, contentType, err := multipartBody(filename, file, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.DocumentUploadResponse
	req := request{op: op, method: http.MethodPost, path: "/documents/upload", body: body, contentType: contentType}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}

	c.log.Info().Str("document_id", out.DocumentID).Str("filename", out.Filename).Msg("Document uploaded")
	return &out, nil
}

func (c *Client) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var out models.Document
	req := request{op: "GetDocument", method: http.MethodGet, path: "/documents/" + url.PathEscape(documentID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments returns one page of documents. lastKey continues a previous page.
func (c *Client) ListDocuments(ctx context.Context, limit int, lastKey string) (*models.ListResponse[models.Document], error) {
	var out models.ListResponse[models.Document]
	req := request{op: "ListDocuments", method: http.MethodGet, path: "/documents", query: pageQuery(limit, lastKey)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	req := request{op: "DeleteDocument", method: http.MethodDelete, path: "/documents/" + url.PathEscape(documentID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReanalyzeDocument restarts the backend's analysis of a document.
func (c *Client) ReanalyzeDocument(ctx context.Context, documentID string) (*models.JobResponse, error) {
	const op = "ReanalyzeDocument"
	req := request{op: op, method: http.MethodPost, path: "/documents/" + url.PathEscape(documentID) + "/reanalyze"}
	return c.startJob(ctx, req)
}

// ListStructuredData lists the structured data records of a document. The
// backend answers {structures: [...]}; it is returned as Items.
func (c *Client) ListStructuredData(ctx context.Context, documentID string) (*models.ListResponse[models.StructuredDataListItem], error) {
	var raw struct {
		Items            []models.StructuredDataListItem `json:"items"`
		Structures       []models.StructuredDataListItem `json:"structures"`
		LastEvaluatedKey string                          `json:"last_evaluated_key"`
		HasMore          bool                            `json:"has_more"`
	}
	req := request{op: "ListStructuredData", method: http.MethodGet, path: structuresPath(documentID, "")}
	if err := c.do(ctx, req, &raw); err != nil {
		return nil, err
	}

	out := &models.ListResponse[models.StructuredDataListItem]{
		Items:            raw.Items,
		LastEvaluatedKey: raw.LastEvaluatedKey,
		HasMore:          raw.HasMore,
	}
	if out.Items == nil && raw.Structures != nil {
		out.Items = raw.Structures
		out.HasMore = false
	}
	return out, nil
}

func (c *Client) GetStructuredData(ctx context.Context, documentID, templateID string) (*models.StructuredData, error) {
	var out models.StructuredData
	req := request{op: "GetStructuredData", method: http.MethodGet, path: structuresPath(documentID, templateID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStructuredDataRaw returns the record body as received, for reads of keys
// the typed model does not know.
func (c *Client) GetStructuredDataRaw(ctx context.Context, documentID, templateID string) (json.RawMessage, error) {
	var out json.RawMessage
	req := request{op: "GetStructuredDataRaw", method: http.MethodGet, path: structuresPath(documentID, templateID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStructuredData replaces the whole structured data tree.
func (c *Client) UpdateStructuredData(ctx context.Context, documentID, templateID string, data any) (*models.UpdateStructuredDataResponse, error) {
	const op = "UpdateStructuredData"

	req, err := jsonRequest(op, http.MethodPut, structuresPath(documentID, templateID), data)
	if err != nil {
		return nil, err
	}
	var out models.UpdateStructuredDataResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}

	c.log.Info().Str("document_id", documentID).Str("template_id", templateID).Msg("Structured data saved")
	return &out, nil
}

// Extract starts structure extraction with the given analysis type.
func (c *Client) Extract(ctx context.Context, documentID, templateID string, analysis models.AnalysisType) (*models.JobResponse, error) {
	const op = "Extract"
	if !analysis.Valid() {
		return nil, fmt.Errorf("%s: unknown analysis type %q", op, analysis)
	}
	req, err := jsonRequest(op, http.MethodPost, documentPath(documentID, "extract"),
		models.ExtractRequest{TemplateID: templateID, AnalysisType: analysis})
	if err != nil {
		return nil, err
	}
	return c.startJob(ctx, req)
}

// Convert starts conversion of the structured data into the template workbook.
func (c *Client) Convert(ctx context.Context, documentID, templateID string) (*models.JobResponse, error) {
	req, err := jsonRequest("Convert", http.MethodPost, documentPath(documentID, "convert"),
		models.TemplateRequest{TemplateID: templateID})
	if err != nil {
		return nil, err
	}
	return c.startJob(ctx, req)
}

// Enhance starts AI improvement of one field. The result lands in "<field_path>_improved".
func (c *Client) Enhance(ctx context.Context, documentID string, body models.EnhanceRequest) (*models.JobResponse, error) {
	req, err := jsonRequest("Enhance", http.MethodPost, documentPath(documentID, "enhance"), body)
	if err != nil {
		return nil, err
	}
	return c.startJob(ctx, req)
}

// Summary starts generation of the document introduction.
func (c *Client) Summary(ctx context.Context, documentID, templateID string) (*models.JobResponse, error) {
	req, err := jsonRequest("Summary", http.MethodPost, documentPath(documentID, "summary"),
		models.TemplateRequest{TemplateID: templateID})
	if err != nil {
		return nil, err
	}
	return c.startJob(ctx, req)
}

func (c *Client) startJob(ctx context.Context, req request) (*models.JobResponse, error) {
	var out models.JobResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, fmt.Errorf("%s: %w", req.op, ErrEmptyJobID)
	}
	c.log.Info().Str("op", req.op).Str("job_id", out.JobID).Str("status", out.Status).Msg("Job submitted")
	return &out, nil
}

func documentPath(documentID, action string) string {
	return "/documents/" + url.PathEscape(documentID) + "/" + action
}

func structuresPath(documentID, templateID string) string {
	p := documentPath(documentID, "structures")
	if templateID != "" {
		p += "/" + url.PathEscape(templateID)
	}
	return p
}

func pageQuery(limit int, lastKey string) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if lastKey != "" {
		q.Set("last_key", lastKey)
	}
	return q
}

// multipartBody encodes file under "file" followed by the text fields, in order.
func multipartBody(filename string, file io.Reader, fields [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
