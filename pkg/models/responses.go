package models

type DocumentUploadResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Filename   string `json:"filename"`
}

// JobResponse is returned by every endpoint that starts a job (extract, convert, enhance, summary).
type JobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type TemplateUploadResponse struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Variables  string `json:"variables,omitempty"`
}

type ListResponse[T any] struct {
	Items            []T    `json:"items"`
	LastEvaluatedKey string `json:"last_evaluated_key,omitempty"`
	HasMore          bool   `json:"has_more"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
}

type UpdateStructuredDataResponse struct {
	DocumentID string `json:"document_id"`
	TemplateID string `json:"template_id"`
	Status     string `json:"status"`
}

type DeleteResponse struct {
	DocumentID string `json:"document_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Status     string `json:"status"`
}

// EnhanceRequest is the body of POST /documents/{id}/enhance
type EnhanceRequest struct {
	FieldPath    string `json:"field_path"`
	TemplateID   string `json:"template_id"`
	Instructions string `json:"instructions,omitempty"`
}

type ExtractRequest struct {
	TemplateID   string       `json:"template_id"`
	AnalysisType AnalysisType `json:"analysis_type"`
}

// TemplateRequest is the body of convert and summary requests.
type TemplateRequest struct {
	TemplateID string `json:"template_id"`
}
