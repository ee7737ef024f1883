package models

import "encoding/json"

type Document struct {
	// Core identifiers
	DocumentID string `json:"document_id"`
	Tenant     string `json:"tenant,omitempty"`

	// Stored file
	Filename string `json:"filename"`
	FileKey  string `json:"file_key,omitempty"`

	// ConvertedFiles maps template_id to the stored key of the converted workbook.
	// Older backends send an object with a file_key field instead of a string.
	ConvertedFiles map[string]json.RawMessage `json:"converted_files,omitempty"`

	// GeneratedIntroduction is filled by a completed summary job.
	GeneratedIntroduction string `json:"generated_introduction,omitempty"`

	CreatedAt int64 `json:"created_at"` // Unix seconds
	UpdatedAt int64 `json:"updated_at"` // Unix seconds
}

// ConvertedFileKey returns the stored key of the workbook converted with templateID.
func (d *Document) ConvertedFileKey(templateID string) string {
	raw, ok := d.ConvertedFiles[templateID]
	if !ok {
		return ""
	}
	var key string
	if err := json.Unmarshal(raw, &key); err == nil {
		return key
	}
	var obj struct {
		FileKey string `json:"file_key"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.FileKey
	}
	return ""
}

// StructureStatus is the lifecycle state of a structured data record
type StructureStatus string

const (
	StructureProcessing StructureStatus = "processing"
	StructureCompleted  StructureStatus = "completed"
	StructureFailed     StructureStatus = "failed"
)

// StructuredData is one (document, template) structured data record.
type StructuredData struct {
	DocumentID     string          `json:"document_id"`
	TemplateID     string          `json:"template_id"`
	StructuredData json.RawMessage `json:"structured_data"`
	Status         StructureStatus `json:"status"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
}

// Decode returns structured_data as a generic JSON tree.
// A missing or null payload decodes to nil.
func (s *StructuredData) Decode() (any, error) {
	if len(s.StructuredData) == 0 {
		return nil, nil
	}
	var tree any
	if err := json.Unmarshal(s.StructuredData, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// StructuredDataListItem is an entry of GET /documents/{id}/structures
type StructuredDataListItem struct {
	DocumentID string          `json:"document_id"`
	TemplateID string          `json:"template_id"`
	Status     StructureStatus `json:"status"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

// AnalysisType selects how the backend reads the PDF during extraction.
type AnalysisType string

const (
	AnalysisVision AnalysisType = "vision"
	AnalysisBase64 AnalysisType = "base64"
	AnalysisText   AnalysisType = "text"
	AnalysisOCR    AnalysisType = "ocr"
)

// AnalysisTypes lists the values accepted by the extract endpoint, in display order.
var AnalysisTypes = []AnalysisType{AnalysisVision, AnalysisOCR, AnalysisBase64, AnalysisText}

// Valid reports whether t is one of AnalysisTypes.
func (t AnalysisType) Valid() bool {
	for _, known := range AnalysisTypes {
		if t == known {
			return true
		}
	}
	return false
}

// FileType selects which stored file a download URL points at.
type FileType string

const (
	FileOriginal  FileType = "original"
	FileTemplate  FileType = "template"
	FileConverted FileType = "converted"
)
