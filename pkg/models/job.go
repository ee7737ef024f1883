package models

import "encoding/json"

// JobStatus is the state of an asynchronous backend job
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether polling must stop at this status.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobCompleted || s == JobFailed
}

// Active reports whether the job is still queued or running.
func (s JobStatus) Active() bool {
	return s == JobQueued || s == JobRunning
}

// Succeeded reports whether the job finished successfully. Both spellings are used by the backend.
func (s JobStatus) Succeeded() bool {
	return s == JobSucceeded || s == JobCompleted
}

type Job struct {
	JobID     string          `json:"job_id"`
	Tenant    string          `json:"tenant,omitempty"`
	Status    JobStatus       `json:"status"`
	Step      string          `json:"step"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt int64           `json:"updated_at"`

	// Client-side tags. The backend does not necessarily return them, so every
	// received snapshot is re-stamped before it is stored.
	DocumentID string `json:"document_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}
