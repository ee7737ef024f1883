// Package editor binds a template schema to a document's structured data and
// owns the edit buffer of one editing session.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"docforms/internal/api"
	"docforms/internal/datapath"
	"docforms/internal/form"
	"docforms/internal/jobs"
	"docforms/internal/logger"
	"docforms/internal/schema"
	"docforms/internal/store"
	"docforms/pkg/models"
)

// Backend is the part of the REST client a session needs.
type Backend interface {
	jobs.Poller
	GetStructuredData(ctx context.Context, documentID, templateID string) (*models.StructuredData, error)
	GetStructuredDataRaw(ctx context.Context, documentID, templateID string) (json.RawMessage, error)
	UpdateStructuredData(ctx context.Context, documentID, templateID string, data any) (*models.UpdateStructuredDataResponse, error)
	Enhance(ctx context.Context, documentID string, body models.EnhanceRequest) (*models.JobResponse, error)
	Summary(ctx context.Context, documentID, templateID string) (*models.JobResponse, error)
}

type Options struct {
	DocumentID string
	TemplateID string
	Backend    Backend
	Store      *store.Store

	// OnSaved runs after a successful save.
	OnSaved func()

	// OnSummaryComplete runs after a summary job succeeds. The owning page
	// reloads the document to show the generated text.
	OnSummaryComplete func()
}

// Session is the editing state of one (document, template) pair. Its methods
// are safe for concurrent use; the buffer lock is never held across a request.
type Session struct {
	key     store.Key
	backend Backend
	store   *store.Store
	tracker *jobs.Tracker
	opts    Options
	log     zerolog.Logger

	mu        sync.Mutex
	root      *schema.Node
	schemaErr error
	data      any
	enhancing string
	staged    *Enhancement
}

func New(opts Options) *Session {
	st := opts.Store
	if st == nil {
		st = store.New()
	}
	return &Session{
		key:     store.Key{DocumentID: opts.DocumentID, TemplateID: opts.TemplateID},
		backend: opts.Backend,
		store:   st,
		tracker: jobs.NewTracker(opts.Backend, st),
		opts:    opts,
		log: logger.WithComponent("editor").With().
			Str("document_id", opts.DocumentID).
			Str("template_id", opts.TemplateID).
			Logger(),
	}
}

// Key returns the (document, template) pair being edited.
func (s *Session) Key() store.Key { return s.key }

// LoadSchema parses the template's variables text. On failure the session
// stays without schema and the error wraps ErrNoSchema.
func (s *Session) LoadSchema(variables string) error {
	const op = "editor.LoadSchema"

	root, err := schema.Parse(variables)
	if err == nil && !root.IsObject() {
		err = fmt.Errorf("top level is %s, not an object", root.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.root = nil
		s.schemaErr = fmt.Errorf("%s: %w: %v", op, ErrNoSchema, err)
		s.log.Warn().Err(err).Msg("Template variables could not be parsed")
		return s.schemaErr
	}
	s.root = root
	s.schemaErr = nil
	s.fillSkeletonLocked()
	return nil
}

// Schema returns the parsed schema, or nil with the reason it is missing.
func (s *Session) Schema() (*schema.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil && s.schemaErr == nil {
		return nil, ErrNoSchema
	}
	return s.root, s.schemaErr
}

// Bind replaces the buffer with data received from the backend. An empty
// buffer is then filled with the schema's skeleton.
func (s *Session) Bind(data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isEmpty(data) {
		s.data = datapath.Clone(data)
	}
	s.fillSkeletonLocked()
}

func (s *Session) fillSkeletonLocked() {
	if s.root != nil && isEmpty(s.data) {
		s.data = s.root.Initial()
	}
}

func isEmpty(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// Data returns a copy of the buffer.
func (s *Session) Data() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return datapath.Clone(s.data)
}

// HandleFieldChange stores value at path in a fresh copy of the buffer.
// Snapshots returned earlier by Data or View are never affected. A rejected
// write is logged and leaves the buffer unchanged.
func (s *Session) HandleFieldChange(path string, value any) {
	if err := s.SetField(path, value); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Field change ignored")
	}
}

// SetField is HandleFieldChange returning datapath.ErrIndexOutOfRange for an
// index too far past the end of its array.
func (s *Session) SetField(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var shape datapath.Shape
	if s.root != nil {
		shape = s.root
	}
	next, err := datapath.TrySet(datapath.Clone(s.data), path, value, shape)
	if err != nil {
		return fmt.Errorf("SetField: %w", err)
	}
	s.data = next
	return nil
}

// View renders the buffer as form elements wired back into the session.
// onEnhance, when non-nil, is attached to enhanceable leaves.
func (s *Session) View(onEnhance func(path string)) []form.Element {
	s.mu.Lock()
	root, data, enhancing := s.root, datapath.Clone(s.data), s.enhancing
	s.mu.Unlock()

	r := &form.Renderer{
		OnChange:       s.HandleFieldChange,
		OnEnhance:      onEnhance,
		EnhancingField: enhancing,
	}
	return r.Form(root, data)
}

// Validate reports where the buffer departs from the schema.
func (s *Session) Validate() ([]schema.Violation, error) {
	s.mu.Lock()
	root, data := s.root, datapath.Clone(s.data)
	s.mu.Unlock()
	if root == nil {
		return nil, ErrNoSchema
	}
	return root.Conform(data)
}

// Load fetches the stored record and binds it. A missing record leaves the
// skeleton in place.
func (s *Session) Load(ctx context.Context) error {
	const op = "editor.Load"

	token := s.store.NextToken()
	rec, err := s.backend.GetStructuredData(ctx, s.key.DocumentID, s.key.TemplateID)
	if errors.Is(err, api.ErrNotFound) {
		s.Bind(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	data, err := rec.Decode()
	if err != nil {
		return fmt.Errorf("%s: failed to decode structured data: %w", op, err)
	}

	if !s.store.SetStructuredData(s.key, data, rec.Status, token) {
		if cached, ok := s.store.StructuredData(s.key); ok {
			data = cached.Data
		}
	}
	s.Bind(data)
	return nil
}

// Refetch replaces the buffer with the backend's current record, as after a
// job that rewrote it. A response overtaken by a later save is dropped.
func (s *Session) Refetch(ctx context.Context) error {
	const op = "editor.Refetch"

	token := s.store.NextToken()
	rec, err := s.backend.GetStructuredData(ctx, s.key.DocumentID, s.key.TemplateID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	data, err := rec.Decode()
	if err != nil {
		return fmt.Errorf("%s: failed to decode structured data: %w", op, err)
	}

	if !s.store.SetStructuredData(s.key, data, rec.Status, token) {
		s.log.Debug().Msg("Discarded refetch overtaken by a later write")
		return nil
	}

	s.mu.Lock()
	s.data = datapath.Clone(data)
	s.fillSkeletonLocked()
	s.mu.Unlock()
	return nil
}

// Save writes the whole buffer to the backend. On failure the buffer is left
// as it was.
func (s *Session) Save(ctx context.Context) error {
	const op = "editor.Save"

	s.mu.Lock()
	root, data := s.root, datapath.Clone(s.data)
	s.mu.Unlock()

	if root != nil {
		if violations, err := root.Conform(data); err == nil && len(violations) > 0 {
			s.log.Warn().
				Int("violations", len(violations)).
				Str("first", violations[0].String()).
				Msg("Saving data that does not match the template schema")
		}
	}

	token := s.store.NextToken()
	if _, err := s.backend.UpdateStructuredData(ctx, s.key.DocumentID, s.key.TemplateID, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.store.SetStructuredData(s.key, data, models.StructureCompleted, token)
	s.log.Info().Msg("Structured data saved")

	if s.opts.OnSaved != nil {
		s.opts.OnSaved()
	}
	return nil
}

// GenerateSummary runs a summary job for the document and calls
// OnSummaryComplete when it succeeds.
func (s *Session) GenerateSummary(ctx context.Context, onProgress func(models.Job)) (*models.Job, error) {
	const op = "editor.GenerateSummary"

	resp, err := s.backend.Summary(ctx, s.key.DocumentID, s.key.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	target := jobs.Target{Kind: jobs.KindSummary, DocumentID: s.key.DocumentID, TemplateID: s.key.TemplateID}
	s.tracker.Track(resp.JobID, target)
	job, err := s.tracker.Wait(ctx, resp.JobID, target, onProgress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := jobs.Outcome(job); err != nil {
		return job, err
	}

	if s.opts.OnSummaryComplete != nil {
		s.opts.OnSummaryComplete()
	}
	return job, nil
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// CopySummary writes the generated summary to the clipboard.
func CopySummary(ctx context.Context, cb Clipboard, summary string) error {
	if summary == "" {
		return ErrNothingToCopy
	}
	if err := cb.WriteText(ctx, summary); err != nil {
		return fmt.Errorf("editor.CopySummary: %w", err)
	}
	return nil
}
