// Package store is the session-wide cache shared by the editor, job tracking
// and the pages: structured data per (document, template), jobs by id, and
// the last fetched document and template lists.
//
// Every setter builds a fresh map and swaps it in; readers only ever get
// copies. Subscribers are called after each change, outside the lock.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"docforms/internal/datapath"
	"docforms/pkg/models"
)

// Key addresses one structured data record.
type Key struct {
	DocumentID string
	TemplateID string
}

func (k Key) String() string {
	return k.DocumentID + "_" + k.TemplateID
}

// Token orders structured data writes. Take one with NextToken when the
// request that will produce the data is issued.
type Token uint64

// Entry is a cached structured data record.
type Entry struct {
	Data   any
	Status models.StructureStatus
	Token  Token
}

type EventKind int

const (
	StructuredDataChanged EventKind = iota
	StructuredDataCleared
	JobChanged
	JobRemoved
	DocumentsChanged
	TemplatesChanged
	Reset
)

var eventNames = [...]string{
	StructuredDataChanged: "structured_data_changed",
	StructuredDataCleared: "structured_data_cleared",
	JobChanged:            "job_changed",
	JobRemoved:            "job_removed",
	DocumentsChanged:      "documents_changed",
	TemplatesChanged:      "templates_changed",
	Reset:                 "reset",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event describes one change. Key is set for structured data events, JobID
// for job events; StructuredDataCleared only carries Key.DocumentID.
type Event struct {
	Kind  EventKind
	Key   Key
	JobID string
}

type Store struct {
	mu         sync.RWMutex
	structured map[Key]Entry
	// written is the newest token accepted per key. It outlives the entry
	// so a clear does not reopen the key to older responses.
	written    map[Key]Token
	jobs       map[string]models.Job
	documents  []models.Document
	templates  []models.Template

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	tokens atomic.Uint64
}

func New() *Store {
	return &Store{
		structured: map[Key]Entry{},
		written:    map[Key]Token{},
		jobs:       map[string]models.Job{},
		subs:       map[int]func(Event){},
	}
}

// NextToken returns a token newer than every token handed out before.
func (s *Store) NextToken() Token {
	return Token(s.tokens.Add(1))
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SetStructuredData caches data for key. A write whose token is older than
// the cached one is discarded and reported as false.
func (s *Store) SetStructuredData(key Key, data any, status models.StructureStatus, token Token) bool {
	s.mu.Lock()
	if last, ok := s.written[key]; ok && token < last {
		s.mu.Unlock()
		return false
	}
	s.written[key] = token
	next := make(map[Key]Entry, len(s.structured)+1)
	for k, v := range s.structured {
		next[k] = v
	}
	next[key] = Entry{Data: datapath.Clone(data), Status: status, Token: token}
	s.structured = next
	s.mu.Unlock()

	s.notify(Event{Kind: StructuredDataChanged, Key: key})
	return true
}

// StructuredData returns a copy of the cached record for key.
func (s *Store) StructuredData(key Key) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.structured[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	e.Data = datapath.Clone(e.Data)
	return e, true
}

// ClearStructuredData drops every record of documentID. Writes with tokens
// older than the last accepted one are still discarded afterwards.
func (s *Store) ClearStructuredData(documentID string) {
	s.mu.Lock()
	next := make(map[Key]Entry, len(s.structured))
	for k, v := range s.structured {
		if k.DocumentID != documentID {
			next[k] = v
		}
	}
	s.structured = next
	s.mu.Unlock()

	s.notify(Event{Kind: StructuredDataCleared, Key: Key{DocumentID: documentID}})
}

// SetJob stores a job snapshot, replacing any earlier one with the same id.
func (s *Store) SetJob(job models.Job) {
	job.Output = append([]byte(nil), job.Output...)

	s.mu.Lock()
	next := make(map[string]models.Job, len(s.jobs)+1)
	for k, v := range s.jobs {
		next[k] = v
	}
	next[job.JobID] = job
	s.jobs = next
	s.mu.Unlock()

	s.notify(Event{Kind: JobChanged, JobID: job.JobID})
}

func (s *Store) RemoveJob(jobID string) {
	s.mu.Lock()
	if _, ok := s.jobs[jobID]; !ok {
		s.mu.Unlock()
		return
	}
	next := make(map[string]models.Job, len(s.jobs))
	for k, v := range s.jobs {
		if k != jobID {
			next[k] = v
		}
	}
	s.jobs = next
	s.mu.Unlock()

	s.notify(Event{Kind: JobRemoved, JobID: jobID})
}

func (s *Store) Job(jobID string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

// ActiveJobForTemplate returns the queued or running job tagged with
// documentID and templateID.
func (s *Store) ActiveJobForTemplate(documentID, templateID string) (models.Job, bool) {
	for _, job := range s.ActiveJobs() {
		if job.DocumentID == documentID && job.TemplateID == templateID {
			return job, true
		}
	}
	return models.Job{}, false
}

// ActiveJobs lists queued and running jobs, most recently updated first.
func (s *Store) ActiveJobs() []models.Job {
	var out []models.Job
	for _, job := range s.Jobs() {
		if job.Status.Active() {
			out = append(out, job)
		}
	}
	return out
}

// Jobs lists every cached job, most recently updated first.
func (s *Store) Jobs() []models.Job {
	s.mu.RLock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].JobID < out[j].JobID
	})
	return out
}

func (s *Store) SetDocuments(docs []models.Document) {
	s.mu.Lock()
	s.documents = append([]models.Document(nil), docs...)
	s.mu.Unlock()
	s.notify(Event{Kind: DocumentsChanged})
}

func (s *Store) Documents() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Document(nil), s.documents...)
}

func (s *Store) SetTemplates(tpls []models.Template) {
	s.mu.Lock()
	s.templates = append([]models.Template(nil), tpls...)
	s.mu.Unlock()
	s.notify(Event{Kind: TemplatesChanged})
}

func (s *Store) Templates() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Template(nil), s.templates...)
}

// Template returns the cached template with id.
func (s *Store) Template(id string) (models.Template, bool) {
	for _, t := range s.Templates() {
		if t.TemplateID == id {
			return t, true
		}
	}
	return models.Template{}, false
}

// Reset empties the store, as on logout. Subscribers stay registered.
// Accepted tokens are kept, so responses to requests issued before the
// reset are still discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	s.structured = map[Key]Entry{}
	s.jobs = map[string]models.Job{}
	s.documents = nil
	s.templates = nil
	s.mu.Unlock()

	s.notify(Event{Kind: Reset})
}
