package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforms/pkg/models"
)

func TestStructuredDataSnapshots(t *testing.T) {
	s := New()
	key := Key{DocumentID: "d1", TemplateID: "t1"}
	data := map[string]any{"name": "Taro"}

	require.True(t, s.SetStructuredData(key, data, models.StructureCompleted, s.NextToken()))
	data["name"] = "mutated after set"

	e, ok := s.StructuredData(key)
	require.True(t, ok)
	assert.Equal(t, "Taro", e.Data.(map[string]any)["name"])

	e.Data.(map[string]any)["name"] = "mutated after get"
	again, _ := s.StructuredData(key)
	assert.Equal(t, "Taro", again.Data.(map[string]any)["name"])
	assert.Equal(t, "d1_t1", key.String())
}

func TestStaleStructuredDataIsDiscarded(t *testing.T) {
	s := New()
	key := Key{DocumentID: "d1", TemplateID: "t1"}

	refetch := s.NextToken()
	save := s.NextToken()

	require.True(t, s.SetStructuredData(key, "saved", models.StructureCompleted, save))
	assert.False(t, s.SetStructuredData(key, "stale", models.StructureCompleted, refetch))

	e, _ := s.StructuredData(key)
	assert.Equal(t, "saved", e.Data)
	assert.Equal(t, save, e.Token)
}

func TestCopyOnWriteMaps(t *testing.T) {
	s := New()
	before := s.structured

	s.SetStructuredData(Key{"d", "t"}, "x", models.StructureCompleted, s.NextToken())

	assert.Empty(t, before)
	assert.Len(t, s.structured, 1)
}

func TestClearStructuredData(t *testing.T) {
	s := New()
	s.SetStructuredData(Key{"d1", "a"}, 1, models.StructureCompleted, s.NextToken())
	s.SetStructuredData(Key{"d1", "b"}, 2, models.StructureCompleted, s.NextToken())
	s.SetStructuredData(Key{"d2", "a"}, 3, models.StructureCompleted, s.NextToken())

	s.ClearStructuredData("d1")

	_, ok := s.StructuredData(Key{"d1", "a"})
	assert.False(t, ok)
	_, ok = s.StructuredData(Key{"d2", "a"})
	assert.True(t, ok)
}

func TestStaleWriteAfterClearIsDiscarded(t *testing.T) {
	s := New()
	key := Key{DocumentID: "d1", TemplateID: "t1"}

	early := s.NextToken()
	latest := s.NextToken()
	require.True(t, s.SetStructuredData(key, "fresh", models.StructureCompleted, latest))

	s.ClearStructuredData("d1")
	assert.False(t, s.SetStructuredData(key, "stale", models.StructureCompleted, early))
	_, ok := s.StructuredData(key)
	assert.False(t, ok)

	s.Reset()
	assert.False(t, s.SetStructuredData(key, "stale", models.StructureCompleted, early))

	assert.True(t, s.SetStructuredData(key, "refetched", models.StructureCompleted, s.NextToken()))
	e, ok := s.StructuredData(key)
	require.True(t, ok)
	assert.Equal(t, "refetched", e.Data)
}

func TestJobs(t *testing.T) {
	s := New()
	s.SetJob(models.Job{JobID: "j1", Status: models.JobRunning, DocumentID: "d", TemplateID: "t", UpdatedAt: 1})
	s.SetJob(models.Job{JobID: "j2", Status: models.JobCompleted, DocumentID: "d", TemplateID: "u", UpdatedAt: 2})
	s.SetJob(models.Job{JobID: "j3", Status: models.JobQueued, DocumentID: "d", TemplateID: "u", UpdatedAt: 3})

	job, ok := s.ActiveJobForTemplate("d", "t")
	require.True(t, ok)
	assert.Equal(t, "j1", job.JobID)

	job, ok = s.ActiveJobForTemplate("d", "u")
	require.True(t, ok)
	assert.Equal(t, "j3", job.JobID)

	active := s.ActiveJobs()
	require.Len(t, active, 2)
	assert.Equal(t, "j3", active[0].JobID)

	assert.Len(t, s.Jobs(), 3)

	s.SetJob(models.Job{JobID: "j1", Status: models.JobFailed, DocumentID: "d", TemplateID: "t"})
	_, ok = s.ActiveJobForTemplate("d", "t")
	assert.False(t, ok)

	s.RemoveJob("j1")
	_, ok = s.Job("j1")
	assert.False(t, ok)
}

func TestSubscribe(t *testing.T) {
	s := New()
	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.SetJob(models.Job{JobID: "j1", Status: models.JobRunning})
	s.SetStructuredData(Key{"d", "t"}, nil, models.StructureProcessing, s.NextToken())
	unsubscribe()
	s.RemoveJob("j1")

	require.Len(t, events, 2)
	assert.Equal(t, JobChanged, events[0].Kind)
	assert.Equal(t, "j1", events[0].JobID)
	assert.Equal(t, StructuredDataChanged, events[1].Kind)
	assert.Equal(t, Key{"d", "t"}, events[1].Key)
}

func TestReset(t *testing.T) {
	s := New()
	s.SetJob(models.Job{JobID: "j1", Status: models.JobRunning})
	s.SetDocuments([]models.Document{{DocumentID: "d"}})
	s.SetTemplates([]models.Template{{TemplateID: "t"}})

	_, ok := s.Template("t")
	assert.True(t, ok)

	s.Reset()
	assert.Empty(t, s.Jobs())
	assert.Empty(t, s.Documents())
	assert.Empty(t, s.Templates())
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := models.Job{JobID: string(rune('a' + i)), Status: models.JobRunning}
			s.SetJob(job)
			_ = s.ActiveJobs()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Jobs(), 20)
}
