package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforms/internal/api"
	"docforms/internal/datapath"
	"docforms/internal/form"
	"docforms/internal/jobs"
	"docforms/internal/store"
	"docforms/pkg/models"
)

type fakeBackend struct {
	mu       sync.Mutex
	record   any
	missing  bool
	saved    []any
	saveErr  error
	onGet    func()
	jobs     []models.Job
	polls    int
	enhanced []models.EnhanceRequest
}

func (f *fakeBackend) PollJob(ctx context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	if i >= len(f.jobs) {
		i = len(f.jobs) - 1
	}
	f.polls++
	job := f.jobs[i]
	job.JobID = jobID
	return &job, nil
}

func (f *fakeBackend) recordJSON() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return json.Marshal(map[string]any{
		"document_id":     "d1",
		"template_id":     "t1",
		"status":          "completed",
		"structured_data": f.record,
	})
}

func (f *fakeBackend) GetStructuredData(ctx context.Context, documentID, templateID string) (*models.StructuredData, error) {
	if f.onGet != nil {
		f.onGet()
	}
	if f.missing {
		return nil, &api.Error{Op: "GetStructuredData", StatusCode: 404}
	}
	raw, err := f.recordJSON()
	if err != nil {
		return nil, err
	}
	var rec models.StructuredData
	return &rec, json.Unmarshal(raw, &rec)
}

func (f *fakeBackend) GetStructuredDataRaw(ctx context.Context, documentID, templateID string) (json.RawMessage, error) {
	return f.recordJSON()
}

func (f *fakeBackend) UpdateStructuredData(ctx context.Context, documentID, templateID string, data any) (*models.UpdateStructuredDataResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, data)
	f.record = data
	return &models.UpdateStructuredDataResponse{DocumentID: documentID, TemplateID: templateID, Status: "completed"}, nil
}

func (f *fakeBackend) Enhance(ctx context.Context, documentID string, body models.EnhanceRequest) (*models.JobResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enhanced = append(f.enhanced, body)
	return &models.JobResponse{JobID: "enh-1", Status: "queued"}, nil
}

func (f *fakeBackend) Summary(ctx context.Context, documentID, templateID string) (*models.JobResponse, error) {
	return &models.JobResponse{JobID: "sum-1", Status: "queued"}, nil
}

const scenarioSchema = `{"basic_info": {"name": ""}, "skills": [{"category": "", "items": ""}]}`

func newSession(t *testing.T, b *fakeBackend, opts Options) *Session {
	t.Helper()
	opts.DocumentID, opts.TemplateID, opts.Backend = "d1", "t1", b
	return New(opts)
}

func TestInvalidSchemaLeavesNoSchemaState(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})

	err := s.LoadSchema(`{"broken": `)
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = s.Schema()
	assert.ErrorIs(t, err, ErrNoSchema)
	assert.Empty(t, s.View(nil))

	assert.ErrorIs(t, s.LoadSchema(`["not", "an", "object"]`), ErrNoSchema)
	assert.ErrorIs(t, s.LoadSchema(""), ErrNoSchema)
}

func TestEndToEndScenario(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	require.NoError(t, s.LoadSchema(scenarioSchema))
	s.Bind(nil)

	assert.Equal(t, map[string]any{
		"basic_info": map[string]any{"name": ""},
		"skills":     []any{},
	}, s.Data())

	el, ok := form.Find(s.View(nil), "skills")
	require.True(t, ok)
	el.(*form.Array).Add()

	assert.Equal(t, map[string]any{
		"basic_info": map[string]any{"name": ""},
		"skills":     []any{map[string]any{"category": "", "items": ""}},
	}, s.Data())

	before := s.Data().(map[string]any)["basic_info"]
	el, ok = form.Find(s.View(nil), "skills.0.category")
	require.True(t, ok)
	el.(*form.Leaf).Set("Languages")

	after := s.Data().(map[string]any)
	assert.Equal(t, "Languages", after["skills"].([]any)[0].(map[string]any)["category"])
	assert.Equal(t, before, after["basic_info"])
}

func TestBindKeepsExistingData(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	s.Bind(map[string]any{"basic_info": map[string]any{"name": "Taro"}})
	require.NoError(t, s.LoadSchema(scenarioSchema))

	assert.Equal(t, map[string]any{"basic_info": map[string]any{"name": "Taro"}}, s.Data())
}

func TestFieldChangesDoNotTouchSnapshots(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	require.NoError(t, s.LoadSchema(scenarioSchema))

	snapshot := s.Data()
	view := s.View(nil)
	s.HandleFieldChange("basic_info.name", "Hanako")

	assert.Equal(t, "", snapshot.(map[string]any)["basic_info"].(map[string]any)["name"])
	assert.Equal(t, "", view[0].(*form.Group).Children[0].(*form.Leaf).Value)
	assert.Equal(t, "Hanako", s.Data().(map[string]any)["basic_info"].(map[string]any)["name"])
}

func TestSetFieldRejectsRunawayIndex(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	require.NoError(t, s.LoadSchema(scenarioSchema))
	before := s.Data()

	err := s.SetField("skills.9223372036854775807.category", "x")
	assert.ErrorIs(t, err, datapath.ErrIndexOutOfRange)
	assert.Equal(t, before, s.Data())

	assert.NotPanics(t, func() { s.HandleFieldChange("skills.9223372036854775807.category", "x") })
	assert.Equal(t, before, s.Data())

	require.NoError(t, s.SetField("skills.0.category", "Go"))
	assert.Equal(t, "Go", s.Data().(map[string]any)["skills"].([]any)[0].(map[string]any)["category"])
}

func TestLoad(t *testing.T) {
	b := &fakeBackend{record: map[string]any{"basic_info": map[string]any{"name": "Taro"}, "skills": []any{}}}
	st := store.New()
	s := newSession(t, b, Options{Store: st})
	require.NoError(t, s.LoadSchema(scenarioSchema))

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, b.record, s.Data())
	cached, ok := st.StructuredData(s.Key())
	require.True(t, ok)
	assert.Equal(t, models.StructureCompleted, cached.Status)

	missing := newSession(t, &fakeBackend{missing: true}, Options{})
	require.NoError(t, missing.LoadSchema(scenarioSchema))
	require.NoError(t, missing.Load(context.Background()))
	assert.Equal(t, map[string]any{"basic_info": map[string]any{"name": ""}, "skills": []any{}}, missing.Data())
}

func TestSave(t *testing.T) {
	b := &fakeBackend{}
	saved := 0
	st := store.New()
	s := newSession(t, b, Options{Store: st, OnSaved: func() { saved++ }})
	require.NoError(t, s.LoadSchema(scenarioSchema))
	s.HandleFieldChange("basic_info.name", "Taro")

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, 1, saved)
	require.Len(t, b.saved, 1)
	assert.Equal(t, s.Data(), b.saved[0])

	cached, ok := st.StructuredData(s.Key())
	require.True(t, ok)
	assert.Equal(t, s.Data(), cached.Data)
}

func TestSaveFailureKeepsBuffer(t *testing.T) {
	b := &fakeBackend{saveErr: &api.Error{Op: "UpdateStructuredData", StatusCode: 500}}
	saved := 0
	s := newSession(t, b, Options{OnSaved: func() { saved++ }})
	require.NoError(t, s.LoadSchema(scenarioSchema))
	s.HandleFieldChange("basic_info.name", "Taro")

	err := s.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, 500, api.StatusCode(err))
	assert.Equal(t, 0, saved)
	assert.Equal(t, "Taro", s.Data().(map[string]any)["basic_info"].(map[string]any)["name"])
}

func TestRefetchOvertakenBySaveIsDiscarded(t *testing.T) {
	b := &fakeBackend{record: map[string]any{"basic_info": map[string]any{"name": "old"}, "skills": []any{}}}
	s := newSession(t, b, Options{})
	require.NoError(t, s.LoadSchema(scenarioSchema))
	s.HandleFieldChange("basic_info.name", "mine")

	stale, err := b.recordJSON()
	require.NoError(t, err)
	b.onGet = func() {
		b.onGet = nil
		require.NoError(t, s.Save(context.Background()))
		b.mu.Lock()
		var rec map[string]any
		_ = json.Unmarshal(stale, &rec)
		b.record = rec["structured_data"]
		b.mu.Unlock()
	}

	require.NoError(t, s.Refetch(context.Background()))
	assert.Equal(t, "mine", s.Data().(map[string]any)["basic_info"].(map[string]any)["name"])
}

func TestRefetchReplacesBuffer(t *testing.T) {
	b := &fakeBackend{record: map[string]any{"basic_info": map[string]any{"name": "extracted"}, "skills": []any{}}}
	s := newSession(t, b, Options{})
	require.NoError(t, s.LoadSchema(scenarioSchema))

	require.NoError(t, s.Refetch(context.Background()))
	assert.Equal(t, "extracted", s.Data().(map[string]any)["basic_info"].(map[string]any)["name"])
}

func enhanceBackend(improved any) *fakeBackend {
	record := map[string]any{"self_pr": "orig"}
	if improved != nil {
		record["self_pr_improved"] = improved
	}
	return &fakeBackend{
		record: record,
		jobs: []models.Job{
			{Status: models.JobRunning, Step: "enhance"},
			{Status: models.JobSucceeded},
		},
	}
}

func TestEnhanceAccept(t *testing.T) {
	b := enhanceBackend("better")
	st := store.New()
	s := newSession(t, b, Options{Store: st})
	require.NoError(t, s.LoadSchema(`{"self_pr": ""}`))
	s.Bind(map[string]any{"self_pr": "orig"})

	var progress int
	e, err := s.EnhanceField(context.Background(), "self_pr", "", func(models.Job) { progress++ })
	require.NoError(t, err)
	assert.Equal(t, Enhancement{Path: "self_pr", Original: "orig", Improved: "better"}, *e)
	assert.Equal(t, 2, progress)
	assert.Equal(t, []models.EnhanceRequest{{FieldPath: "self_pr", TemplateID: "t1"}}, b.enhanced)

	// staged, not applied
	assert.Equal(t, "orig", s.Data().(map[string]any)["self_pr"])
	assert.Equal(t, "self_pr", s.Enhancing())
	leaf := s.View(func(string) {})[0].(*form.Leaf)
	assert.True(t, leaf.Enhancing)

	_, err = s.EnhanceField(context.Background(), "self_pr", "", nil)
	assert.ErrorIs(t, err, ErrEnhanceInProgress)

	job, ok := st.Job("enh-1")
	require.True(t, ok)
	assert.Equal(t, "d1", job.DocumentID)

	_, err = s.Accept("better, edited")
	require.NoError(t, err)
	assert.Equal(t, "better, edited", s.Data().(map[string]any)["self_pr"])
	assert.Empty(t, s.Enhancing())

	_, err = s.Accept("")
	assert.ErrorIs(t, err, ErrNoPendingEnhancement)
}

func TestEnhanceReject(t *testing.T) {
	s := newSession(t, enhanceBackend("better"), Options{})
	require.NoError(t, s.LoadSchema(`{"self_pr": ""}`))
	s.Bind(map[string]any{"self_pr": "orig"})

	_, err := s.EnhanceField(context.Background(), "self_pr", "", nil)
	require.NoError(t, err)

	staged, err := s.Reject()
	require.NoError(t, err)
	assert.Equal(t, "better", staged.Improved)
	assert.Equal(t, "orig", s.Data().(map[string]any)["self_pr"])
	_, pending := s.Pending()
	assert.False(t, pending)
}

func TestEnhanceWithoutImprovedValueIsAnError(t *testing.T) {
	s := newSession(t, enhanceBackend(nil), Options{})
	require.NoError(t, s.LoadSchema(`{"self_pr": ""}`))
	s.Bind(map[string]any{"self_pr": "orig"})

	_, err := s.EnhanceField(context.Background(), "self_pr", "", nil)
	assert.ErrorIs(t, err, ErrImprovedValueMissing)
	assert.Empty(t, s.Enhancing())
}

func TestEnhanceFailedJob(t *testing.T) {
	b := &fakeBackend{jobs: []models.Job{{Status: models.JobFailed, Error: "Read timeout"}}}
	s := newSession(t, b, Options{})
	require.NoError(t, s.LoadSchema(`{"self_pr": ""}`))
	s.Bind(map[string]any{"self_pr": "orig"})

	_, err := s.EnhanceField(context.Background(), "self_pr", "", nil)
	var failed *jobs.FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "処理がタイムアウトしました。もう一度お試しください。", jobs.DescribeError(err))
	assert.Empty(t, s.Enhancing())
}

func TestEnhanceRequiresText(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	require.NoError(t, s.LoadSchema(`{"self_pr": "", "age": 0}`))
	s.Bind(map[string]any{"self_pr": "  ", "age": float64(3)})

	for _, path := range []string{"self_pr", "age", "missing"} {
		_, err := s.EnhanceField(context.Background(), path, "", nil)
		assert.ErrorIs(t, err, ErrNotEnhanceable, path)
	}
}

func TestEnhanceNestedPath(t *testing.T) {
	b := &fakeBackend{
		record: map[string]any{"projects": []any{map[string]any{"detail": "x", "detail_improved": "y"}}},
		jobs:   []models.Job{{Status: models.JobCompleted}},
	}
	s := newSession(t, b, Options{})
	require.NoError(t, s.LoadSchema(`{"projects": [{"detail": ""}]}`))
	s.Bind(b.record)

	e, err := s.EnhanceField(context.Background(), "projects.0.detail", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "y", e.Improved)
}

func TestGenerateSummary(t *testing.T) {
	b := &fakeBackend{jobs: []models.Job{{Status: models.JobRunning, Step: "summary"}, {Status: models.JobCompleted}}}
	reloaded := 0
	s := newSession(t, b, Options{OnSummaryComplete: func() { reloaded++ }})

	job, err := s.GenerateSummary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 1, reloaded)

	failing := newSession(t, &fakeBackend{jobs: []models.Job{{Status: models.JobFailed}}}, Options{OnSummaryComplete: func() { reloaded++ }})
	_, err = failing.GenerateSummary(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 1, reloaded)
}

type memClipboard struct {
	text string
	err  error
}

func (m *memClipboard) WriteText(ctx context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

func TestCopySummary(t *testing.T) {
	cb := &memClipboard{}
	require.NoError(t, CopySummary(context.Background(), cb, "intro"))
	assert.Equal(t, "intro", cb.text)

	assert.ErrorIs(t, CopySummary(context.Background(), cb, ""), ErrNothingToCopy)

	cb.err = errors.New("denied")
	assert.Error(t, CopySummary(context.Background(), cb, "intro"))
}

func TestOverview(t *testing.T) {
	s := newSession(t, &fakeBackend{}, Options{})
	require.NoError(t, s.LoadSchema(`{"basic_info": {"name": ""}, "skills": [{"category": ""}], "self_pr": "", "tags": [""]}`))
	s.Bind(map[string]any{
		"basic_info": map[string]any{"name": "Taro"},
		"skills":     []any{map[string]any{}, map[string]any{}},
		"self_pr":    "",
		"tags":       []any{},
	})

	got := s.Overview()
	require.Len(t, got, 4)
	assert.Equal(t, "入力済み", got[0].Status)
	assert.Equal(t, "2件", got[1].Status)
	assert.Equal(t, "未入力", got[2].Status)
	assert.Equal(t, "未入力", got[3].Status)
	assert.Equal(t, "Basic Info", got[0].Label)
}
