package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"docforms/internal/schema"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0", want: "1AbC-d_9"},
		{url: "https://docs.google.com/spreadsheets/d/xyz", want: "xyz"},
		{url: "https://example.com/sheet", wantErr: true},
		{url: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractSpreadsheetID(tt.url)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidURL, tt.url)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRowValues(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exp := Export{
		DocumentID: "d1",
		Filename:   "cv.pdf",
		TemplateID: "t1",
		Rows:       []schema.Row{{Path: "basic_info.name", Value: "Taro"}, {Path: "skills.0.category", Value: "Go"}},
	}

	got := rowValues(exp, at)
	assert.Equal(t, [][]interface{}{
		{"d1", "cv.pdf", "t1", "basic_info.name", "Taro", "2026-01-02 03:04:05"},
		{"d1", "cv.pdf", "t1", "skills.0.category", "Go", "2026-01-02 03:04:05"},
	}, got)

	exp.TemplateName = "Resume"
	assert.Equal(t, "Resume", rowValues(exp, at)[0][2])
}

type fakeSheets struct {
	mu       sync.Mutex
	calls    []string
	appended [][]interface{}
	headers  [][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/abc"):
		f.calls = append(f.calls, "get")
		_, _ = w.Write([]byte(`{"spreadsheetId":"abc","sheets":[{"properties":{"title":"Structures","sheetId":7}}]}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "headers")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.headers = body.Values
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "format")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = body.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func TestWriteStructuredData(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := NewSheetsService(context.Background(),
		"https://docs.google.com/spreadsheets/d/abc/edit",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	assert.Equal(t, "abc", svc.SpreadsheetID())

	n, err := svc.WriteStructuredData(context.Background(), "Structures", Export{
		DocumentID: "d1",
		TemplateID: "t1",
		Rows:       []schema.Row{{Path: "name", Value: "Taro"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"get", "headers", "update", "format", "append"}, fake.calls)
	require.Len(t, fake.headers, 1)
	assert.Equal(t, "Document", fake.headers[0][0])
	require.Len(t, fake.appended, 1)
	assert.Equal(t, "Taro", fake.appended[0][4])
}

func TestWriteStructuredDataRequiresRows(t *testing.T) {
	svc := &Service{}
	_, err := svc.WriteStructuredData(context.Background(), "Structures", Export{})
	assert.ErrorIs(t, err, ErrNothingToWrite)
}
