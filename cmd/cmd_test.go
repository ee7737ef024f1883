package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforms/internal/api"
	"docforms/internal/config"
	"docforms/internal/datapath"
	"docforms/internal/jobs"
	"docforms/pkg/models"
)

type cliBackend struct {
	mu     sync.Mutex
	saved  []any
	bearer string
}

func (b *cliBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /templates/t1", func(w http.ResponseWriter, r *http.Request) {
		vars, _ := json.Marshal(`{"basic_info": {"name": "", "age": {"type": "number"}}, "skills": [{"category": ""}]}`)
		fmt.Fprintf(w, `{"template_id":"t1","name":"Resume","variables":%s}`, vars)
	})
	mux.HandleFunc("GET /documents/d1/structures/t1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.bearer = r.Header.Get("Authorization")
		b.mu.Unlock()
		fmt.Fprint(w, `{"document_id":"d1","template_id":"t1","status":"completed",
			"structured_data":{"basic_info":{"name":"Taro","age":30},"skills":[{"category":"Go"}]}}`)
	})
	mux.HandleFunc("PUT /documents/d1/structures/t1", func(w http.ResponseWriter, r *http.Request) {
		var body any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.saved = append(b.saved, body)
		b.mu.Unlock()
		fmt.Fprint(w, `{"status":"completed"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	appConfig = &config.Config{
		API:  config.APIConfig{BaseURL: baseURL, Timeout: 10 * time.Second, PollTimeout: 1},
		Auth: config.AuthConfig{Token: "tok"},
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStructureShow(t *testing.T) {
	b := &cliBackend{}
	srv := b.server(t)

	out, err := runCLI(t, srv.URL, "structure", "show", "d1", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "basic_info.name")
	assert.Contains(t, out, "Taro")
	assert.Contains(t, out, "skills.0.category")
	assert.Equal(t, "Bearer tok", b.bearer)
}

func TestStructureSetSavesWholeRecord(t *testing.T) {
	b := &cliBackend{}
	srv := b.server(t)

	_, err := runCLI(t, srv.URL, "structure", "set", "d1", "t1", "basic_info.age=31", "skills.1.category=Rust")
	require.NoError(t, err)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.saved, 1)
	assert.Equal(t, map[string]any{
		"basic_info": map[string]any{"name": "Taro", "age": float64(31)},
		"skills":     []any{map[string]any{"category": "Go"}, map[string]any{"category": "Rust"}},
	}, b.saved[0])
}

func TestStructureSetRejectsBadAssignment(t *testing.T) {
	b := &cliBackend{}
	srv := b.server(t)

	_, err := runCLI(t, srv.URL, "structure", "set", "d1", "t1", "no-equals-sign")
	assert.Error(t, err)
}

func TestStructureSetRejectsRunawayIndex(t *testing.T) {
	b := &cliBackend{}
	srv := b.server(t)

	_, err := runCLI(t, srv.URL, "structure", "set", "d1", "t1", "skills.9223372036854775807.category=x")
	assert.ErrorIs(t, err, datapath.ErrIndexOutOfRange)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.saved)
}

func TestDescribe(t *testing.T) {
	failed := &jobs.FailedError{Job: models.Job{Status: models.JobFailed, Error: "quota exceeded"}}
	assert.Equal(t, "AI処理のクォータが不足しています。システム管理者にお問い合わせください。", describe(failed))

	notFound := fmt.Errorf("wrapped: %w", &api.Error{Op: "GetDocument", StatusCode: http.StatusNotFound})
	assert.Equal(t, "対象が見つかりませんでした。一覧から選び直してください。", describe(notFound))

	assert.Contains(t, describe(&api.Error{Op: "GetDocument", StatusCode: http.StatusUnauthorized}), "docforms login")
	assert.Equal(t, "plain", describe(fmt.Errorf("plain")))
}

func TestFileClipboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.txt")
	require.NoError(t, fileClipboard(path).WriteText(context.Background(), "hello"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}
