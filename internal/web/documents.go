package web

import (
	"context"
	"net/http"
	"net/url"

	"docforms/internal/jobs"
	"docforms/internal/logger"
	"docforms/internal/store"
	"docforms/pkg/models"
)

const documentsPageSize = 50

type documentsPage struct {
	Documents []models.Document
	NextKey   string
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := s.client.ListDocuments(r.Context(), documentsPageSize, r.URL.Query().Get("last_key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.store.SetDocuments(list.Items)

	page := documentsPage{Documents: list.Items}
	if list.HasMore {
		page.NextKey = list.LastEvaluatedKey
	}
	s.render(w, r, http.StatusOK, "documents", view{Title: "ドキュメント", Flash: r.URL.Query().Get("msg"), Data: page})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "error", view{Title: "エラー", Error: "アップロードするPDFファイルを選択してください。"})
		return
	}
	defer file.Close()

	resp, err := s.client.UploadDocument(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/documents/"+url.PathEscape(resp.DocumentID), http.StatusSeeOther)
}

// templateRow is one template as shown on a document page.
type templateRow struct {
	Template   models.Template
	Structure  *models.StructuredDataListItem
	Job        *models.Job
	Conversion *conversion
	Selected   bool
}

type documentPage struct {
	Document      *models.Document
	Rows          []templateRow
	Selected      string
	AnalysisTypes []models.AnalysisType
	Jobs          []models.Job
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := r.PathValue("id")

	doc, err := s.client.GetDocument(ctx, documentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	structures, err := s.client.ListStructuredData(ctx, documentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	templates, err := s.client.ListTemplates(ctx, 0, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.store.SetTemplates(templates.Items)

	selected := selectTemplate(r.URL.Query().Get("template"), structures.Items, templates.Items)
	page := documentPage{
		Document:      doc,
		Selected:      selected,
		AnalysisTypes: models.AnalysisTypes,
		Jobs:          s.documentJobs(documentID),
	}
	for _, tpl := range templates.Items {
		row := templateRow{Template: tpl, Selected: tpl.TemplateID == selected}
		for i := range structures.Items {
			if structures.Items[i].TemplateID == tpl.TemplateID {
				row.Structure = &structures.Items[i]
				break
			}
		}
		row.Job = s.latestJob(documentID, tpl.TemplateID)
		if c, ok := s.conversion(store.Key{DocumentID: documentID, TemplateID: tpl.TemplateID}); ok {
			row.Conversion = &c
		}
		page.Rows = append(page.Rows, row)
	}

	s.render(w, r, http.StatusOK, "document", view{Title: doc.Filename, Flash: r.URL.Query().Get("msg"), Data: page})
}

// selectTemplate picks the template a document page opens with: the one
// asked for, else the first completed structure, else the first structure,
// else the first template.
func selectTemplate(requested string, structures []models.StructuredDataListItem, templates []models.Template) string {
	if requested != "" {
		return requested
	}
	for _, st := range structures {
		if st.Status == models.StructureCompleted {
			return st.TemplateID
		}
	}
	if len(structures) > 0 {
		return structures[0].TemplateID
	}
	if len(templates) > 0 {
		return templates[0].TemplateID
	}
	return ""
}

// latestJob returns the most recent job of the pair, preferring one still running.
func (s *Server) latestJob(documentID, templateID string) *models.Job {
	if job, ok := s.store.ActiveJobForTemplate(documentID, templateID); ok {
		return &job
	}
	for _, job := range s.store.Jobs() {
		if job.DocumentID == documentID && job.TemplateID == templateID {
			return &job
		}
	}
	return nil
}

func (s *Server) documentJobs(documentID string) []models.Job {
	var out []models.Job
	for _, job := range s.store.Jobs() {
		if job.DocumentID == documentID {
			out = append(out, job)
		}
	}
	return out
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if _, err := s.client.DeleteDocument(r.Context(), documentID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.store.ClearStructuredData(documentID)

	s.mu.Lock()
	for key := range s.sessions {
		if key.DocumentID == documentID {
			delete(s.sessions, key)
			delete(s.downloads, key)
		}
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/documents?msg="+url.QueryEscape("ドキュメントを削除しました"), http.StatusSeeOther)
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	resp, err := s.client.ReanalyzeDocument(r.Context(), documentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.watch(resp.JobID, jobs.Target{Kind: jobs.KindReanalyze, DocumentID: documentID}, func(ctx context.Context, job *models.Job) {
		if job.Status.Succeeded() {
			s.store.ClearStructuredData(documentID)
			s.refreshSessions(ctx, documentID, "")
		}
	})
	http.Redirect(w, r, documentURL(documentID, "", "再解析を開始しました"), http.StatusSeeOther)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	templateID := r.PostFormValue("template")
	analysis := models.AnalysisType(r.PostFormValue("analysis"))
	if analysis == "" {
		analysis = models.AnalysisVision
	}
	if templateID == "" || !analysis.Valid() {
		s.render(w, r, http.StatusBadRequest, "error", view{Title: "エラー", Error: "テンプレートと解析方式を選択してください。"})
		return
	}

	resp, err := s.client.Extract(r.Context(), documentID, templateID, analysis)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.watch(resp.JobID, jobs.Target{Kind: jobs.KindExtract, DocumentID: documentID, TemplateID: templateID}, func(ctx context.Context, job *models.Job) {
		if job.Status.Succeeded() {
			s.refreshSessions(ctx, documentID, templateID)
		}
	})
	http.Redirect(w, r, documentURL(documentID, templateID, "構造化を開始しました"), http.StatusSeeOther)
}

// handleConvert starts a conversion. When it succeeds the converted file's
// download link is fetched; a failure there is recorded on its own and the
// conversion still counts as done.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	templateID := r.PostFormValue("template")
	if templateID == "" {
		s.render(w, r, http.StatusBadRequest, "error", view{Title: "エラー", Error: "テンプレートを選択してください。"})
		return
	}

	resp, err := s.client.Convert(r.Context(), documentID, templateID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := store.Key{DocumentID: documentID, TemplateID: templateID}
	s.mu.Lock()
	delete(s.downloads, key)
	s.mu.Unlock()

	s.watch(resp.JobID, jobs.Target{Kind: jobs.KindConvert, DocumentID: documentID, TemplateID: templateID}, func(ctx context.Context, job *models.Job) {
		if !job.Status.Succeeded() {
			return
		}
		var c conversion
		link, err := s.client.DownloadURL(ctx, documentID, models.FileConverted, templateID)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("Converted file is not downloadable")
			c.Err = "変換は完了しましたが、ダウンロードに失敗しました: " + jobs.DescribeError(err)
		} else {
			c.URL, c.Filename = link.DownloadURL, link.Filename
		}
		s.mu.Lock()
		s.downloads[key] = c
		s.mu.Unlock()
	})
	http.Redirect(w, r, documentURL(documentID, templateID, "Excel変換を開始しました"), http.StatusSeeOther)
}

// handleDownload redirects to a presigned URL of the original PDF, or of the
// converted workbook when a template is given.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	templateID := r.URL.Query().Get("template")

	fileType := models.FileOriginal
	if templateID != "" {
		fileType = models.FileConverted
	}
	link, err := s.client.DownloadURL(r.Context(), documentID, fileType, templateID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Debug().Str("document_id", documentID).Str("type", string(fileType)).Msg("Redirecting to download")
	http.Redirect(w, r, link.DownloadURL, http.StatusSeeOther)
}

type jobView struct {
	JobID      string           `json:"job_id"`
	TemplateID string           `json:"template_id,omitempty"`
	Status     models.JobStatus `json:"status"`
	Step       string           `json:"step,omitempty"`
	Message    string           `json:"message"`
	Error      string           `json:"error,omitempty"`
}

// handleDocumentJobs reports the tracked jobs of a document for status badges.
func (s *Server) handleDocumentJobs(w http.ResponseWriter, r *http.Request) {
	out := []jobView{}
	for _, job := range s.documentJobs(r.PathValue("id")) {
		v := jobView{
			JobID:      job.JobID,
			TemplateID: job.TemplateID,
			Status:     job.Status,
			Step:       job.Step,
			Message:    jobs.StatusMessage(job.Status, job.Step),
		}
		if job.Status == models.JobFailed {
			v.Error = jobs.FriendlyError(job.Error)
		}
		out = append(out, v)
	}
	RespondWithJSON(w, http.StatusOK, out)
}

func documentURL(documentID, templateID, msg string) string {
	q := url.Values{}
	if templateID != "" {
		q.Set("template", templateID)
	}
	if msg != "" {
		q.Set("msg", msg)
	}
	u := "/documents/" + url.PathEscape(documentID)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
