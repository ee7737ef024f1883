package web

import (
	"net/http"
	"net/url"

	"docforms/internal/api"
	"docforms/internal/jobs"
	"docforms/pkg/models"
)

type templatesPage struct {
	Templates []models.Template
	Form      templateForm
}

// templateForm keeps the upload fields when the upload is rejected.
type templateForm struct {
	Name        string
	Description string
	Variables   string
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.renderTemplates(w, r, http.StatusOK, view{Flash: r.URL.Query().Get("msg")}, templateForm{})
}

func (s *Server) renderTemplates(w http.ResponseWriter, r *http.Request, status int, v view, f templateForm) {
	list, err := s.client.ListTemplates(r.Context(), 0, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.store.SetTemplates(list.Items)

	v.Title = "テンプレート"
	v.Data = templatesPage{Templates: list.Items, Form: f}
	s.render(w, r, status, "templates", v)
}

func (s *Server) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	f := templateForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Variables:   r.FormValue("variables"),
	}
	file, header, err := r.FormFile("file")
	if err != nil || f.Name == "" {
		s.renderTemplates(w, r, http.StatusBadRequest, view{Error: "テンプレート名とExcelファイルを指定してください。"}, f)
		return
	}
	defer file.Close()

	_, err = s.client.UploadTemplate(r.Context(), api.TemplateUpload{
		Filename:    header.Filename,
		File:        file,
		Name:        f.Name,
		Description: f.Description,
		Variables:   f.Variables,
	})
	if needsLogin(err) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.renderTemplates(w, r, http.StatusBadRequest, view{Error: jobs.DescribeError(err)}, f)
		return
	}
	http.Redirect(w, r, "/templates?msg="+url.QueryEscape("テンプレートを登録しました"), http.StatusSeeOther)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("id")
	if _, err := s.client.DeleteTemplate(r.Context(), templateID); err != nil {
		s.fail(w, r, err)
		return
	}

	s.mu.Lock()
	for key := range s.sessions {
		if key.TemplateID == templateID {
			delete(s.sessions, key)
			delete(s.downloads, key)
		}
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/templates?msg="+url.QueryEscape("テンプレートを削除しました"), http.StatusSeeOther)
}
