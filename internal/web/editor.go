package web

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"docforms/internal/editor"
	"docforms/internal/form"
	"docforms/internal/jobs"
	"docforms/internal/logger"
	"docforms/internal/store"
	"docforms/pkg/models"
)

type editorPage struct {
	Document *models.Document
	Template models.Template
	NoSchema bool
	Form     template.HTML
	Overview []editor.FieldStatus
	Pending  *editor.Enhancement
	Job      *models.Job
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	key := store.Key{DocumentID: r.PathValue("id"), TemplateID: r.PathValue("template")}
	sess, err := s.session(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderEditor(w, r, sess, http.StatusOK, view{Flash: r.URL.Query().Get("msg")})
}

// handleEditorAction applies the posted field values to the buffer and then
// performs the submitted action. The buffer lives in the session, so nothing
// is lost when the action fails.
func (s *Server) handleEditorAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	key := store.Key{DocumentID: r.PathValue("id"), TemplateID: r.PathValue("template")}
	sess, err := s.session(ctx, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderEditor(w, r, sess, http.StatusBadRequest, view{Error: "フォームの送信内容を読み取れませんでした。"})
		return
	}

	applyFields(sess, r)

	verb, path, _ := strings.Cut(r.PostFormValue("action"), "|")
	v := view{}
	status := http.StatusOK

	switch verb {
	case "add":
		if arr, ok := find[*form.Array](sess, path); ok {
			arr.Add()
		}
	case "remove":
		if item, ok := find[*form.Item](sess, path); ok {
			item.Remove()
		}
	case "enhance":
		if _, err := sess.EnhanceField(ctx, path, r.PostFormValue("instructions"), nil); err != nil {
			v.Error, status = enhanceError(err), statusFor(err)
		} else {
			v.Flash = "改善案を確認してください。"
		}
	case "accept":
		if _, err := sess.Accept(r.PostFormValue("improved")); err != nil {
			v.Error, status = "確認待ちの改善案がありません。", http.StatusConflict
		} else {
			v.Flash = "改善案を反映しました。保存すると確定します。"
		}
	case "reject":
		if _, err := sess.Reject(); err != nil {
			v.Error, status = "確認待ちの改善案がありません。", http.StatusConflict
		}
	case "save":
		if err := sess.Save(ctx); err != nil {
			if needsLogin(err) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			v.Error, status = "保存に失敗しました: "+jobs.DescribeError(err), statusFor(err)
		} else {
			v.Flash = "保存しました。"
		}
	case "summary":
		if _, err := sess.GenerateSummary(ctx, nil); err != nil {
			v.Error, status = jobs.DescribeError(err), statusFor(err)
		} else {
			v.Flash = "紹介文を生成しました。"
		}
	case "", "change":
	default:
		log.Warn().Str("action", verb).Msg("Unknown editor action")
		v.Error, status = "不明な操作です。", http.StatusBadRequest
	}

	s.renderEditor(w, r, sess, status, v)
}

// applyFields writes every posted input whose value differs from what the
// form showed.
func applyFields(sess *editor.Session, r *http.Request) {
	for _, leaf := range form.Leaves(sess.View(nil)) {
		raw, ok := r.PostForm[form.FieldPrefix+leaf.Path]
		if !ok || len(raw) == 0 || raw[0] == leaf.Value {
			continue
		}
		leaf.Set(raw[0])
	}
}

func find[T any](sess *editor.Session, path string) (T, bool) {
	var zero T
	el, ok := form.Find(sess.View(nil), path)
	if !ok {
		return zero, false
	}
	t, ok := el.(T)
	return t, ok
}

func enhanceError(err error) string {
	switch {
	case errors.Is(err, editor.ErrEnhanceInProgress):
		return "他のフィールドの改善が進行中です。"
	case errors.Is(err, editor.ErrNotEnhanceable):
		return "改善するテキストが入力されていません。"
	case errors.Is(err, editor.ErrImprovedValueMissing):
		return "改善結果を取得できませんでした。もう一度お試しください。"
	}
	return jobs.DescribeError(err)
}

func statusFor(err error) int {
	var failed *jobs.FailedError
	switch {
	case errors.As(err, &failed):
		return http.StatusOK
	case errors.Is(err, editor.ErrEnhanceInProgress):
		return http.StatusConflict
	case errors.Is(err, editor.ErrNotEnhanceable):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) renderEditor(w http.ResponseWriter, r *http.Request, sess *editor.Session, status int, v view) {
	ctx := r.Context()
	key := sess.Key()

	doc, err := s.client.GetDocument(ctx, key.DocumentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tpl, err := s.template(ctx, key.TemplateID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page := editorPage{Document: doc, Template: tpl, Job: s.latestJob(key.DocumentID, key.TemplateID)}
	if _, err := sess.Schema(); err != nil {
		page.NoSchema = true
	} else {
		html, err := form.HTML(sess.View(func(string) {}))
		if err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Msg("Failed to render form")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		page.Form = html
		page.Overview = sess.Overview()
	}
	if e, ok := sess.Pending(); ok {
		page.Pending = &e
	}

	v.Title = tpl.Name
	v.Data = page
	s.render(w, r, status, "editor", v)
}
