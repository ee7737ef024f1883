package web

import (
	"errors"
	"net/http"

	"docforms/internal/auth"
	"docforms/internal/editor"
	"docforms/internal/logger"
	"docforms/internal/store"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", view{Title: "ログイン"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	if username == "" || password == "" {
		s.render(w, r, http.StatusBadRequest, "login", view{Title: "ログイン", Error: "ユーザー名とパスワードを入力してください。"})
		return
	}

	if err := s.login(r.Context(), username, password); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("user", username).Msg("Login failed")
		msg := "ログインに失敗しました。ユーザー名とパスワードを確認してください。"
		if errors.Is(err, auth.ErrNoTokenURL) {
			msg = "ログイン先が設定されていません。auth.token_url を設定してください。"
		}
		s.render(w, r, http.StatusUnauthorized, "login", view{Title: "ログイン", Error: msg})
		return
	}
	http.Redirect(w, r, "/documents", http.StatusSeeOther)
}

// handleLogout forgets the token and everything cached under it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.logout(); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Msg("Failed to remove saved token")
	}
	s.store.Reset()

	s.mu.Lock()
	s.sessions = make(map[store.Key]*editor.Session)
	s.downloads = make(map[store.Key]conversion)
	s.mu.Unlock()

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
