// Package web serves the browser front end: document and template pages,
// the structure editor, and the login page. Pages are rendered on the server
// from the same editor sessions and store the CLI uses.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"docforms/internal/api"
	"docforms/internal/auth"
	"docforms/internal/config"
	"docforms/internal/editor"
	"docforms/internal/jobs"
	"docforms/internal/logger"
	"docforms/internal/metrics"
	"docforms/internal/store"
	"docforms/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"documents", "document", "editor", "templates", "login", "error"}

var funcs = template.FuncMap{
	"jobText": func(j *models.Job) string { return jobs.StatusMessage(j.Status, j.Step) },
	"jobError": func(j *models.Job) string {
		if j.Status != models.JobFailed {
			return ""
		}
		return jobs.FriendlyError(j.Error)
	},
	"unixTime": func(sec int64) string {
		if sec == 0 {
			return ""
		}
		return time.Unix(sec, 0).Format("2006-01-02 15:04")
	},
}

func parsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}

// Options configures a Server.
type Options struct {
	Client *api.Client
	Store  *store.Store
	Auth   config.AuthConfig

	// Login and Logout default to the password grant against Auth.TokenURL
	// and removal of the saved token.
	Login  func(ctx context.Context, username, password string) error
	Logout func() error
}

type Server struct {
	client  *api.Client
	store   *store.Store
	tracker *jobs.Tracker
	login   func(ctx context.Context, username, password string) error
	logout  func() error
	pages   map[string]*template.Template
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	sessions  map[store.Key]*editor.Session
	downloads map[store.Key]conversion
	unsub     func()
}

// conversion is the outcome of the automatic download after a convert job.
type conversion struct {
	URL      string
	Filename string
	Err      string
}

func New(opts Options) *Server {
	st := opts.Store
	if st == nil {
		st = store.New()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		client:    opts.Client,
		store:     st,
		tracker:   jobs.NewTracker(opts.Client, st),
		login:     opts.Login,
		logout:    opts.Logout,
		pages:     parsePages(),
		log:       logger.WithComponent("web"),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[store.Key]*editor.Session),
		downloads: make(map[store.Key]conversion),
	}
	if s.login == nil {
		cfg := opts.Auth
		s.login = func(ctx context.Context, username, password string) error {
			_, err := auth.Login(ctx, cfg, username, password)
			return err
		}
	}
	if s.logout == nil {
		cfg := opts.Auth
		s.logout = func() error { return auth.Logout(cfg) }
	}
	s.unsub = st.Subscribe(func(ev store.Event) {
		s.log.Debug().Stringer("event", ev.Kind).Str("key", ev.Key.String()).Str("job_id", ev.JobID).Msg("Store changed")
	})
	return s
}

// Store returns the cache shared by all pages.
func (s *Server) Store() *store.Store { return s.store }

// Close stops background job polling and waits for it to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.unsub()
}

// Handler returns the routed and instrumented front end.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/documents", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("POST /documents", s.handleUploadDocument)
	mux.HandleFunc("GET /documents/{id}", s.handleDocument)
	mux.HandleFunc("POST /documents/{id}/delete", s.handleDeleteDocument)
	mux.HandleFunc("POST /documents/{id}/reanalyze", s.handleReanalyze)
	mux.HandleFunc("POST /documents/{id}/extract", s.handleExtract)
	mux.HandleFunc("POST /documents/{id}/convert", s.handleConvert)
	mux.HandleFunc("GET /documents/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /documents/{id}/jobs", s.handleDocumentJobs)
	mux.HandleFunc("GET /documents/{id}/edit/{template}", s.handleEditor)
	mux.HandleFunc("POST /documents/{id}/edit/{template}", s.handleEditorAction)
	mux.HandleFunc("GET /templates", s.handleTemplates)
	mux.HandleFunc("POST /templates", s.handleUploadTemplate)
	mux.HandleFunc("POST /templates/{id}/delete", s.handleDeleteTemplate)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /metrics", metrics.Handler())

	return metrics.InstrumentHandler(RequestID(Logger(Recover(mux))))
}

// view is what every page template receives.
type view struct {
	Title string
	Flash string
	Error string
	Data  any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", v); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail shows err to the user. An expired or missing login sends them to the
// login page instead.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if needsLogin(err) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, api.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrInvalidVariables):
		status = http.StatusBadRequest
	}
	log := logger.FromContext(r.Context())
	log.Warn().Err(err).Msg("Request to backend failed")
	s.render(w, r, status, "error", view{Title: "エラー", Error: jobs.DescribeError(err)})
}

func needsLogin(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, auth.ErrNotLoggedIn)
}

// watch waits for a job in the background and runs done with its terminal
// snapshot. It stops when the server closes.
func (s *Server) watch(jobID string, target jobs.Target, done func(ctx context.Context, job *models.Job)) {
	results := s.tracker.Start(s.ctx, jobID, target, nil)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := <-results
		if res.Err != nil {
			s.log.Warn().Err(res.Err).Str("job_id", jobID).Msg("Gave up waiting for job")
			return
		}
		if done != nil {
			done(s.ctx, res.Job)
		}
	}()
}

// session returns the editing session of key, creating and loading it on first use.
func (s *Server) session(ctx context.Context, key store.Key) (*editor.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	tpl, err := s.template(ctx, key.TemplateID)
	if err != nil {
		return nil, err
	}

	sess = editor.New(editor.Options{
		DocumentID: key.DocumentID,
		TemplateID: key.TemplateID,
		Backend:    s.client,
		Store:      s.store,
	})
	_ = sess.LoadSchema(tpl.Variables)
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok {
		return existing, nil
	}
	s.sessions[key] = sess
	return sess, nil
}

// refreshSessions reloads the open sessions of a document after a job rewrote
// its structured data. An empty templateID matches every template.
func (s *Server) refreshSessions(ctx context.Context, documentID, templateID string) {
	s.mu.Lock()
	var open []*editor.Session
	for key, sess := range s.sessions {
		if key.DocumentID == documentID && (templateID == "" || key.TemplateID == templateID) {
			open = append(open, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range open {
		if err := sess.Refetch(ctx); err != nil {
			s.log.Warn().Err(err).Str("key", sess.Key().String()).Msg("Failed to refresh editor session")
		}
	}
}

func (s *Server) template(ctx context.Context, templateID string) (models.Template, error) {
	if tpl, ok := s.store.Template(templateID); ok {
		return tpl, nil
	}
	tpl, err := s.client.GetTemplate(ctx, templateID)
	if err != nil {
		return models.Template{}, err
	}
	return *tpl, nil
}

func (s *Server) conversion(key store.Key) (conversion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.downloads[key]
	return c, ok
}
