package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/nosurf"
	"github.com/klauspost/compress/gzhttp"

	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/model"
	"go-skin-renderer/internal/session"
	"go-skin-renderer/internal/storage"
	"go-skin-renderer/internal/templating"
)

// sessionCookie carries the session id.
const sessionCookie = "roundcube_sessid"

// application holds the dependencies of the page server.
type application struct {
	logger   *slog.Logger
	cfg      *config.Store
	engine   *templating.Engine
	store    storage.MetaStore
	sessions sessionSource
	root     string
}

// routes sets up the HTTP router: pages at "/" and static files of skins,
// plugins and core scripts from the install root. In devel mode the skin
// admin API is mounted below /api/admin.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	static := http.FileServer(http.Dir(app.root))
	for _, dir := range []string{"skins", "plugins", "program/js", "images"} {
		r.Handle("/"+dir+"/*", static)
	}

	r.Get("/", app.pageHandler)
	r.Post("/", app.pageHandler)

	if app.cfg.GetBool("devel_mode") {
		r.Route("/api/admin", app.adminRoutes)
	}

	csrf := nosurf.New(r)
	csrf.SetBaseCookie(http.Cookie{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	csrf.SetFailureHandler(http.HandlerFunc(app.csrfFailureHandler))

	return app.compression(formToken(csrf))
}

// formToken passes the _token field of page forms to the CSRF check, which
// reads the token from a header.
func formToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Header.Get(nosurf.HeaderName) == "" {
			if tok := r.PostFormValue("_token"); tok != "" {
				r.Header.Set(nosurf.HeaderName, tok)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// compression wraps h with gzip compression unless disabled by config.
func (app *application) compression(h http.Handler) http.Handler {
	if !app.cfg.GetBool("compression.enabled") {
		return h
	}
	var level int
	switch app.cfg.GetString("compression.level") {
	case "none":
		return h
	case "fastest":
		level = gzip.BestSpeed
	case "best":
		level = gzip.BestCompression
	default:
		level = gzip.DefaultCompression
	}
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(app.cfg.GetInt("compression.min_size")),
		gzhttp.CompressionLevel(level),
	)
	if err != nil {
		app.logger.Warn("Compression disabled", "error", err)
		return h
	}
	return wrapper(h)
}

func (app *application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		app.logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

var templateParam = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)?$`)

// templateName picks the template of a request: the action when it names
// a template (plugin.template included), else the task.
func templateName(req *templating.Request) string {
	if req.Action != "" && templateParam.MatchString(req.Action) {
		return req.Action
	}
	return req.Task
}

// pageHandler renders the template of the requested task and action.
func (app *application) pageHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := app.session(w, r)
	if err != nil {
		app.logger.Error("Failed to load session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req := templating.NewRequest(r, sess, nosurf.Token(r))
	out := app.engine.NewOutput(req)
	name := templateName(req)

	var buf bytes.Buffer
	status := http.StatusOK
	if err := out.Send(&buf, name); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, model.ErrAbort):
			app.logger.Debug("Page output aborted", "template", name)
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			app.logger.Error("Failed to render page", "template", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	for k, v := range out.Headers() {
		w.Header()[k] = v
	}
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		app.logger.Warn("Failed to write page", "template", name, "error", err)
	}
}

// session returns the session of the request. A new session is started
// when the request carries no cookie or an id the server did not issue.
func (app *application) session(w http.ResponseWriter, r *http.Request) (session.Store, error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		sess, ok, err := app.sessions.Session(c.Value)
		if err != nil {
			return nil, err
		}
		if ok {
			return sess, nil
		}
		app.logger.Debug("Unknown or expired session id, starting a new session")
	}

	id, sess, err := app.sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (app *application) csrfFailureHandler(w http.ResponseWriter, r *http.Request) {
	app.logger.Warn("Request token check failed", "path", r.URL.Path, "reason", nosurf.Reason(r))
	http.Error(w, "Invalid request token", http.StatusBadRequest)
}
