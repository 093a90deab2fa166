// Package web serves the experiments dashboard: a list page, a detail page
// with live metrics and a create form, all rendered from loader state.
package web

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/abconsole/internal/loader"
	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/telemetry"
)

// DefaultStreamInterval is how often the metrics stream refetches stats.
const DefaultStreamInterval = 5 * time.Second

// API is the part of the backend client the dashboard uses.
type API interface {
	loader.ExperimentsAPI
	CreateExperiment(ctx context.Context, payload model.CreateExperimentPayload) (*model.Experiment, error)
}

// Options configures the dashboard.
type Options struct {
	Logger         zerolog.Logger
	RateLimitPerIP int // requests per minute, 0 disables the limit
	StreamInterval time.Duration
}

type Server struct {
	api   API
	log   zerolog.Logger
	opts  Options
	pages map[string]*template.Template
}

// NewServer parses the page templates and returns a dashboard server.
func NewServer(api API, opts Options) (*Server, error) {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = DefaultStreamInterval
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{api: api, log: opts.Logger, opts: opts, pages: pages}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(telemetry.Middleware)
	if s.opts.RateLimitPerIP > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimitPerIP, time.Minute))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handlers := map[string]http.HandlerFunc{
		"experiments":       s.handleList,
		"experiment-detail": s.handleDetail,
		"experiment-create": s.handleCreateForm,
	}
	for _, rt := range Routes {
		r.With(TitleGuard(rt.Title)).Get(rt.Pattern, handlers[rt.Name])
	}

	create, _ := RouteByName("experiment-create")
	r.With(TitleGuard(create.Title)).Post(create.Pattern, s.handleCreate)
	r.Get("/experiments/{id}/stream", s.handleStream)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		req = req.WithContext(context.WithValue(req.Context(), titleKey{}, PageTitle("")))
		s.render(w, req, http.StatusNotFound, "notfound", nil)
	})

	return r
}

// requestLogger writes one zerolog line per request once it has completed.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
