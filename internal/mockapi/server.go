// Package mockapi is an in-memory implementation of the experiments backend.
// It serves the same HTTP surface the client consumes and is used by tests and
// by the mock-server command for local development.
package mockapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/TimurManjosov/abconsole/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options configures a Server.
type Options struct {
	// Token, when set, is the only bearer token accepted. Others get 401.
	Token string
	// Salt seeds deterministic variant assignment.
	Salt string
	// RawResponses disables the {"data": ...} envelope on single-record responses.
	RawResponses bool
	Logger       zerolog.Logger
}

type Server struct {
	store store.Store
	opts  Options
}

func NewServer(st store.Store, opts Options) *Server {
	return &Server{store: st, opts: opts}
}

// Store returns the backing store, mainly for seeding in tests.
func (s *Server) Store() store.Store {
	return s.store
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Route("/experiments", func(r chi.Router) {
			r.Get("/", s.handleListExperiments)
			r.Post("/", s.handleCreateExperiment)
			r.Get("/{id}", s.handleGetExperiment)
			r.Patch("/{id}", s.handleUpdateExperiment)
			r.Delete("/{id}", s.handleDeleteExperiment)
			r.Get("/{id}/stats", s.handleStats)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleTrackEvent)
			r.Get("/{id}", s.handleGetEvent)
		})

		r.Get("/assignments/{experimentId}/users/{userId}", s.handleGetAssignment)
		r.Post("/assignments/{experimentId}/users/{userId}", s.handleAssign)
	})

	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			unauthorized(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.Token)) != 1 {
			unauthorized(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respond writes a single record, wrapped in the data envelope unless disabled.
func (s *Server) respond(w http.ResponseWriter, code int, v any) {
	if s.opts.RawResponses {
		writeJSON(w, code, v)
		return
	}
	writeJSON(w, code, map[string]any{"data": v})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// storeError maps store failures to responses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, r, what+" not found")
		return
	}
	if errors.Is(err, store.ErrInvalidFilter) {
		badRequest(w, r, ErrCodeBadRequest, err.Error())
		return
	}
	s.opts.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("store operation failed")
	internalError(w, r, "store operation failed")
}
