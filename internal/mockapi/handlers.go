package mockapi

import (
	"net/http"
	"strconv"

	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/rollout"
	"github.com/TimurManjosov/abconsole/internal/validation"
	"github.com/go-chi/chi/v5"
)

// ---- experiments ----

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	exps, err := s.store.ListExperiments(r.Context())
	if err != nil {
		s.storeError(w, r, err, "experiments")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse[model.Experiment]{
		Data:  exps,
		Total: len(exps),
		Page:  1,
		Limit: len(exps),
	})
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.store.GetExperiment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.respond(w, http.StatusOK, exp)
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req model.CreateExperimentPayload
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	if result := validation.ValidateCreateExperiment(req); !result.Valid {
		validationError(w, r, "invalid experiment", result.Errors)
		return
	}

	exp, err := s.store.CreateExperiment(r.Context(), req)
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.opts.Logger.Info().Str("id", exp.ID).Str("name", exp.Name).Msg("experiment created")
	s.respond(w, http.StatusCreated, exp)
}

func (s *Server) handleUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateExperimentPayload
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if result := validation.ValidateUpdateExperiment(req); !result.Valid {
		validationError(w, r, "invalid experiment", result.Errors)
		return
	}

	exp, err := s.store.UpdateExperiment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.respond(w, http.StatusOK, exp)
}

func (s *Server) handleDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExperiment(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.respond(w, http.StatusOK, st)
}

// ---- events ----

func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	var req model.TrackEventPayload
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	if result := validation.ValidateEvent(req); !result.Valid {
		validationError(w, r, "invalid event", result.Errors)
		return
	}

	ev, err := s.store.InsertEvent(r.Context(), req)
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.respond(w, http.StatusCreated, ev)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := model.EventsListParams{
		ExperimentID: q.Get("experimentId"),
		VariantKey:   q.Get("variantKey"),
		EventType:    q.Get("eventType"),
		UserID:       q.Get("userId"),
		StartDate:    q.Get("startDate"),
		EndDate:      q.Get("endDate"),
	}
	// legacy filter name
	if params.VariantKey == "" {
		params.VariantKey = q.Get("variantId")
	}
	var err error
	if v := q.Get("page"); v != "" {
		if params.Page, err = strconv.Atoi(v); err != nil {
			badRequest(w, r, ErrCodeBadRequest, "page must be an integer")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil {
			badRequest(w, r, ErrCodeBadRequest, "limit must be an integer")
			return
		}
	}

	events, total, err := s.store.ListEvents(r.Context(), params)
	if err != nil {
		s.storeError(w, r, err, "events")
		return
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	writeJSON(w, http.StatusOK, model.ListResponse[model.Event]{
		Data:  events,
		Total: total,
		Page:  page,
		Limit: params.Limit,
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err, "event")
		return
	}
	s.respond(w, http.StatusOK, ev)
}

// ---- assignments ----

func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAssignment(r.Context(), chi.URLParam(r, "experimentId"), chi.URLParam(r, "userId"))
	if err != nil {
		s.storeError(w, r, err, "assignment")
		return
	}
	s.respond(w, http.StatusOK, a)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	experimentID := chi.URLParam(r, "experimentId")
	userID := chi.URLParam(r, "userId")

	if existing, err := s.store.GetAssignment(ctx, experimentID, userID); err == nil {
		s.respond(w, http.StatusOK, existing)
		return
	}

	exp, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}

	key, err := rollout.PickVariant(userID, exp.ID, exp.Variants, s.opts.Salt)
	if err != nil {
		validationError(w, r, "cannot assign variant", map[string]string{"variants": err.Error()})
		return
	}

	a, err := s.store.SaveAssignment(ctx, model.Assignment{
		ExperimentID: exp.ID,
		UserID:       userID,
		VariantKey:   key,
	})
	if err != nil {
		s.storeError(w, r, err, "experiment")
		return
	}
	s.respond(w, http.StatusCreated, a)
}
