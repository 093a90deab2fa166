package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/abconsole/internal/loader"
	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/stats"
)

// formVariantRows is the number of variant rows offered on an empty form.
const formVariantRows = 3

type listView struct {
	Experiments []model.Experiment
	Err         string
}

type detailView struct {
	ID          string
	Experiment  *model.Experiment
	Analysis    *stats.Result
	Totals      model.StatsTotals
	Leading     int
	LeadingName string
	Err         string
}

type variantRow struct {
	Key    string
	Name   string
	Weight string
}

type createView struct {
	Name        string
	Description string
	StartDate   string
	EndDate     string
	Variants    []variantRow
	Err         string
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	st := loader.NewExperimentsLoader(s.api).Fetch(r.Context())
	s.render(w, r, http.StatusOK, "list", listView{Experiments: st.Data, Err: st.Err})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := loader.NewExperimentDetailLoader(s.api).SetKey(r.Context(), id)

	view := detailView{ID: id, Experiment: st.Data.Experiment, Err: st.Err}
	if st.Data.Stats != nil {
		res := stats.Analyze(st.Data.Stats)
		view.Analysis = res
		view.Totals = st.Data.Stats.Totals
		view.Leading = res.LeadingVariant
		if len(res.Variants) > 0 {
			view.LeadingName = res.Variants[res.LeadingVariant].Name
		}
	}
	s.render(w, r, http.StatusOK, "detail", view)
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	view := createView{Variants: make([]variantRow, formVariantRows)}
	view.Variants[0] = variantRow{Key: "control", Name: "Control"}
	view.Variants[1] = variantRow{Key: "treatment", Name: "Treatment"}
	s.render(w, r, http.StatusOK, "create", view)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "create", createView{Err: "invalid form"})
		return
	}

	view := formView(r.PostForm)
	payload, err := parseCreateForm(r.PostForm)
	if err != nil {
		view.Err = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, "create", view)
		return
	}

	exp, err := s.api.CreateExperiment(r.Context(), payload)
	if err != nil {
		s.log.Warn().Err(err).Str("name", payload.Name).Msg("create experiment failed")
		view.Err = err.Error()
		s.render(w, r, http.StatusBadGateway, "create", view)
		return
	}

	s.log.Info().Str("id", exp.ID).Str("name", exp.Name).Msg("experiment created")
	http.Redirect(w, r, "/experiments/"+url.PathEscape(exp.ID), http.StatusSeeOther)
}

// formView echoes submitted values back into the form.
func formView(form url.Values) createView {
	view := createView{
		Name:        form.Get("name"),
		Description: form.Get("description"),
		StartDate:   form.Get("start_date"),
		EndDate:     form.Get("end_date"),
	}
	keys, names, weights := form["variant_key"], form["variant_name"], form["variant_weight"]
	for i := range keys {
		row := variantRow{Key: keys[i]}
		if i < len(names) {
			row.Name = names[i]
		}
		if i < len(weights) {
			row.Weight = weights[i]
		}
		view.Variants = append(view.Variants, row)
	}
	for len(view.Variants) < formVariantRows {
		view.Variants = append(view.Variants, variantRow{})
	}
	return view
}

// parseCreateForm builds a create payload from the submitted form. Rows
// without a key are ignored; a row without a name is named after its key.
func parseCreateForm(form url.Values) (model.CreateExperimentPayload, error) {
	payload := model.CreateExperimentPayload{
		Name:        strings.TrimSpace(form.Get("name")),
		Description: strings.TrimSpace(form.Get("description")),
	}
	if payload.Name == "" {
		return payload, errors.New("name is required")
	}

	keys, names, weights := form["variant_key"], form["variant_name"], form["variant_weight"]
	for i, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		v := model.CreateVariantPayload{Key: key, Name: key}
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			v.Name = strings.TrimSpace(names[i])
		}
		if i < len(weights) && strings.TrimSpace(weights[i]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(weights[i]))
			if err != nil || n < 0 || n > 100 {
				return payload, fmt.Errorf("weight of variant %q must be a number between 0 and 100", key)
			}
			v.Weight = &n
		}
		payload.Variants = append(payload.Variants, v)
	}
	if len(payload.Variants) == 0 {
		return payload, errors.New("at least one variant is required")
	}

	var err error
	if payload.StartDate, err = parseFormDate(form.Get("start_date")); err != nil {
		return payload, fmt.Errorf("start date: %w", err)
	}
	if payload.EndDate, err = parseFormDate(form.Get("end_date")); err != nil {
		return payload, fmt.Errorf("end date: %w", err)
	}
	if payload.StartDate != nil && payload.EndDate != nil && payload.EndDate.Before(*payload.StartDate) {
		return payload, errors.New("end date must not be before start date")
	}
	return payload, nil
}

func parseFormDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.New("expected YYYY-MM-DD")
	}
	t = t.UTC()
	return &t, nil
}
