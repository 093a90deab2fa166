package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses maps for storage and RWMutex for thread-safe concurrent access.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments map[string]model.Experiment
	events      []model.Event
	assignments map[string]model.Assignment // experimentID + "/" + userID
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		experiments: make(map[string]model.Experiment),
		assignments: make(map[string]model.Assignment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func assignmentKey(experimentID, userID string) string {
	return experimentID + "/" + userID
}

func (m *MemoryStore) ListExperiments(ctx context.Context) ([]model.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.Experiment, 0, len(m.experiments))
	for _, e := range m.experiments {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) GetExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) CreateExperiment(ctx context.Context, params model.CreateExperimentPayload) (*model.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	variants := make([]model.Variant, len(params.Variants))
	for i, v := range params.Variants {
		variants[i] = model.Variant{
			ID:     uuid.NewString(),
			Key:    v.Key,
			Name:   v.Name,
			Weight: v.Weight,
		}
	}

	e := model.Experiment{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Description: params.Description,
		Status:      model.StatusDraft,
		Variants:    variants,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.experiments[e.ID] = e
	return &e, nil
}

func (m *MemoryStore) UpdateExperiment(ctx context.Context, id string, params model.UpdateExperimentPayload) (*model.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}

	if params.Name != nil {
		e.Name = *params.Name
	}
	if params.Description != nil {
		e.Description = *params.Description
	}
	if params.Status != nil {
		e.Status = *params.Status
	}
	if params.Variants != nil {
		e.Variants = params.Variants
		for i := range e.Variants {
			if e.Variants[i].ID == "" {
				e.Variants[i].ID = uuid.NewString()
			}
		}
	}
	if params.StartDate != nil {
		e.StartDate = params.StartDate
	}
	if params.EndDate != nil {
		e.EndDate = params.EndDate
	}
	e.UpdatedAt = m.now()

	m.experiments[id] = e
	return &e, nil
}

func (m *MemoryStore) DeleteExperiment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[id]; !ok {
		return ErrNotFound
	}
	delete(m.experiments, id)

	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.ExperimentID != id {
			kept = append(kept, ev)
		}
	}
	m.events = kept

	for k, a := range m.assignments {
		if a.ExperimentID == id {
			delete(m.assignments, k)
		}
	}
	return nil
}

func (m *MemoryStore) InsertEvent(ctx context.Context, params model.TrackEventPayload) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[params.ExperimentID]; !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	ev := model.Event{
		ID:           uuid.NewString(),
		ExperimentID: params.ExperimentID,
		VariantKey:   params.VariantKey,
		EventType:    params.EventType,
		UserID:       params.UserID,
		SessionID:    params.SessionID,
		Metadata:     params.Metadata,
		Timestamp:    now,
		CreatedAt:    now,
	}
	m.events = append(m.events, ev)
	return &ev, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, p model.EventsListParams) ([]model.Event, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var start, end time.Time
	var err error
	if p.StartDate != "" {
		if start, err = ParseEventTime(p.StartDate, false); err != nil {
			return nil, 0, fmt.Errorf("startDate: %w", err)
		}
	}
	if p.EndDate != "" {
		if end, err = ParseEventTime(p.EndDate, true); err != nil {
			return nil, 0, fmt.Errorf("endDate: %w", err)
		}
	}

	matched := make([]model.Event, 0)
	for _, ev := range m.events {
		switch {
		case p.ExperimentID != "" && ev.ExperimentID != p.ExperimentID,
			p.VariantKey != "" && ev.VariantKey != p.VariantKey,
			p.EventType != "" && ev.EventType != p.EventType,
			p.UserID != "" && ev.UserID != p.UserID,
			!start.IsZero() && ev.Timestamp.Before(start),
			!end.IsZero() && ev.Timestamp.After(end):
			continue
		}
		matched = append(matched, ev)
	}

	total := len(matched)
	page, limit := p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return matched, total, nil
	}
	from := (page - 1) * limit
	if from >= total {
		return []model.Event{}, total, nil
	}
	to := from + limit
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}

func (m *MemoryStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ev := range m.events {
		if ev.ID == id {
			ev := ev
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetAssignment(ctx context.Context, experimentID, userID string) (*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assignments[assignmentKey(experimentID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) SaveAssignment(ctx context.Context, a model.Assignment) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[a.ExperimentID]; !ok {
		return nil, ErrNotFound
	}

	key := assignmentKey(a.ExperimentID, a.UserID)
	if existing, ok := m.assignments[key]; ok {
		return &existing, nil
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = m.now()
	}
	m.assignments[key] = a
	return &a, nil
}

func (m *MemoryStore) Stats(ctx context.Context, experimentID string) (*model.ExperimentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.experiments[experimentID]
	if !ok {
		return nil, ErrNotFound
	}

	byKey := make(map[string]*model.VariantStats, len(e.Variants))
	st := &model.ExperimentStats{
		ExperimentID:   e.ID,
		ExperimentName: e.Name,
		Variants:       make([]model.VariantStats, len(e.Variants)),
	}
	for i, v := range e.Variants {
		st.Variants[i] = model.VariantStats{VariantKey: v.Key, VariantName: v.Name}
		byKey[v.Key] = &st.Variants[i]
	}

	for _, ev := range m.events {
		if ev.ExperimentID != experimentID {
			continue
		}
		vs, ok := byKey[ev.VariantKey]
		if !ok {
			continue
		}
		switch ev.EventType {
		case EventView:
			vs.Views++
		case EventClick:
			vs.Clicks++
		case EventConversion:
			vs.Conversions++
		}
	}

	st.Normalize()
	return st, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
