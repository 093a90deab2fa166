// Package model defines the experiment, event and assignment records exchanged
// with the experiments backend.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an experiment. Transitions are enforced by the backend.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("invalid status %q (want draft, active, paused or completed)", s)
	}
}

// Variant is one arm of an experiment.
type Variant struct {
	ID     string         `json:"id"`
	Key    string         `json:"key,omitempty"`
	Name   string         `json:"name"`
	Weight *int           `json:"weight,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Experiment represents an A/B test as returned by the backend.
type Experiment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Variants    []Variant  `json:"variants"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateVariantPayload describes a variant in a create request.
type CreateVariantPayload struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Weight *int   `json:"weight,omitempty"`
}

// CreateExperimentPayload is the body of POST /experiments.
type CreateExperimentPayload struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Variants    []CreateVariantPayload `json:"variants"`
	StartDate   *time.Time             `json:"startDate,omitempty"`
	EndDate     *time.Time             `json:"endDate,omitempty"`
}

// UpdateExperimentPayload is the body of PATCH /experiments/:id. Nil fields are left untouched.
type UpdateExperimentPayload struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Variants    []Variant  `json:"variants,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// Event is a tracked interaction with an experiment variant.
//
// Variants are identified by key. Older backends sent a variantId field instead;
// UnmarshalJSON accepts it as a fallback.
type Event struct {
	ID           string         `json:"id"`
	ExperimentID string         `json:"experimentId"`
	VariantKey   string         `json:"variantKey"`
	EventType    string         `json:"eventType"`
	UserID       string         `json:"userId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// UnmarshalJSON decodes an event, mapping the legacy variantId field onto VariantKey.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var aux struct {
		plain
		LegacyVariantID string `json:"variantId"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = Event(aux.plain)
	if e.VariantKey == "" {
		e.VariantKey = aux.LegacyVariantID
	}
	return nil
}

// TrackEventPayload is the body of POST /events.
type TrackEventPayload struct {
	ExperimentID string         `json:"experimentId"`
	VariantKey   string         `json:"variantKey"`
	EventType    string         `json:"eventType"`
	UserID       string         `json:"userId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// EventsListParams filters GET /events. Zero values are not sent.
type EventsListParams struct {
	ExperimentID string
	VariantKey   string
	EventType    string
	UserID       string
	StartDate    string
	EndDate      string
	Page         int
	Limit        int
}

// Assignment maps a user to a variant of an experiment.
type Assignment struct {
	ExperimentID string    `json:"experimentId"`
	UserID       string    `json:"userId"`
	VariantKey   string    `json:"variantKey"`
	AssignedAt   time.Time `json:"assignedAt"`
}

// ListResponse is the paginated envelope returned by list endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
