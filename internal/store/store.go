// Package store holds the in-memory state behind the local mock backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TimurManjosov/abconsole/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFilter is returned when a list filter cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
)

// dateOnly is the layout accepted besides RFC 3339 in event time filters.
const dateOnly = "2006-01-02"

// ParseEventTime parses an event time filter given as RFC 3339 or YYYY-MM-DD.
// A bare date used as an upper bound covers the whole day.
func ParseEventTime(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC 3339 or YYYY-MM-DD", ErrInvalidFilter, s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// Store defines the persistence operations of the mock backend.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListExperiments returns all experiments ordered by creation time.
	ListExperiments(ctx context.Context) ([]model.Experiment, error)

	// GetExperiment returns ErrNotFound if id is unknown.
	GetExperiment(ctx context.Context, id string) (*model.Experiment, error)

	// CreateExperiment stores a new draft experiment with generated ids.
	CreateExperiment(ctx context.Context, params model.CreateExperimentPayload) (*model.Experiment, error)

	// UpdateExperiment applies the non-nil fields of params.
	UpdateExperiment(ctx context.Context, id string, params model.UpdateExperimentPayload) (*model.Experiment, error)

	// DeleteExperiment removes the experiment with its events and assignments.
	DeleteExperiment(ctx context.Context, id string) error

	// InsertEvent records an event against an existing experiment.
	InsertEvent(ctx context.Context, params model.TrackEventPayload) (*model.Event, error)

	// ListEvents returns one page of matching events and the total match count.
	ListEvents(ctx context.Context, params model.EventsListParams) ([]model.Event, int, error)

	// GetEvent returns ErrNotFound if id is unknown.
	GetEvent(ctx context.Context, id string) (*model.Event, error)

	// GetAssignment returns ErrNotFound when the user has not been assigned.
	GetAssignment(ctx context.Context, experimentID, userID string) (*model.Assignment, error)

	// SaveAssignment stores a if the user has no assignment yet and returns
	// the assignment in effect.
	SaveAssignment(ctx context.Context, a model.Assignment) (*model.Assignment, error)

	// Stats aggregates view, click and conversion events per variant.
	Stats(ctx context.Context, experimentID string) (*model.ExperimentStats, error)

	// Close releases any resources held by the store.
	Close() error
}

// Event types counted by Stats.
const (
	EventView       = "view"
	EventClick      = "click"
	EventConversion = "conversion"
)
