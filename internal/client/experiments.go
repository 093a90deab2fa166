package client

import (
	"context"
	"net/http"

	"github.com/TimurManjosov/abconsole/internal/model"
)

const experimentsEndpoint = "/experiments"

// ListExperiments returns all experiments. A response without data yields an empty list.
func (c *Client) ListExperiments(ctx context.Context) ([]model.Experiment, error) {
	body, err := c.do(ctx, http.MethodGet, experimentsEndpoint, experimentsEndpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeList[model.Experiment](body)
	if err != nil {
		return nil, err
	}
	return list.Data, nil
}

// GetExperiment retrieves a single experiment by id.
func (c *Client) GetExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	body, err := c.do(ctx, http.MethodGet, experimentsEndpoint+"/:id", experimentsEndpoint+"/"+escapeID(id), nil, nil)
	if err != nil {
		return nil, err
	}
	exp, err := decodeEnvelope[model.Experiment](body)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// CreateExperiment creates an experiment and returns it with its generated id.
func (c *Client) CreateExperiment(ctx context.Context, payload model.CreateExperimentPayload) (*model.Experiment, error) {
	body, err := c.do(ctx, http.MethodPost, experimentsEndpoint, experimentsEndpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	exp, err := decodeEnvelope[model.Experiment](body)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// UpdateExperiment patches an experiment. Status transitions are validated by the backend.
func (c *Client) UpdateExperiment(ctx context.Context, id string, payload model.UpdateExperimentPayload) (*model.Experiment, error) {
	body, err := c.do(ctx, http.MethodPatch, experimentsEndpoint+"/:id", experimentsEndpoint+"/"+escapeID(id), nil, payload)
	if err != nil {
		return nil, err
	}
	exp, err := decodeEnvelope[model.Experiment](body)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// DeleteExperiment deletes an experiment.
func (c *Client) DeleteExperiment(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, experimentsEndpoint+"/:id", experimentsEndpoint+"/"+escapeID(id), nil, nil)
	return err
}

// GetExperimentStats retrieves per-variant counts. Conversion rates are
// recomputed as conversions/views.
func (c *Client) GetExperimentStats(ctx context.Context, id string) (*model.ExperimentStats, error) {
	body, err := c.do(ctx, http.MethodGet, experimentsEndpoint+"/:id/stats", experimentsEndpoint+"/"+escapeID(id)+"/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	st, err := decodeEnvelope[model.ExperimentStats](body)
	if err != nil {
		return nil, err
	}
	if st.ExperimentID == "" {
		st.ExperimentID = id
	}
	st.Normalize()
	return &st, nil
}
