package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TimurManjosov/abconsole/internal/model"
)

const eventsEndpoint = "/events"

// TrackEvent records one event.
func (c *Client) TrackEvent(ctx context.Context, payload model.TrackEventPayload) (*model.Event, error) {
	body, err := c.do(ctx, http.MethodPost, eventsEndpoint, eventsEndpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	ev, err := decodeEnvelope[model.Event](body)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListEvents returns one page of events matching params.
func (c *Client) ListEvents(ctx context.Context, params model.EventsListParams) (*model.ListResponse[model.Event], error) {
	body, err := c.do(ctx, http.MethodGet, eventsEndpoint, eventsEndpoint, eventsQuery(params), nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeList[model.Event](body)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// GetEvent retrieves a single event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	body, err := c.do(ctx, http.MethodGet, eventsEndpoint+"/:id", eventsEndpoint+"/"+escapeID(id), nil, nil)
	if err != nil {
		return nil, err
	}
	ev, err := decodeEnvelope[model.Event](body)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func eventsQuery(p model.EventsListParams) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("experimentId", p.ExperimentID)
	set("variantKey", p.VariantKey)
	// older backends only know this name
	set("variantId", p.VariantKey)
	set("eventType", p.EventType)
	set("userId", p.UserID)
	set("startDate", p.StartDate)
	set("endDate", p.EndDate)
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}
