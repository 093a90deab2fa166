package client

import (
	"context"
	"net/http"

	"github.com/TimurManjosov/abconsole/internal/model"
)

const assignmentRoute = "/assignments/:experimentId/users/:userId"

func assignmentPath(experimentID, userID string) string {
	return "/assignments/" + escapeID(experimentID) + "/users/" + escapeID(userID)
}

// GetAssignment looks up the variant assigned to a user. It returns (nil, nil)
// when the backend has no assignment yet (404); every other failure is returned.
func (c *Client) GetAssignment(ctx context.Context, experimentID, userID string) (*model.Assignment, error) {
	body, err := c.do(ctx, http.MethodGet, assignmentRoute, assignmentPath(experimentID, userID), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	a, err := decodeEnvelope[model.Assignment](body)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Assign asks the backend to assign the user to a variant, returning the
// existing assignment if there already is one.
func (c *Client) Assign(ctx context.Context, experimentID, userID string) (*model.Assignment, error) {
	body, err := c.do(ctx, http.MethodPost, assignmentRoute, assignmentPath(experimentID, userID), nil, nil)
	if err != nil {
		return nil, err
	}
	a, err := decodeEnvelope[model.Assignment](body)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
