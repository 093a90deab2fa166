package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/TimurManjosov/abconsole/internal/model"
)

// envelope is the wrapper some endpoints put around their payload.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrap returns the payload of body: the "data" field when body is an object
// carrying a non-null one, the body itself otherwise.
func unwrap(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return trimmed
	}
	return env.Data
}

// decodeEnvelope decodes the unwrapped payload of body into T.
func decodeEnvelope[T any](body []byte) (T, error) {
	var out T
	payload := unwrap(body)
	if len(payload) == 0 {
		return out, fmt.Errorf("failed to decode response: empty body")
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// decodeList decodes a list endpoint. A bare JSON array is accepted as well as
// the paginated envelope; a missing data field yields an empty list.
func decodeList[T any](body []byte) (model.ListResponse[T], error) {
	var out model.ListResponse[T]
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out.Data); err != nil {
			return out, fmt.Errorf("failed to decode response: %w", err)
		}
		out.Total = len(out.Data)
		return out, nil
	}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return out, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if out.Data == nil {
		out.Data = []T{}
	}
	return out, nil
}
