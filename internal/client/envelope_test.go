package client

import (
	"testing"

	"github.com/TimurManjosov/abconsole/internal/model"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "enveloped", body: `{"data":{"id":"1"}}`, want: `{"id":"1"}`},
		{name: "raw object", body: `{"id":"1"}`, want: `{"id":"1"}`},
		{name: "null data", body: `{"data":null,"id":"1"}`, want: `{"data":null,"id":"1"}`},
		{name: "array", body: ` [1,2] `, want: `[1,2]`},
		{name: "empty", body: ``, want: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(unwrap([]byte(tt.body))); got != tt.want {
				t.Errorf("unwrap(%s) = %s, want %s", tt.body, got, tt.want)
			}
		})
	}
}

func TestDecodeEnvelope_EmptyBody(t *testing.T) {
	if _, err := decodeEnvelope[model.Experiment](nil); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantTotal int
	}{
		{name: "envelope", body: `{"data":[{"id":"1"},{"id":"2"}],"total":7,"page":1,"limit":2}`, wantLen: 2, wantTotal: 7},
		{name: "bare array", body: `[{"id":"1"}]`, wantLen: 1, wantTotal: 1},
		{name: "missing data", body: `{"total":0}`, wantLen: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeList[model.Experiment]([]byte(tt.body))
			if err != nil {
				t.Fatalf("decodeList failed: %v", err)
			}
			if got.Data == nil {
				t.Fatal("Expected non-nil slice")
			}
			if len(got.Data) != tt.wantLen || got.Total != tt.wantTotal {
				t.Errorf("Expected %d items / total %d, got %d / %d", tt.wantLen, tt.wantTotal, len(got.Data), got.Total)
			}
		})
	}
}
