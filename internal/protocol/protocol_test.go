package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessEnvelopeShape(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	res := Success("r1", "echo.v1", map[string]any{"echoed": "hi"}, 1500*time.Millisecond, at)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "r1", decoded["requestId"])
	assert.NotContains(t, decoded, "error")

	meta := decoded["metadata"].(map[string]any)
	assert.Equal(t, "success", meta["status"])
	assert.Equal(t, float64(1500), meta["durationMs"])
	assert.Equal(t, "2026-01-02T03:04:05.006Z", meta["timestamp"])
	assert.False(t, res.IsError())
}

func TestFailureEnvelopeShape(t *testing.T) {
	res := Failure("r2", "nope", NewFault(CodeToolNotFound, "Unknown tool", nil), time.Now())

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "output")

	meta := decoded["metadata"].(map[string]any)
	assert.Equal(t, "error", meta["status"])
	assert.NotContains(t, meta, "durationMs")

	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "ToolNotFound", errObj["code"])
	assert.True(t, res.IsError())
}

func TestFaultUnwrapAndAs(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("embed chunk 3: %w", ProviderFault("ollama", cause))

	f, ok := AsFault(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeProviderFault, f.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotContains(t, f.Message, "connection refused")

	_, ok = AsFault(cause)
	assert.False(t, ok)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeValidation:     http.StatusBadRequest,
		CodeToolNotFound:   http.StatusNotFound,
		CodeProviderFault:  http.StatusBadGateway,
		CodeOutputContract: http.StatusInternalServerError,
		CodeStorageFault:   http.StatusInternalServerError,
		CodeHandlerFault:   http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), string(code))
	}
}

func TestTypedBindsInput(t *testing.T) {
	type in struct {
		Text  string `json:"text"`
		Count int    `json:"count"`
	}
	h := Typed(func(_ context.Context, v in) (map[string]any, error) {
		return map[string]any{"text": v.Text, "count": v.Count}, nil
	})

	out, err := h(context.Background(), map[string]any{"text": "a", "count": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "a", "count": 2}, out)

	_, err = h(context.Background(), map[string]any{"count": "two"})
	f, ok := AsFault(err)
	require.True(t, ok)
	assert.Equal(t, CodeHandlerFault, f.Code)
}
