package api_response

import (
	"context"
	"testing"

	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_RequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), constants.APIFieldRequestID, "req-1")
	assert.Equal(t, "req-1", New[any](ctx).RequestID)

	_, err := uuid.Parse(New[any](context.Background()).RequestID)
	assert.NoError(t, err)
}

func TestPopulate(t *testing.T) {
	resp := New[any](context.Background()).Populate("OK", "OK", []string{"a"}, map[string]any{"source": "file"}, 1)
	assert.Equal(t, "OK", resp.Code)
	assert.Equal(t, []string{"a"}, resp.Data)
	assert.Equal(t, "file", resp.Meta["source"])
	assert.Equal(t, 1, resp.Count)

	resp = New[any](context.Background()).Populate("OK", "OK", nil, "plain", nil)
	assert.Equal(t, "plain", resp.Meta["meta"])
}

func TestPopulate_NilMetaOmitted(t *testing.T) {
	resp := New[any](context.Background()).Populate("OK", "OK", nil, map[string]any(nil), nil)
	assert.Nil(t, resp.Meta)

	resp = New[any](context.Background()).Populate("OK", "OK", nil, nil, "not-an-int")
	assert.Nil(t, resp.Meta)
	assert.Zero(t, resp.Count)
}
