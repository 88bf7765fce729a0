package worker

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildest/guildest/internal/llm"
	"github.com/guildest/guildest/internal/taskqueue"
)

func TestPayloadString(t *testing.T) {
	payload := map[string]any{
		"present": "value",
		"number":  float64(7),
		"null":    nil,
	}

	assert.Equal(t, "value", payloadString(payload, "present"))
	assert.Empty(t, payloadString(payload, "number"))
	assert.Empty(t, payloadString(payload, "null"))
	assert.Empty(t, payloadString(payload, "absent"))
}

func TestPayloadStringList(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    []string
	}{
		{
			name:    "string ids",
			payload: map[string]any{"active_user_ids": []any{"100", "200"}},
			want:    []string{"100", "200"},
		},
		{
			name:    "numeric ids from json decoding",
			payload: map[string]any{"active_user_ids": []any{float64(100), "200", nil}},
			want:    []string{"100", "200"},
		},
		{
			name:    "missing field",
			payload: map[string]any{},
			want:    nil,
		},
		{
			name:    "wrong type",
			payload: map[string]any{"active_user_ids": "nope"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payloadStringList(tt.payload, "active_user_ids")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadContext(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    []llm.ContextMessage
	}{
		{
			name: "well-formed entries",
			payload: map[string]any{
				"channel_context": []any{
					map[string]any{"username": "alice", "content": "hi"},
					map[string]any{"username": "bob", "content": "hello"},
				},
			},
			want: []llm.ContextMessage{
				{Username: "alice", Content: "hi"},
				{Username: "bob", Content: "hello"},
			},
		},
		{
			name: "entries without content are dropped",
			payload: map[string]any{
				"channel_context": []any{
					map[string]any{"username": "alice"},
					map[string]any{"username": "bob", "content": "hello"},
					"not-an-object",
				},
			},
			want: []llm.ContextMessage{
				{Username: "bob", Content: "hello"},
			},
		},
		{
			name:    "missing field",
			payload: map[string]any{},
			want:    nil,
		},
		{
			name:    "wrong type",
			payload: map[string]any{"channel_context": "nope"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payloadContext(tt.payload)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafetyScanHandler_EmptyContent(t *testing.T) {
	// no upstream call happens for empty content, so no client is needed
	handler := NewSafetyScanHandler(nil, slog.New(slog.DiscardHandler))

	fields, err := handler(context.Background(), &taskqueue.Task{
		JobID:   "j1",
		JobType: "safety_scan",
		Payload: map[string]any{},
	})
	require.NoError(t, err)

	verdict, ok := fields["verdict"]
	require.True(t, ok)
	assert.Nil(t, verdict)
}
