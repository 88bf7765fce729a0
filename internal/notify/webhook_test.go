package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{"success", colorSuccess},
		{"safe", colorSuccess},
		{"UNSAFE", colorFailure},
		{"failed", colorFailure},
		{"running", colorRunning},
		{"cancelled", colorStopped},
		{"something-else", colorDefault},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, statusColor(tt.status))
		})
	}
}

func newTestWebhook(t *testing.T, handler http.HandlerFunc) *Webhook {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewWebhook(srv.URL, 5*time.Second, slog.New(slog.DiscardHandler))
}

func TestSendFlaggedReport(t *testing.T) {
	var got webhookPayload
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := wh.SendFlaggedReport(context.Background(), "g1", "c1", "u1", "bad message", []string{"hate", "harassment"})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Message Flagged: Unsafe", embed.Title)
	assert.Equal(t, "bad message", embed.Description)
	assert.Equal(t, colorFailure, embed.Color)
	assert.NotEmpty(t, embed.Timestamp)

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "Guild", embed.Fields[0].Name)
	assert.Equal(t, "g1", embed.Fields[0].Value)
	assert.Equal(t, "Categories", embed.Fields[3].Name)
	assert.Equal(t, "hate, harassment", embed.Fields[3].Value)
}

func TestSendFlaggedReport_TruncatesContent(t *testing.T) {
	var got webhookPayload
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := wh.SendFlaggedReport(context.Background(), "g1", "c1", "u1", strings.Repeat("x", 1500), nil)
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Len(t, got.Embeds[0].Description, 1003)
	assert.True(t, strings.HasSuffix(got.Embeds[0].Description, "..."))
}

func TestSendFlaggedReport_TruncationKeepsValidUTF8(t *testing.T) {
	var got webhookPayload
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	// 1500 two-byte runes; a byte-index cut at 1000 would land mid-rune
	err := wh.SendFlaggedReport(context.Background(), "g1", "c1", "u1", strings.Repeat("ü", 1500), nil)
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	desc := got.Embeds[0].Description
	assert.True(t, utf8.ValidString(desc))
	assert.Equal(t, strings.Repeat("ü", 1000)+"...", desc)
}

func TestSendReply(t *testing.T) {
	var got webhookPayload
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := wh.SendReply(context.Background(), "g1", "c1", "hello there")
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Reply Posted", got.Embeds[0].Title)
	assert.Equal(t, colorSuccess, got.Embeds[0].Color)
}

func TestSend_DisabledWebhookIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	wh := NewWebhook("", 5*time.Second, slog.New(slog.DiscardHandler))
	assert.False(t, wh.Enabled())

	err := wh.SendReply(context.Background(), "g1", "c1", "hi")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSend_NotFoundIsSwallowed(t *testing.T) {
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	})

	err := wh.SendReply(context.Background(), "g1", "c1", "hi")
	require.NoError(t, err)
}

func TestSend_ServerErrorIsReported(t *testing.T) {
	wh := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := wh.SendReply(context.Background(), "g1", "c1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
