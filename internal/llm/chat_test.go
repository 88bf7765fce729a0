package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "short url untouched",
			in:   "see https://go.dev for docs",
			want: "see https://go.dev for docs",
		},
		{
			name: "long url truncated",
			in:   "read https://example.com/very/long/path/that/keeps/going/and/going",
			want: "read https://example.com/very/lon...",
		},
		{
			name: "no urls",
			in:   "plain text",
			want: "plain text",
		},
		{
			name: "long url with multibyte host cut on rune boundary",
			in:   "https://é.example/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			want: "https://é.example/aaaaaaaaaaaa...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateLinks(tt.in))
		})
	}
}

func TestGenerateReply(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse("  sure, happy to help!  "))
	})

	reply, err := client.GenerateReply(context.Background(), "how do I level up?", "alice", "gophers", []ContextMessage{
		{Username: "bob", Content: "anyone know the xp rules?"},
		{Username: "carol", Content: "check https://example.com/wiki/levels/and/progression/guide"},
	}, []string{"100", "200"})
	require.NoError(t, err)
	assert.Equal(t, "sure, happy to help!", reply)

	assert.Equal(t, "test-chat-model", gotReq.Model)
	assert.Equal(t, 512, gotReq.MaxTokens)
	assert.InDelta(t, 0.7, gotReq.Temperature, 0.001)

	require.Len(t, gotReq.Messages, 2)
	prompt := gotReq.Messages[1].Content
	assert.Contains(t, prompt, "Server: gophers")
	assert.Contains(t, prompt, "--- Recent chat in this channel ---")
	assert.Contains(t, prompt, "bob: anyone know the xp rules?")
	assert.Contains(t, prompt, "Now alice said: how do I level up?")
	// long links in the context are shortened
	assert.NotContains(t, prompt, "progression/guide")
	assert.Contains(t, prompt, "...")
	assert.Contains(t, prompt, "Active chatters (user ids): 100, 200")
}

func TestGenerateReply_NoContext(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse("hi"))
	})

	_, err := client.GenerateReply(context.Background(), "hello", "alice", "", nil, nil)
	require.NoError(t, err)

	prompt := gotReq.Messages[1].Content
	assert.Contains(t, prompt, "Server: unknown")
	assert.NotContains(t, prompt, "--- Recent chat in this channel ---")
	assert.NotContains(t, prompt, "Active chatters")
}

func TestGenerateReply_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.GenerateReply(context.Background(), "hello", "alice", "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGenerateReply_TruncatesLongContextMessages(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse("ok"))
	})

	long := strings.Repeat("a", 600)
	_, err := client.GenerateReply(context.Background(), "hi", "alice", "g", []ContextMessage{
		{Username: "bob", Content: long},
	}, nil)
	require.NoError(t, err)

	prompt := gotReq.Messages[1].Content
	assert.Contains(t, prompt, "bob: "+strings.Repeat("a", 500)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("a", 501))
}

func TestGenerateReply_TruncationKeepsValidUTF8(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse("ok"))
	})

	// 600 two-byte runes; a byte-index cut at 500 would land mid-rune
	long := strings.Repeat("é", 600)
	_, err := client.GenerateReply(context.Background(), "hi", "alice", "g", []ContextMessage{
		{Username: "bob", Content: long},
	}, nil)
	require.NoError(t, err)

	prompt := gotReq.Messages[1].Content
	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, "bob: "+strings.Repeat("é", 500)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("é", 501))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short string untouched", in: "hello", max: 10, want: "hello"},
		{name: "ascii cut", in: "hello", max: 3, want: "hel"},
		{name: "multibyte cut on rune boundary", in: "日本語テスト", max: 3, want: "日本語"},
		{name: "exact length untouched", in: "héllo", max: 5, want: "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
