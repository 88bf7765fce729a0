package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/guildest/guildest/internal/llm"
	"github.com/guildest/guildest/internal/observability"
	"github.com/guildest/guildest/internal/taskqueue"
)

// payloadString reads a string field from a task payload, tolerating
// absent or null values.
func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// payloadStringList reads a list of ids from a task payload, tolerating
// numeric entries the way chat platforms emit them.
func payloadStringList(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case string:
			if id != "" {
				out = append(out, id)
			}
		case float64:
			out = append(out, strconv.FormatFloat(id, 'f', -1, 64))
		}
	}
	return out
}

// payloadContext decodes the channel_context field: a list of
// {username, content} objects captured by the gateway.
func payloadContext(payload map[string]any) []llm.ContextMessage {
	raw, ok := payload["channel_context"].([]any)
	if !ok {
		return nil
	}

	msgs := make([]llm.ContextMessage, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		content, _ := m["content"].(string)
		if content == "" {
			continue
		}
		username, _ := m["username"].(string)
		msgs = append(msgs, llm.ContextMessage{Username: username, Content: content})
	}
	return msgs
}

// NewLLMReplyHandler builds the llm_reply handler: generate a chat reply
// to the prompt, grounded in the recent channel conversation.
func NewLLMReplyHandler(client *llm.Client, logger *slog.Logger) Handler {
	metrics := observability.Get()

	return func(ctx context.Context, task *taskqueue.Task) (map[string]any, error) {
		prompt := payloadString(task.Payload, "prompt")
		if prompt == "" {
			prompt = payloadString(task.Payload, "message")
		}

		username := payloadString(task.Payload, "username")
		if username == "" {
			username = "friend"
		}

		channelContext := payloadContext(task.Payload)
		activeUserIDs := payloadStringList(task.Payload, "active_user_ids")
		logger.Debug("Generating reply",
			slog.String("job_id", task.JobID),
			slog.Int("context_messages", len(channelContext)),
			slog.Int("active_users", len(activeUserIDs)),
		)

		reply, err := client.GenerateReply(ctx,
			prompt,
			username,
			payloadString(task.Payload, "guild_name"),
			channelContext,
			activeUserIDs,
		)
		if err != nil {
			metrics.CountLLMRequest(ctx, "chat", taskqueue.StatusError)
			return nil, fmt.Errorf("llm_reply: %w", err)
		}
		metrics.CountLLMRequest(ctx, "chat", taskqueue.StatusOK)

		return map[string]any{"reply": reply}, nil
	}
}

// NewSafetyScanHandler builds the safety_scan handler: classify message
// content with the guard model. Empty content short-circuits to a null
// verdict without an upstream call.
func NewSafetyScanHandler(client *llm.Client, logger *slog.Logger) Handler {
	metrics := observability.Get()

	return func(ctx context.Context, task *taskqueue.Task) (map[string]any, error) {
		content := payloadString(task.Payload, "content")
		if content == "" {
			logger.Debug("Skipping safety scan for empty content",
				slog.String("job_id", task.JobID),
			)
			return map[string]any{"verdict": nil}, nil
		}

		verdict, err := client.ClassifyContent(ctx, content)
		if err != nil {
			metrics.CountLLMRequest(ctx, "guard", taskqueue.StatusError)
			return nil, fmt.Errorf("safety_scan: %w", err)
		}
		metrics.CountLLMRequest(ctx, "guard", taskqueue.StatusOK)

		return map[string]any{"verdict": verdict}, nil
	}
}
