package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxURLLen = 30

var urlPattern = regexp.MustCompile(`https?://\S+`)

// truncateRunes caps s at max characters. Slicing by rune rather than
// byte keeps truncated text valid UTF-8.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// truncateLinks shortens long URLs so they don't dominate the prompt
func truncateLinks(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(url string) string {
		if utf8.RuneCountInString(url) > maxURLLen {
			return truncateRunes(url, maxURLLen) + "..."
		}
		return url
	})
}

// ContextMessage is one recent message from the channel the bot was
// mentioned in, used to ground the generated reply.
type ContextMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

const replySystemPrompt = "You are a friendly community assistant in a chat server. " +
	"You answer questions directly and keep replies short and casual, like chat messages. " +
	"Be helpful, accurate, and polite. " +
	"NEVER insult, harass, or attack any person or group, and NEVER encourage harm or violence."

// GenerateReply asks the chat model for a reply to userMessage, grounded in
// the recent channel conversation. activeUserIDs hints at who is currently
// chatting so the model addresses the room, not just the mentioner.
func (c *Client) GenerateReply(ctx context.Context, userMessage, username, guildName string, channelContext []ContextMessage, activeUserIDs []string) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Server: %s\n", orUnknown(guildName))

	if len(channelContext) > 0 {
		sb.WriteString("\n--- Recent chat in this channel ---\n")
		for _, msg := range channelContext {
			content := truncateRunes(truncateLinks(msg.Content), 500)
			fmt.Fprintf(&sb, "%s: %s\n", msg.Username, content)
		}
		sb.WriteString("--- End of recent chat ---\n")
	}

	if len(activeUserIDs) > 0 {
		fmt.Fprintf(&sb, "\nActive chatters (user ids): %s\n", strings.Join(activeUserIDs, ", "))
	}

	fmt.Fprintf(&sb, "\nNow %s said: %s\n\n", username, userMessage)
	sb.WriteString("Jump into this conversation naturally. Be relevant to what people are discussing. " +
		"Keep it short and casual like chat.")

	reply, err := c.complete(ctx, chatRequest{
		Model: c.config.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: replySystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	return reply, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
