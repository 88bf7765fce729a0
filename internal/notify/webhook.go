// Package notify delivers moderation reports and bot replies to a
// Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Embed colors by status
const (
	colorSuccess = 0x2ecc71
	colorFailure = 0xe74c3c
	colorRunning = 0xf1c40f
	colorStopped = 0x95a5a6
	colorDefault = 0x3498db
)

func statusColor(status string) int {
	switch strings.ToLower(status) {
	case "success", "succeeded", "passed", "safe", "open", "opened":
		return colorSuccess
	case "failure", "failed", "error", "unsafe", "closed":
		return colorFailure
	case "in_progress", "running", "started":
		return colorRunning
	case "cancelled", "canceled":
		return colorStopped
	default:
		return colorDefault
	}
}

// EmbedField is one name/value pair inside an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a webhook embed block
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type webhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// Webhook posts embeds to a single webhook URL. A Webhook with an empty
// URL is a no-op, so callers don't need to special-case unconfigured
// environments.
type Webhook struct {
	url    string
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewWebhook creates a webhook notifier
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Webhook{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Enabled reports whether a webhook URL is configured
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// SendFlaggedReport posts a moderation report for content the safety
// scan flagged.
func (w *Webhook) SendFlaggedReport(ctx context.Context, guildID, channelID, authorID, content string, categories []string) error {
	fields := []EmbedField{
		{Name: "Guild", Value: orDash(guildID), Inline: true},
		{Name: "Channel", Value: orDash(channelID), Inline: true},
		{Name: "Author", Value: orDash(authorID), Inline: true},
	}
	if len(categories) > 0 {
		fields = append(fields, EmbedField{Name: "Categories", Value: strings.Join(categories, ", ")})
	}

	return w.send(ctx, Embed{
		Title:       "Message Flagged: Unsafe",
		Description: truncate(content, 1000),
		Color:       statusColor("unsafe"),
		Fields:      fields,
	})
}

// SendReply posts the generated reply so moderators can see what the bot
// said on their behalf.
func (w *Webhook) SendReply(ctx context.Context, guildID, channelID, reply string) error {
	return w.send(ctx, Embed{
		Title:       "Reply Posted",
		Description: truncate(reply, 1000),
		Color:       statusColor("success"),
		Fields: []EmbedField{
			{Name: "Guild", Value: orDash(guildID), Inline: true},
			{Name: "Channel", Value: orDash(channelID), Inline: true},
		},
	})
}

func (w *Webhook) send(ctx context.Context, embed Embed) error {
	if !w.Enabled() {
		return nil
	}

	embed.Timestamp = w.now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(webhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Guildest-Notifier/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	// a deleted webhook should not break the caller
	if resp.StatusCode == http.StatusNotFound {
		w.logger.Warn("Webhook returned 404, skipping notification")
		return nil
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	return nil
}

// truncate caps s at max characters. Counting runes rather than bytes
// keeps the embed text valid UTF-8.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max]) + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
