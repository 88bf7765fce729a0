package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the structured outcome of a safety classification
type Verdict struct {
	Verdict    string   `json:"verdict"`
	Categories []string `json:"categories"`
	Details    string   `json:"details,omitempty"`
}

// IsUnsafe reports whether the classifier flagged the content
func (v *Verdict) IsUnsafe() bool {
	return v.Verdict == "unsafe"
}

const guardSystemPrompt = "You are a strict safety classifier. Analyze the provided chat message content. " +
	`Respond with compact JSON using the following shape: ` +
	`{"verdict":"safe"|"unsafe","categories":["..."],"details":"..."}. ` +
	"Mark any harassment, hate, self-harm, sexual, or violent content as unsafe."

// parseGuardResponse converts the guard model's output to a Verdict.
// Guard models don't always honor the JSON instruction, so it falls back
// to recognizing the plain-text "safe"/"unsafe" convention.
func parseGuardResponse(raw string) (*Verdict, error) {
	raw = strings.TrimSpace(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err == nil && v.Verdict != "" {
		if v.Categories == nil {
			v.Categories = []string{}
		}
		return &v, nil
	}

	lowered := strings.ToLower(raw)
	if strings.HasPrefix(lowered, "safe") {
		return &Verdict{Verdict: "safe", Categories: []string{}, Details: raw}, nil
	}
	if strings.Contains(lowered, "unsafe") || strings.Contains(lowered, "flag") {
		return &Verdict{Verdict: "unsafe", Categories: []string{}, Details: raw}, nil
	}

	return nil, fmt.Errorf("unrecognized guard response: %q", raw)
}

// ClassifyContent asks the guard model whether content violates the
// safety policy.
func (c *Client) ClassifyContent(ctx context.Context, content string) (*Verdict, error) {
	raw, err := c.complete(ctx, chatRequest{
		Model: c.config.GuardModel,
		Messages: []chatMessage{
			{Role: "system", Content: guardSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Message:\n%s\nReturn only the JSON verdict.", content)},
		},
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("safety classification failed: %w", err)
	}

	return parseGuardResponse(raw)
}
