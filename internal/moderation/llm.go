package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorenzotomasdiez/agora/internal/openrouter"
)

const maxModerationAttempts = 3

// LLM is the chat completion surface the remote moderator needs.
type LLM interface {
	ChatCompletion(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// LLMModerator asks a language model whether text is fit for a public
// debate platform.
type LLMModerator struct {
	llm   LLM
	model string
}

// NewLLMModerator creates a remote moderator backed by model.
func NewLLMModerator(llm LLM, model string) *LLMModerator {
	return &LLMModerator{llm: llm, model: model}
}

func systemPrompt() string {
	return fmt.Sprintf(`You are a content moderator for a public debate platform.
Decide whether the user's argument is safe to publish. Banned words include: %s.
Text containing any of these words, personal attacks, hate speech or harassment is NOT safe.
Strong disagreement expressed respectfully IS safe.
Return ONLY valid JSON in this exact format:
{"isSafe": bool, "reason": "..."}
The reason must be empty when isSafe is true. Do NOT include any other text.`, strings.Join(bannedTerms[:5], ", "))
}

// Moderate implements Remote. Output that is not valid JSON is retried with
// a corrective nudge; if it never parses, the call fails.
func (m *LLMModerator) Moderate(ctx context.Context, text string) (Verdict, error) {
	msgs := []openrouter.Message{
		openrouter.System(systemPrompt()),
		openrouter.User(text),
	}

	for attempt := 0; attempt < maxModerationAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Verdict{}, fmt.Errorf("moderation: %w", err)
		}
		req := openrouter.ChatRequest{Model: m.model, Messages: msgs, ResponseFormat: openrouter.JSONObject}
		if attempt > 0 {
			req.Messages = append(append([]openrouter.Message{}, msgs...), openrouter.User(
				"Your previous response was not valid JSON. Return ONLY a JSON object, no markdown, no explanation."))
		}

		resp, err := m.llm.ChatCompletion(ctx, req)
		if err != nil {
			return Verdict{}, fmt.Errorf("moderation: %w", err)
		}
		raw, err := resp.Text()
		if err != nil {
			return Verdict{}, fmt.Errorf("moderation: %w", err)
		}

		var out struct {
			IsSafe *bool  `json:"isSafe"`
			Reason string `json:"reason"`
		}
		if openrouter.DecodeJSON(raw, &out) && out.IsSafe != nil {
			return Verdict{IsSafe: *out.IsSafe, Reason: strings.TrimSpace(out.Reason)}, nil
		}
	}
	return Verdict{}, fmt.Errorf("moderation: no parsable verdict after %d attempts", maxModerationAttempts)
}
