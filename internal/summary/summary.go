// Package summary writes the closing summary of a decided debate.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/openrouter"
)

// MaxWords bounds the returned summary.
const MaxWords = 200

// Request is everything the model sees.
type Request struct {
	Topic   string
	Support []string
	Oppose  []string
	Winner  debate.Side
}

// ForOutcome builds a request from a closed debate. Only a decided winner
// gets a summary.
func ForOutcome(d *debate.Debate, args []debate.Argument, winner debate.Winner) (Request, error) {
	side, ok := winner.Side()
	if !ok {
		if winner == debate.Tie {
			return Request{}, debate.ErrTie
		}
		return Request{}, debate.ErrDebateOpen
	}
	req := Request{Topic: d.Title, Winner: side}
	for _, a := range args {
		switch a.Side {
		case debate.Support:
			req.Support = append(req.Support, a.Text)
		case debate.Oppose:
			req.Oppose = append(req.Oppose, a.Text)
		}
	}
	return req, nil
}

// LLM is the chat completion surface the generator needs.
type LLM interface {
	ChatCompletion(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// Generator produces summaries with a language model.
type Generator struct {
	llm   LLM
	model string
}

// NewGenerator returns a generator that uses model.
func NewGenerator(llm LLM, model string) *Generator {
	return &Generator{llm: llm, model: model}
}

const systemPrompt = `You are an AI assistant tasked with summarizing debates.
Generate a concise summary of the debate, highlighting the main arguments from both sides and clearly stating the outcome.
The summary should be no more than 200 words.
Return ONLY valid JSON in this exact format:
{"summary": "..."}`

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	b.WriteString("Support Arguments:\n")
	writeList(&b, req.Support)
	b.WriteString("\nOppose Arguments:\n")
	writeList(&b, req.Oppose)
	fmt.Fprintf(&b, "\nWinning Side: %s\n", req.Winner)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	for _, s := range items {
		fmt.Fprintf(b, "- %s\n", s)
	}
}

// Generate returns a summary of at most MaxWords words.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if !req.Winner.Valid() {
		return "", apperr.New(apperr.Validation, "summary", "a summary needs a winning side")
	}

	resp, err := g.llm.ChatCompletion(ctx, openrouter.ChatRequest{
		Model: g.model,
		Messages: []openrouter.Message{
			openrouter.System(systemPrompt),
			openrouter.User(buildPrompt(req)),
		},
		ResponseFormat: openrouter.JSONObject,
	})
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	raw, err := resp.Text()
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}

	var out struct {
		Summary string `json:"summary"`
	}
	text := raw
	if openrouter.DecodeJSON(raw, &out) && out.Summary != "" {
		text = out.Summary
	}
	text = Truncate(strings.TrimSpace(text), MaxWords)
	if text == "" {
		return "", fmt.Errorf("summary: model returned an empty summary")
	}
	return text, nil
}

// Truncate keeps the first n words of s.
func Truncate(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}
