package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/lorenzotomasdiez/agora/internal/openrouter"
)

type mockLLM struct {
	responses []string
	err       error
	requests  []openrouter.ChatRequest
}

func (m *mockLLM) ChatCompletion(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	i := len(m.requests) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return &openrouter.ChatResponse{Choices: []openrouter.Choice{
		{Message: openrouter.Message{Role: "assistant", Content: m.responses[i]}},
	}}, nil
}

func TestLLMModerator(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"isSafe": false, "reason": "Personal attack."}`}}
	m := NewLLMModerator(llm, "test-model")

	v, err := m.Moderate(context.Background(), "You are stupid")
	if err != nil {
		t.Fatalf("Moderate: %v", err)
	}
	if v.IsSafe || v.Reason != "Personal attack." {
		t.Errorf("verdict = %+v", v)
	}

	req := llm.requests[0]
	if req.Model != "test-model" {
		t.Errorf("model = %q", req.Model)
	}
	if req.ResponseFormat != openrouter.JSONObject {
		t.Error("expected json_object response format")
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "You are stupid" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestLLMModeratorRetriesUnparsable(t *testing.T) {
	llm := &mockLLM{responses: []string{
		"I think it is fine.",
		"```json\n{\"isSafe\": true, \"reason\": \"\"}\n```",
	}}
	m := NewLLMModerator(llm, "test-model")

	v, err := m.Moderate(context.Background(), "This is a well-reasoned point")
	if err != nil {
		t.Fatalf("Moderate: %v", err)
	}
	if !v.IsSafe {
		t.Errorf("verdict = %+v", v)
	}
	if len(llm.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(llm.requests))
	}
	if n := len(llm.requests[1].Messages); n != 3 {
		t.Errorf("retry should add a corrective message, got %d messages", n)
	}
}

func TestLLMModeratorGivesUp(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"reason": "missing verdict"}`}}
	m := NewLLMModerator(llm, "test-model")

	if _, err := m.Moderate(context.Background(), "text"); err == nil {
		t.Fatal("expected error when no verdict parses")
	}
	if len(llm.requests) != maxModerationAttempts {
		t.Errorf("requests = %d, want %d", len(llm.requests), maxModerationAttempts)
	}
}

func TestLLMModeratorTransportError(t *testing.T) {
	m := NewLLMModerator(&mockLLM{err: errors.New("boom")}, "test-model")
	if _, err := m.Moderate(context.Background(), "text"); err == nil {
		t.Fatal("expected transport error")
	}
}
