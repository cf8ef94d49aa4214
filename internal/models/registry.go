// Package models picks the OpenRouter model used for moderation and
// summaries.
package models

import (
	"context"

	"github.com/lorenzotomasdiez/agora/internal/openrouter"
)

// Registry holds a filtered list of free models.
type Registry struct {
	free []openrouter.Model
}

// NewRegistry creates a registry, keeping only free models (Prompt == "0" and Completion == "0").
// Models with nil Pricing are excluded.
func NewRegistry(models []openrouter.Model) *Registry {
	var free []openrouter.Model
	for _, m := range models {
		if m.Pricing == nil {
			continue
		}
		if m.Pricing.Prompt == "0" && m.Pricing.Completion == "0" {
			free = append(free, m)
		}
	}
	return &Registry{free: free}
}

// FreeModels returns all free models in the registry.
func (r *Registry) FreeModels() []openrouter.Model {
	return r.free
}

// Has reports whether id is one of the registry's free models.
func (r *Registry) Has(id string) bool {
	for _, m := range r.free {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Pick returns preferred when set, otherwise the first free model, falling
// back to the first built-in default.
func (r *Registry) Pick(preferred string) string {
	if preferred != "" {
		return preferred
	}
	if len(r.free) > 0 {
		return r.free[0].ID
	}
	return DefaultFreeModels()[0].ID
}

// DefaultFreeModels returns a hardcoded fallback list of known free models.
func DefaultFreeModels() []openrouter.Model {
	return []openrouter.Model{
		{ID: "openai/gpt-oss-120b:free", Name: "GPT OSS 120B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "qwen/qwen3-235b-a22b:free", Name: "Qwen3 235B A22B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "google/gemma-3n-e2b-it:free", Name: "Gemma 3n 2B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "nvidia/nemotron-nano-9b-v2:free", Name: "Nemotron Nano 9B V2", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
	}
}

// Lister fetches the live model catalogue.
type Lister interface {
	ListModels(ctx context.Context) ([]openrouter.Model, error)
}

// Resolve returns preferred without touching the network, otherwise the
// first free model from the live catalogue. A catalogue that cannot be
// fetched, or has no free models, falls back to the defaults.
func Resolve(ctx context.Context, l Lister, preferred string) string {
	if preferred != "" {
		return preferred
	}
	live, err := l.ListModels(ctx)
	if err != nil {
		return NewRegistry(DefaultFreeModels()).Pick("")
	}
	return NewRegistry(live).Pick("")
}
