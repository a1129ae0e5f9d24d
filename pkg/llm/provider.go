package llm

import (
	"context"

	"tourgen/pkg/model"
)

// CompletionRequest is one script-generation call. System sets the role and
// constraints, User carries the place-specific prompt.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// Complete sends a prompt pair and returns the generated text verbatim.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Info reports model provenance for generated artifacts.
	Info() model.ModelInfo

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
