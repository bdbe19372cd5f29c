package model

import "context"

// Provider represents a service that provides LLMs (e.g. Gemini).
// A single Provider instance is constructed at process start and injected
// into every collaborator that needs one.
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini").
	Name() string

	// Generate sends a one-shot prompt to the named model and returns the
	// full text response. instructions is the system prompt and may be
	// empty.
	Generate(ctx context.Context, modelName, instructions, prompt string) (string, error)
}
