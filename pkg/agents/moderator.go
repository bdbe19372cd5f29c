// Package agents implements the LLM collaborators consumed by the pipeline
// stages: the moderator (intent analysis + structured query), the
// contextualizer (summary) and the coder (python generation). Each is a
// thin, explicitly constructed service over a model.Provider.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/model"
)

const moderatorInstructions = `You are the moderator of a data question-answering service.
Given a user request about the dataset described below, respond with a single JSON object:

{"intent": "text" | "visual" | "code", "query": "<one SQL SELECT statement>"}

- intent is "visual" when the user asks for a chart, plot, graph or other picture.
- intent is "code" when the user explicitly asks for a computation that needs custom code.
- intent is "text" otherwise.
- query must be a single SELECT over the tables below, returning the data needed to answer the request.

Respond with the JSON object only, no prose.`

// Moderator analyzes a raw request into an intent and a structured query.
type Moderator struct {
	provider model.Provider
	model    string
	schema   string
}

// NewModerator creates a Moderator. schema is the dataset description
// (tables and columns) included in every prompt.
func NewModerator(provider model.Provider, modelName, schema string) *Moderator {
	return &Moderator{provider: provider, model: modelName, schema: schema}
}

// Analyze classifies the request and produces the dataset query for it.
func (m *Moderator) Analyze(ctx context.Context, request string) (domain.Analysis, error) {
	instructions := moderatorInstructions + "\n\n## Dataset\n\n" + m.schema

	raw, err := m.provider.Generate(ctx, m.model, instructions, request)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("moderator model call: %w", err)
	}

	cleaned, err := extractJSON(raw)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("moderator response: %w", err)
	}

	var a domain.Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return domain.Analysis{}, fmt.Errorf("decoding moderator response: %w", err)
	}

	switch a.Intent {
	case domain.IntentText, domain.IntentVisual, domain.IntentCode:
	default:
		a.Intent = domain.IntentText
	}
	a.StructuredQuery = strings.TrimSpace(a.StructuredQuery)
	if a.StructuredQuery == "" {
		return domain.Analysis{}, fmt.Errorf("moderator produced no query")
	}
	return a, nil
}
