package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/model"
)

const contextualizerInstructions = `You summarize query results for a data question-answering service.
Given the user's request and the retrieved data, respond with a single JSON object:

{"summary": "<one or two sentences answering the request from the data>", "needs_code": true | false}

- summary must be grounded in the data shown, concise, and user-facing.
- needs_code is true only when the request cannot be satisfied by text alone
  (the user asked for a chart or a computation over the rows).

Respond with the JSON object only, no prose.`

// maxRowsInPrompt bounds how much of a tabular payload is shown to the model.
const maxRowsInPrompt = 50

// Contextualizer produces the user-facing summary of a payload and flags
// whether the code-generation branch is needed.
type Contextualizer struct {
	provider model.Provider
	model    string
}

// NewContextualizer creates a Contextualizer.
func NewContextualizer(provider model.Provider, modelName string) *Contextualizer {
	return &Contextualizer{provider: provider, model: modelName}
}

// Summarize asks the model for a summary of the payload in the light of the
// original request.
func (c *Contextualizer) Summarize(ctx context.Context, request string, intent domain.Intent, payload domain.Payload) (domain.Contextualization, error) {
	prompt := fmt.Sprintf("Request: %s\nIntent: %s\n\nRetrieved data (%s):\n%s",
		request, intent, payload.Kind, renderPayload(payload))

	raw, err := c.provider.Generate(ctx, c.model, contextualizerInstructions, prompt)
	if err != nil {
		return domain.Contextualization{}, fmt.Errorf("contextualizer model call: %w", err)
	}

	cleaned, err := extractJSON(raw)
	if err != nil {
		return domain.Contextualization{}, fmt.Errorf("contextualizer response: %w", err)
	}

	var out domain.Contextualization
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return domain.Contextualization{}, fmt.Errorf("decoding contextualizer response: %w", err)
	}

	// Only visual/code requests may enter the code branch, and a payload
	// that is already a plot needs no further code.
	if intent == domain.IntentText || payload.Kind == domain.PayloadPlotPath {
		out.NeedsCode = false
	}
	return out, nil
}

// renderPayload serializes a payload for inclusion in a prompt, truncating
// large row sets.
func renderPayload(p domain.Payload) string {
	switch p.Kind {
	case domain.PayloadRows:
		rows := p.Rows
		truncated := false
		if len(rows) > maxRowsInPrompt {
			rows = rows[:maxRowsInPrompt]
			truncated = true
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return fmt.Sprintf("%v", p.Rows)
		}
		if truncated {
			return fmt.Sprintf("%s\n(%d rows total, first %d shown)", b, len(p.Rows), maxRowsInPrompt)
		}
		return string(b)
	case domain.PayloadScalar:
		return p.Scalar
	case domain.PayloadPlotPath:
		return "a chart was already produced for this request"
	default:
		return "(no data)"
	}
}
