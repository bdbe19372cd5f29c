package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/model"
	"github.com/mvarela/armada/pkg/sandbox"
)

const coderInstructions = `You write small python scripts for a data question-answering service.
The script receives no arguments and no network. Requirements:

- import pandas and import matplotlib (use the "Agg" backend via matplotlib.use("Agg")).
- Build a DataFrame from the JSON data embedded below.
- If the request calls for a chart, save it with plt.savefig(%q) and do not call plt.show().
- If the request calls for a computed value, print it to stdout instead.
- No input(), no network access, no reading or writing any other files.

Respond with the python source only (a single code block is fine), no explanation.`

// Coder generates python for requests the retrieval stage alone cannot
// satisfy.
type Coder struct {
	provider model.Provider
	model    string
}

// NewCoder creates a Coder.
func NewCoder(provider model.Provider, modelName string) *Coder {
	return &Coder{provider: provider, model: modelName}
}

// Generate produces the program body for the request, with the payload
// embedded as literal data. An empty result is reported as an error.
func (c *Coder) Generate(ctx context.Context, request string, payload domain.Payload) (string, error) {
	data, err := json.Marshal(payload.Rows)
	if err != nil {
		return "", fmt.Errorf("marshaling payload for prompt: %w", err)
	}

	instructions := fmt.Sprintf(coderInstructions, sandbox.PlotName)
	prompt := fmt.Sprintf("Request: %s\n\nData (JSON array of rows):\n%s", request, data)

	raw, err := c.provider.Generate(ctx, c.model, instructions, prompt)
	if err != nil {
		return "", fmt.Errorf("coder model call: %w", err)
	}

	code := extractCode(raw)
	if code == "" {
		return "", fmt.Errorf("coder produced no code")
	}
	return code, nil
}
