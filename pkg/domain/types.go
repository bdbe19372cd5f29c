package domain

import "time"

// Intent classifies what kind of answer the user is asking for.
type Intent string

const (
	// IntentText indicates a plain textual answer.
	IntentText Intent = "text"
	// IntentVisual indicates the user wants a chart or other visual.
	IntentVisual Intent = "visual"
	// IntentCode indicates the user wants generated code to run.
	IntentCode Intent = "code"
)

// PayloadKind classifies the outcome of the dataset query stage.
type PayloadKind string

const (
	PayloadNone     PayloadKind = "none"
	PayloadRows     PayloadKind = "tabular_rows"
	PayloadScalar   PayloadKind = "scalar"
	PayloadPlotPath PayloadKind = "plot_artifact_path"
	PayloadError    PayloadKind = "error"
)

// Payload is the result of the retrieval/query stage. Exactly one of
// Rows, Scalar, PlotPath, or Err is meaningful, selected by Kind.
type Payload struct {
	Kind     PayloadKind      `json:"kind"`
	Rows     []map[string]any `json:"rows,omitempty"`
	Scalar   string           `json:"scalar,omitempty"`
	PlotPath string           `json:"plot_path,omitempty"`
	Err      string           `json:"error,omitempty"`
}

// Analysis is the moderator collaborator's reading of a request.
type Analysis struct {
	Intent          Intent `json:"intent"`
	StructuredQuery string `json:"query"`
}

// Contextualization is the summarizer collaborator's output: a user-facing
// summary of the payload plus whether a code-generation pass is needed to
// satisfy the request (e.g. the user asked for a chart and the query stage
// produced only rows).
type Contextualization struct {
	Summary   string `json:"summary"`
	NeedsCode bool   `json:"needs_code"`
}

// Response is the request/response boundary contract: exactly one of Error,
// or one-or-both of Text/Image, is populated.
type Response struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// RequestRecord is a completed request as persisted in the history store.
type RequestRecord struct {
	ID        string        `json:"id"`
	Query     string        `json:"query"`
	Intent    Intent        `json:"intent,omitempty"`
	Text      string        `json:"text,omitempty"`
	Image     string        `json:"image,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}
