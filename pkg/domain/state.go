package domain

// State is the shared record threaded through one pipeline run. Fields are
// written incrementally: each stage owns a subset of fields and applies them
// through its Update type (update.go), never touching fields owned by an
// earlier stage. Empty string / zero value means "not set".
type State struct {
	// OriginalRequest is set once at pipeline entry and never changed.
	OriginalRequest string

	// Written by the intent stage.
	Intent          Intent
	StructuredQuery string

	// Written by the retrieval stage.
	Payload Payload

	// Written by the summarization stage.
	Summary   string
	NeedsCode bool

	// Written by the code-generation stage.
	GeneratedCode string

	// Written by the execution stage. Mutually exclusive: an execution
	// either produced output (text or an encoded artifact) or failed.
	ExecutionOutput string
	ExecutionError  string

	// Written only by the terminal validation stage.
	FinalText  string
	FinalImage string
	FinalError string
}

// NewState creates the state for a fresh request with only the original
// request populated.
func NewState(request string) *State {
	return &State{
		OriginalRequest: request,
		Payload:         Payload{Kind: PayloadNone},
	}
}

// Final reports whether the terminal stage has produced an answer.
func (s *State) Final() bool {
	return s.FinalText != "" || s.FinalImage != "" || s.FinalError != ""
}

// Response converts the terminal fields into the boundary response contract.
func (s *State) Response() Response {
	if s.FinalError != "" {
		return Response{Error: s.FinalError}
	}
	return Response{Text: s.FinalText, Image: s.FinalImage}
}
