package domain

// Update is a partial write-back produced by one pipeline stage. Each stage
// has its own Update type covering exactly the fields that stage owns, so a
// stage cannot clear or overwrite another stage's fields.
type Update interface {
	// Apply merges the update into the state.
	Apply(s *State)
}

// IntentUpdate is owned by the intent-analysis stage.
type IntentUpdate struct {
	Intent          Intent
	StructuredQuery string
}

func (u IntentUpdate) Apply(s *State) {
	s.Intent = u.Intent
	s.StructuredQuery = u.StructuredQuery
}

// RetrievalUpdate is owned by the retrieval/query stage.
type RetrievalUpdate struct {
	Payload Payload
}

func (u RetrievalUpdate) Apply(s *State) {
	s.Payload = u.Payload
}

// SummaryUpdate is owned by the summarization stage.
type SummaryUpdate struct {
	Summary   string
	NeedsCode bool
}

func (u SummaryUpdate) Apply(s *State) {
	s.Summary = u.Summary
	s.NeedsCode = u.NeedsCode
}

// CodegenUpdate is owned by the code-generation stage.
type CodegenUpdate struct {
	Code string
}

func (u CodegenUpdate) Apply(s *State) {
	s.GeneratedCode = u.Code
}

// ExecutionUpdate is owned by the execution stage. Output and Err are
// mutually exclusive; Apply preserves that by only writing the one that is
// set.
type ExecutionUpdate struct {
	Output string
	Err    string
}

func (u ExecutionUpdate) Apply(s *State) {
	if u.Err != "" {
		s.ExecutionError = u.Err
		return
	}
	s.ExecutionOutput = u.Output
}

// FinalUpdate is owned by the terminal validation stage. Err excludes
// Text/Image as a group.
type FinalUpdate struct {
	Text  string
	Image string
	Err   string
}

func (u FinalUpdate) Apply(s *State) {
	if u.Err != "" {
		s.FinalError = u.Err
		return
	}
	s.FinalText = u.Text
	s.FinalImage = u.Image
}
