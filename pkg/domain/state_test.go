package domain

import "testing"

func TestUpdatesWriteOnlyOwnedFields(t *testing.T) {
	st := NewState("how many ships are there?")

	IntentUpdate{Intent: IntentVisual, StructuredQuery: "SELECT * FROM fleet"}.Apply(st)
	RetrievalUpdate{Payload: Payload{Kind: PayloadRows, Rows: []map[string]any{{"name": "a"}}}}.Apply(st)
	SummaryUpdate{Summary: "one ship", NeedsCode: true}.Apply(st)

	if st.OriginalRequest != "how many ships are there?" {
		t.Errorf("OriginalRequest mutated: %q", st.OriginalRequest)
	}
	if st.Intent != IntentVisual || st.StructuredQuery != "SELECT * FROM fleet" {
		t.Errorf("intent fields = %q, %q", st.Intent, st.StructuredQuery)
	}
	if st.Payload.Kind != PayloadRows {
		t.Errorf("Payload.Kind = %q, want %q", st.Payload.Kind, PayloadRows)
	}
	if st.Summary != "one ship" || !st.NeedsCode {
		t.Errorf("summary fields = %q, %v", st.Summary, st.NeedsCode)
	}

	// A later update must not clear earlier stages' fields.
	CodegenUpdate{Code: "import pandas"}.Apply(st)
	if st.Summary != "one ship" || st.Payload.Kind != PayloadRows {
		t.Error("codegen update clobbered earlier stage fields")
	}
}

func TestExecutionUpdateMutuallyExclusive(t *testing.T) {
	st := NewState("q")
	ExecutionUpdate{Output: "42", Err: "boom"}.Apply(st)
	if st.ExecutionOutput != "" {
		t.Errorf("ExecutionOutput = %q, want empty when Err set", st.ExecutionOutput)
	}
	if st.ExecutionError != "boom" {
		t.Errorf("ExecutionError = %q", st.ExecutionError)
	}
}

func TestFinalUpdateErrorExcludesTextAndImage(t *testing.T) {
	st := NewState("q")
	FinalUpdate{Text: "t", Image: "i", Err: "e"}.Apply(st)
	if st.FinalText != "" || st.FinalImage != "" {
		t.Error("error final update must not set text or image")
	}
	if st.FinalError != "e" {
		t.Errorf("FinalError = %q", st.FinalError)
	}
}

func TestResponseExclusivity(t *testing.T) {
	cases := []struct {
		name string
		upd  FinalUpdate
	}{
		{"error only", FinalUpdate{Err: "boom"}},
		{"text only", FinalUpdate{Text: "answer"}},
		{"text and image", FinalUpdate{Text: "caption", Image: "data:image/png;base64,AAAA"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := NewState("q")
			tc.upd.Apply(st)
			resp := st.Response()

			hasAnswer := resp.Text != "" || resp.Image != ""
			hasError := resp.Error != ""
			if hasAnswer == hasError {
				t.Errorf("response %+v violates exclusivity", resp)
			}
		})
	}
}

func TestNewStateStartsEmpty(t *testing.T) {
	st := NewState("q")
	if st.Final() {
		t.Error("fresh state must not be final")
	}
	if st.Payload.Kind != PayloadNone {
		t.Errorf("Payload.Kind = %q, want %q", st.Payload.Kind, PayloadNone)
	}
}
