package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/sandbox"
)

// Stage is one pipeline step. Run receives the current state (read-only for
// fields the stage does not own) and returns a partial update, or nil when
// the stage has nothing to write. A stage never propagates a collaborator
// failure: it converts it into a state field or a safe default.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *domain.State) domain.Update
}

// --- intent ---

type intentStage struct {
	moderator Moderator
}

func (s *intentStage) Name() string { return "intent" }

func (s *intentStage) Run(ctx context.Context, st *domain.State) domain.Update {
	a, err := s.moderator.Analyze(ctx, st.OriginalRequest)
	if err != nil {
		// Conservative default: treat the raw request as a text question.
		slog.Warn("Intent analysis failed, falling back to text", "error", err)
		return domain.IntentUpdate{
			Intent:          domain.IntentText,
			StructuredQuery: st.OriginalRequest,
		}
	}
	return domain.IntentUpdate{Intent: a.Intent, StructuredQuery: a.StructuredQuery}
}

// --- retrieval ---

type retrievalStage struct {
	retriever Retriever
}

func (s *retrievalStage) Name() string { return "retrieval" }

func (s *retrievalStage) Run(ctx context.Context, st *domain.State) domain.Update {
	return domain.RetrievalUpdate{Payload: s.retriever.Query(ctx, st.StructuredQuery)}
}

// --- summary ---

type summaryStage struct {
	contextualizer Contextualizer
}

func (s *summaryStage) Name() string { return "summary" }

func (s *summaryStage) Run(ctx context.Context, st *domain.State) domain.Update {
	if st.Payload.Kind == domain.PayloadError {
		// Nothing to summarize; the terminal stage surfaces the error.
		return nil
	}
	out, err := s.contextualizer.Summarize(ctx, st.OriginalRequest, st.Intent, st.Payload)
	if err != nil {
		slog.Warn("Summarization failed, continuing without summary", "error", err)
		return nil
	}
	return domain.SummaryUpdate{Summary: out.Summary, NeedsCode: out.NeedsCode}
}

// --- codegen ---

type codegenStage struct {
	coder Coder
}

func (s *codegenStage) Name() string { return "codegen" }

func (s *codegenStage) Run(ctx context.Context, st *domain.State) domain.Update {
	code, err := s.coder.Generate(ctx, st.OriginalRequest, st.Payload)
	if err != nil {
		// Leaving the code empty makes the execution stage's static gate
		// report the failure, the same as any other missing-construct case.
		slog.Warn("Code generation failed", "error", err)
		return nil
	}
	return domain.CodegenUpdate{Code: code}
}

// --- execution ---

type executionStage struct {
	runner   sandbox.Runner
	deadline time.Duration
}

func (s *executionStage) Name() string { return "execution" }

func (s *executionStage) Run(ctx context.Context, st *domain.State) domain.Update {
	res := s.runner.Execute(ctx, st.GeneratedCode, s.deadline)
	switch res.Outcome {
	case sandbox.OutcomeText:
		return domain.ExecutionUpdate{Output: res.Text}
	case sandbox.OutcomeArtifact:
		return domain.ExecutionUpdate{Output: res.Artifact}
	case sandbox.OutcomeFailure:
		return domain.ExecutionUpdate{Err: fmt.Sprintf("%s: %s", res.Failure, res.Detail)}
	default:
		return domain.ExecutionUpdate{Err: fmt.Sprintf("unknown execution outcome %q", res.Outcome)}
	}
}
