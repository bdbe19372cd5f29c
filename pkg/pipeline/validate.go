package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/sandbox"
)

const defaultCaption = "Here is the chart for your request."

// validateStage is the terminal stage. It deterministically picks exactly
// one answer, in priority order: error, artifact (+caption), text, fallback
// error.
type validateStage struct{}

func (s *validateStage) Name() string { return "validate" }

func (s *validateStage) Run(ctx context.Context, st *domain.State) domain.Update {
	// 1. Hard errors win.
	if st.ExecutionError != "" {
		return domain.FinalUpdate{Err: "code execution failed: " + st.ExecutionError}
	}
	if st.Payload.Kind == domain.PayloadError {
		return domain.FinalUpdate{Err: "query failed: " + st.Payload.Err}
	}

	// 2. A visual artifact, from execution or from the query stage itself.
	if sandbox.IsDataURL(st.ExecutionOutput) {
		return domain.FinalUpdate{Text: caption(st), Image: st.ExecutionOutput}
	}
	if st.Payload.Kind == domain.PayloadPlotPath {
		data, err := os.ReadFile(st.Payload.PlotPath)
		if err != nil {
			slog.Warn("Plot artifact unreadable", "path", st.Payload.PlotPath, "error", err)
			return domain.FinalUpdate{Err: "the chart for this request could not be read"}
		}
		uri, _ := sandbox.EncodeDataURL(data)
		return domain.FinalUpdate{Text: caption(st), Image: uri}
	}

	// 3. Text: a computed execution result beats the pre-execution summary.
	if st.ExecutionOutput != "" {
		return domain.FinalUpdate{Text: st.ExecutionOutput}
	}
	if st.Summary != "" {
		return domain.FinalUpdate{Text: st.Summary}
	}

	// 4. Unreachable when the stages uphold their contracts; surfaced as a
	// generic error and logged as an internal defect signal.
	slog.Error("Terminal stage reached with no determinate answer", "request", st.OriginalRequest)
	return domain.FinalUpdate{Err: "no answer could be produced for this request"}
}

func caption(st *domain.State) string {
	if st.Summary != "" {
		return st.Summary
	}
	return defaultCaption
}
