package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/sandbox"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func runValidate(t *testing.T, st *domain.State) domain.Response {
	t.Helper()
	v := &validateStage{}
	if upd := v.Run(context.Background(), st); upd != nil {
		upd.Apply(st)
	}
	if !st.Final() {
		t.Fatal("validate left no terminal answer")
	}
	return st.Response()
}

func TestValidateExecutionErrorWins(t *testing.T) {
	st := domain.NewState("q")
	st.Summary = "a perfectly good summary"
	st.ExecutionOutput = "some output"
	st.ExecutionError = "timeout: 30s exceeded"

	resp := runValidate(t, st)
	if !strings.HasPrefix(resp.Error, "code execution failed:") {
		t.Errorf("Error = %q", resp.Error)
	}
	if resp.Text != "" || resp.Image != "" {
		t.Errorf("error response carries answer fields: %+v", resp)
	}
}

func TestValidatePayloadError(t *testing.T) {
	st := domain.NewState("q")
	st.Payload = domain.Payload{Kind: domain.PayloadError, Err: "no such table: armada"}

	resp := runValidate(t, st)
	if resp.Error != "query failed: no such table: armada" {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestValidateArtifactWithCaption(t *testing.T) {
	uri, _ := sandbox.EncodeDataURL(pngBytes)
	st := domain.NewState("q")
	st.Payload = domain.Payload{Kind: domain.PayloadRows, Rows: []map[string]any{}}
	st.Summary = "ships per year"
	st.ExecutionOutput = uri

	resp := runValidate(t, st)
	if resp.Image != uri {
		t.Errorf("Image = %q", resp.Image)
	}
	if resp.Text != "ships per year" {
		t.Errorf("caption = %q", resp.Text)
	}
}

func TestValidateArtifactDefaultCaption(t *testing.T) {
	uri, _ := sandbox.EncodeDataURL(pngBytes)
	st := domain.NewState("q")
	st.ExecutionOutput = uri

	resp := runValidate(t, st)
	if resp.Text != defaultCaption {
		t.Errorf("caption = %q", resp.Text)
	}
}

func TestValidatePlotPathPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	if err := os.WriteFile(path, pngBytes, 0o600); err != nil {
		t.Fatal(err)
	}

	st := domain.NewState("q")
	st.Payload = domain.Payload{Kind: domain.PayloadPlotPath, PlotPath: path}

	resp := runValidate(t, st)
	if !sandbox.IsDataURL(resp.Image) {
		t.Errorf("Image = %q, want data URI", resp.Image)
	}
	if resp.Error != "" {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestValidatePlotPathUnreadable(t *testing.T) {
	st := domain.NewState("q")
	st.Payload = domain.Payload{Kind: domain.PayloadPlotPath, PlotPath: filepath.Join(t.TempDir(), "gone.png")}

	resp := runValidate(t, st)
	if resp.Error == "" || resp.Image != "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestValidateTextPriority(t *testing.T) {
	st := domain.NewState("q")
	st.Summary = "approximate answer"
	st.ExecutionOutput = "42"

	if resp := runValidate(t, st); resp.Text != "42" {
		t.Errorf("Text = %q, want execution output over summary", resp.Text)
	}

	st = domain.NewState("q")
	st.Summary = "only a summary"
	if resp := runValidate(t, st); resp.Text != "only a summary" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestValidateNoAnswerFallback(t *testing.T) {
	st := domain.NewState("q")

	resp := runValidate(t, st)
	if resp.Error == "" {
		t.Error("expected fallback error")
	}
}
