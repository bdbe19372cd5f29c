// Package sandbox defines the contract for running untrusted generated
// programs under a deadline, and the classification of their outcomes.
// Isolation backends (local subprocess, docker container) live in
// subpackages behind the same Runner interface.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// ScriptName is the filename the program body is materialized into
	// inside the ephemeral working directory.
	ScriptName = "generated_script.py"
	// PlotName is the single designated output artifact file. Generated
	// code that produces a chart must save it under this name.
	PlotName = "plot.png"
	// EmptySuccessOutput is returned when a program exits 0 with neither
	// stdout nor an artifact. Explicit empty-success sentinel, not an error.
	EmptySuccessOutput = "<execution succeeded, no output>"

	// maxDetailLen bounds the stderr/stdout excerpt carried in a failure.
	maxDetailLen = 2000
)

// FailureKind classifies why an execution failed.
type FailureKind string

const (
	FailureTimeout            FailureKind = "timeout"
	FailureNonzeroExit        FailureKind = "nonzero_exit"
	FailureIO                 FailureKind = "io_error"
	FailureMissingInterpreter FailureKind = "missing_interpreter"
)

// Outcome tags which Result variant is populated.
type Outcome string

const (
	OutcomeText     Outcome = "text"
	OutcomeArtifact Outcome = "artifact"
	OutcomeFailure  Outcome = "failure"
)

// Result is the classified outcome of one execution. Exactly one variant is
// populated, selected by Outcome.
type Result struct {
	Outcome Outcome

	// Text output (Outcome == OutcomeText).
	Text string

	// Encoded artifact as a data URI plus its media type
	// (Outcome == OutcomeArtifact).
	Artifact  string
	MediaType string

	// Failure classification (Outcome == OutcomeFailure).
	Failure FailureKind
	Detail  string
}

// TextResult builds a text-output result.
func TextResult(text string) Result {
	return Result{Outcome: OutcomeText, Text: text}
}

// ArtifactResult builds an artifact result from raw bytes, encoding them
// into their transport form.
func ArtifactResult(data []byte) Result {
	uri, mediaType := EncodeDataURL(data)
	return Result{Outcome: OutcomeArtifact, Artifact: uri, MediaType: mediaType}
}

// FailureResult builds a failure result.
func FailureResult(kind FailureKind, detail string) Result {
	return Result{Outcome: OutcomeFailure, Failure: kind, Detail: Excerpt(detail)}
}

// Runner executes an untrusted program body under a wall-clock deadline and
// classifies the result. Implementations must remove every transient
// resource (working directory, container) on all exit paths, and must never
// block longer than the deadline plus bounded teardown overhead.
type Runner interface {
	Execute(ctx context.Context, code string, deadline time.Duration) Result
}

// Vet runs the cheap static gate over a program body before anything is
// spawned. It returns a non-nil io_error failure when the code is empty or
// is missing one of the required markers. This is a precondition check, not
// a security boundary.
func Vet(code string, markers []string) *Result {
	if strings.TrimSpace(code) == "" {
		r := FailureResult(FailureIO, "no code provided")
		return &r
	}
	var missing []string
	for _, m := range markers {
		if !strings.Contains(code, m) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		r := FailureResult(FailureIO, "missing required constructs: "+strings.Join(missing, ", "))
		return &r
	}
	return nil
}

// Classify maps a zero-exit execution to its result: artifact wins over
// stdout, and an empty run yields the explicit success sentinel.
func Classify(stdout string, artifact []byte) Result {
	if len(artifact) > 0 {
		return ArtifactResult(artifact)
	}
	if out := strings.TrimSpace(stdout); out != "" {
		return TextResult(out)
	}
	return TextResult(EmptySuccessOutput)
}

// ExitFailure builds the nonzero_exit failure for a finished process,
// preferring stderr as the detail.
func ExitFailure(exitCode int, stdout, stderr string) Result {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = strings.TrimSpace(stdout)
	}
	return FailureResult(FailureNonzeroExit, fmt.Sprintf("exit code %d: %s", exitCode, detail))
}

// Excerpt bounds a detail string to a user-safe length.
func Excerpt(s string) string {
	if len(s) > maxDetailLen {
		return s[:maxDetailLen] + "..."
	}
	return s
}
