// Package pipeline drives a request through the fixed stage topology:
//
//	intent → retrieval → summary → [fork] → {codegen → execution | skip} → validate
//
// One State record is threaded through the stages; each stage returns a
// partial update covering only the fields it owns. The validate stage is the
// sole terminal stage and runs exactly once on every path.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/sandbox"
)

// Moderator analyzes a raw request into an intent and a structured query.
type Moderator interface {
	Analyze(ctx context.Context, request string) (domain.Analysis, error)
}

// Retriever runs the structured query against the dataset. Failures are
// reported inside the payload, never as a Go error.
type Retriever interface {
	Query(ctx context.Context, query string) domain.Payload
}

// Contextualizer summarizes a payload and flags whether the code branch is
// needed.
type Contextualizer interface {
	Summarize(ctx context.Context, request string, intent domain.Intent, payload domain.Payload) (domain.Contextualization, error)
}

// Coder generates a program for requests the query alone cannot satisfy.
type Coder interface {
	Generate(ctx context.Context, request string, payload domain.Payload) (string, error)
}

// Observer is notified as each stage starts. Used by the streaming endpoint
// to surface progress.
type Observer func(stage string)

// Engine owns the stage topology and drives one run per request. Stages
// within a run execute strictly sequentially; concurrency exists only across
// independent requests, each with its own State.
type Engine struct {
	intent    Stage
	retrieval Stage
	summary   Stage
	codegen   Stage
	execution Stage
	validate  Stage
}

// New creates an Engine over the given collaborators. execDeadline bounds
// each sandbox execution.
func New(m Moderator, r Retriever, c Contextualizer, coder Coder, runner sandbox.Runner, execDeadline time.Duration) *Engine {
	return &Engine{
		intent:    &intentStage{moderator: m},
		retrieval: &retrievalStage{retriever: r},
		summary:   &summaryStage{contextualizer: c},
		codegen:   &codegenStage{coder: coder},
		execution: &executionStage{runner: runner, deadline: execDeadline},
		validate:  &validateStage{},
	}
}

// Run drives one request through the pipeline and always returns a state
// with a terminal answer set.
func (e *Engine) Run(ctx context.Context, request string) *domain.State {
	return e.RunObserved(ctx, request, nil)
}

// RunObserved is Run with a per-run stage observer.
func (e *Engine) RunObserved(ctx context.Context, request string, observe Observer) (st *domain.State) {
	st = domain.NewState(request)

	// Last-resort fail-safe: a stage must not panic, but if one does the
	// caller still gets a structurally valid terminal state.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline stage panicked", "panic", r)
			if !st.Final() {
				domain.FinalUpdate{Err: "internal error: the request could not be processed"}.Apply(st)
			}
		}
	}()

	e.runStage(ctx, st, e.intent, observe)
	e.runStage(ctx, st, e.retrieval, observe)
	e.runStage(ctx, st, e.summary, observe)

	switch Decide(st) {
	case BranchCodegen:
		e.runStage(ctx, st, e.codegen, observe)
		e.runStage(ctx, st, e.execution, observe)
	case BranchValidate:
		// Straight to the terminal stage.
	}

	e.runStage(ctx, st, e.validate, observe)
	return st
}

func (e *Engine) runStage(ctx context.Context, st *domain.State, s Stage, observe Observer) {
	if observe != nil {
		observe(s.Name())
	}
	slog.Debug("Running pipeline stage", "stage", s.Name())
	if upd := s.Run(ctx, st); upd != nil {
		upd.Apply(st)
	}
}
