package pipeline

import "github.com/mvarela/armada/pkg/domain"

// Branch identifies a successor after the fork point.
type Branch int

const (
	// BranchValidate skips straight to the terminal stage.
	BranchValidate Branch = iota
	// BranchCodegen enters code generation followed by execution.
	BranchCodegen
)

func (b Branch) String() string {
	switch b {
	case BranchCodegen:
		return "codegen"
	default:
		return "validate"
	}
}

// Decide evaluates the fork predicate once, after the summary stage. The
// code branch is taken iff a code pass is needed and neither an execution
// error nor generated code already exists — a state that has been through
// the code path once never re-enters it.
func Decide(st *domain.State) Branch {
	if st.NeedsCode && st.ExecutionError == "" && st.GeneratedCode == "" {
		return BranchCodegen
	}
	return BranchValidate
}
