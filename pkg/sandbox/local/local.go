// Package local runs generated programs as subprocesses of the host. The
// confinement is the working directory, a process-group kill on deadline,
// and mandatory removal of the ephemeral directory. Stronger isolation
// belongs to the docker backend.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mvarela/armada/pkg/sandbox"
)

// DefaultMarkers is the static gate applied to generated python: the code
// must work on the dataset and declare intent to plot before we bother
// spawning an interpreter.
var DefaultMarkers = []string{"import pandas", "import matplotlib"}

// Runner executes code with the configured interpreter in a fresh ephemeral
// directory per call.
type Runner struct {
	// Interpreter is the executable used to run the script (e.g. python3).
	Interpreter string
	// RequiredMarkers are substrings the code must contain to pass the
	// static gate. Nil disables the marker check (empty code still fails).
	RequiredMarkers []string
	// BaseDir is where ephemeral directories are created. Defaults to the
	// system temp directory.
	BaseDir string
}

// Verify interface compliance.
var _ sandbox.Runner = (*Runner)(nil)

// New creates a Runner for generated python with the default marker gate.
func New(interpreter string) *Runner {
	return &Runner{Interpreter: interpreter, RequiredMarkers: DefaultMarkers}
}

// Execute runs the code under the deadline and classifies the outcome. The
// ephemeral directory is removed on every exit path.
func (r *Runner) Execute(ctx context.Context, code string, deadline time.Duration) sandbox.Result {
	if res := sandbox.Vet(code, r.RequiredMarkers); res != nil {
		return *res
	}

	interp, err := exec.LookPath(r.Interpreter)
	if err != nil {
		return sandbox.FailureResult(sandbox.FailureMissingInterpreter,
			fmt.Sprintf("interpreter %q not found", r.Interpreter))
	}

	base := r.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "armada-sbx-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("creating work dir: %v", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove sandbox dir", "dir", dir, "error", err)
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, sandbox.ScriptName), []byte(code), 0o600); err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("writing script: %v", err))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(interp, sandbox.ScriptName)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Own process group so the deadline kill reaches grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return sandbox.FailureResult(sandbox.FailureMissingInterpreter, err.Error())
		}
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("starting interpreter: %v", err))
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-timer.C:
		r.killTree(cmd)
		<-done
		return sandbox.FailureResult(sandbox.FailureTimeout, fmt.Sprintf("%s exceeded", deadline))
	case <-ctx.Done():
		r.killTree(cmd)
		<-done
		return sandbox.FailureResult(sandbox.FailureTimeout, fmt.Sprintf("cancelled: %v", ctx.Err()))
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return sandbox.ExitFailure(exitErr.ExitCode(), stdout.String(), stderr.String())
		}
		if err != nil {
			return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("waiting for interpreter: %v", err))
		}
	}

	artifact, err := readArtifact(filepath.Join(dir, sandbox.PlotName))
	if err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("reading artifact: %v", err))
	}
	return sandbox.Classify(stdout.String(), artifact)
}

// killTree sends SIGKILL to the subprocess group.
func (r *Runner) killTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// Fall back to killing just the direct child.
		_ = cmd.Process.Kill()
	}
}

// readArtifact returns the artifact bytes, or nil when the file was simply
// never produced.
func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
