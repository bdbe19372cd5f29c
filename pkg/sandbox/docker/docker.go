// Package docker runs generated programs in disposable containers. It keeps
// the same Execute contract as the local backend and layers on the isolation
// the subprocess runner cannot provide: no network, memory and pid limits,
// and a filesystem reduced to the bind-mounted ephemeral directory.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/mvarela/armada/pkg/sandbox"
	"github.com/mvarela/armada/pkg/sandbox/local"
)

const (
	// LabelManager identifies containers managed by this system.
	LabelManager = "manager"
	// LabelManagerValue is the value of the manager label.
	LabelManagerValue = "armada"
	// DefaultImage is the default execution container image.
	DefaultImage = "armada-python:latest"
	// workDir is the mount point of the ephemeral directory inside the
	// container.
	workDir = "/work"

	memoryLimit = 512 << 20
	pidsLimit   = 128
)

// Runner implements sandbox.Runner using one disposable container per call.
type Runner struct {
	client  *client.Client
	image   string
	baseDir string
	markers []string
}

// Verify interface compliance.
var _ sandbox.Runner = (*Runner)(nil)

// New creates a Docker-backed runner using the ambient docker environment.
func New(image string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return &Runner{client: cli, image: image, markers: local.DefaultMarkers}, nil
}

// Close releases the docker client.
func (r *Runner) Close() error {
	return r.client.Close()
}

// Execute materializes the code into an ephemeral host directory, runs it in
// a fresh container with that directory as its working dir, and classifies
// the outcome. Container and directory are removed on every exit path.
func (r *Runner) Execute(ctx context.Context, code string, deadline time.Duration) sandbox.Result {
	if res := sandbox.Vet(code, r.markers); res != nil {
		return *res
	}

	base := r.baseDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "armada-sbx-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o777); err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("creating work dir: %v", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove sandbox dir", "dir", dir, "error", err)
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, sandbox.ScriptName), []byte(code), 0o644); err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("writing script: %v", err))
	}

	if _, _, err := r.client.ImageInspectWithRaw(ctx, r.image); err != nil {
		return sandbox.FailureResult(sandbox.FailureMissingInterpreter,
			fmt.Sprintf("execution image %q not found", r.image))
	}

	pids := int64(pidsLimit)
	cfg := &container.Config{
		Image:           r.image,
		Cmd:             []string{"python3", sandbox.ScriptName},
		WorkingDir:      workDir,
		NetworkDisabled: true,
		Labels: map[string]string{
			LabelManager: LabelManagerValue,
		},
	}
	hostCfg := &container.HostConfig{
		Binds: []string{dir + ":" + workDir},
		Resources: container.Resources{
			Memory:    memoryLimit,
			PidsLimit: &pids,
		},
	}

	name := "armada-exec-" + uuid.NewString()
	resp, err := r.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("creating container: %v", err))
	}
	defer r.remove(resp.ID)

	if err := r.client.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("starting container: %v", err))
	}

	waitCh, errCh := r.client.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var exitCode int64
	select {
	case <-timer.C:
		if err := r.client.ContainerKill(context.Background(), resp.ID, "KILL"); err != nil {
			slog.Warn("Failed to kill container", "id", resp.ID, "error", err)
		}
		return sandbox.FailureResult(sandbox.FailureTimeout, fmt.Sprintf("%s exceeded", deadline))
	case err := <-errCh:
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("waiting for container: %v", err))
	case status := <-waitCh:
		exitCode = status.StatusCode
	}

	stdout, stderr, err := r.logs(ctx, resp.ID)
	if err != nil {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("reading container logs: %v", err))
	}

	if exitCode != 0 {
		return sandbox.ExitFailure(int(exitCode), stdout, stderr)
	}

	artifact, err := os.ReadFile(filepath.Join(dir, sandbox.PlotName))
	if err != nil && !os.IsNotExist(err) {
		return sandbox.FailureResult(sandbox.FailureIO, fmt.Sprintf("reading artifact: %v", err))
	}
	return sandbox.Classify(stdout, artifact)
}

// logs fetches and demultiplexes the container's output streams.
func (r *Runner) logs(ctx context.Context, id string) (stdout, stderr string, err error) {
	rc, err := r.client.ContainerLogs(ctx, id, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, rc); err != nil {
		return "", "", err
	}
	return outBuf.String(), errBuf.String(), nil
}

// remove force-removes the container, tolerating a fully cancelled request
// context by using a fresh one.
func (r *Runner) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.client.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil {
		slog.Warn("Failed to remove container", "id", id, "error", err)
	}
}
