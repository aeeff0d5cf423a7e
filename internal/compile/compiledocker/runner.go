package compiledocker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/k11v/emload/internal/compile"
)

// DefaultImage ships emcc and em++ on its PATH.
const DefaultImage = "emscripten/emsdk:3.1.74"

// apiClient is the part of *client.Client the runner uses.
type apiClient interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

var _ compile.Runner = (*Runner)(nil)

// Runner runs the compiler inside a throwaway container.
// Every mount is bind-mounted at its host path so the arguments built
// for the host stay valid inside the container.
type Runner struct {
	client apiClient // required
	image  string    // required
}

// NewRunner connects to the Docker daemon described by the environment.
func NewRunner(image string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("compiledocker.NewRunner: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return &Runner{client: cli, image: image}, nil
}

func (r *Runner) Run(ctx context.Context, params *compile.RunParams) (*compile.Outcome, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := params.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("compiledocker.Runner: %w", err)
		}
		dir = wd
	}

	mounts := make([]mount.Mount, 0, len(params.Mounts)+1)
	seen := make(map[string]struct{})
	for _, m := range append([]string{dir}, params.Mounts...) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: m, Target: m})
	}

	createResp, err := r.client.ContainerCreate(
		ctx,
		&container.Config{
			Image:        r.image,
			Cmd:          append(strslice.StrSlice{params.Executable}, params.Args...),
			WorkingDir:   dir,
			User:         fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
			AttachStdout: true,
			AttachStderr: true,
		},
		&container.HostConfig{
			NetworkMode: "none",
			CapDrop:     strslice.StrSlice{"ALL"},
			Mounts:      mounts,
		},
		nil,
		nil,
		"",
	)
	if err != nil {
		return nil, &compile.SpawnError{Executable: params.Executable, Err: err}
	}
	defer func() {
		err := r.client.ContainerRemove(context.WithoutCancel(ctx), createResp.ID, container.RemoveOptions{Force: true})
		if err != nil {
			logger.Error("didn't remove container", "id", createResp.ID, "error", err)
		}
	}()
	if len(createResp.Warnings) > 0 {
		logger.Warn("", "warnings", createResp.Warnings)
	}

	if err = r.client.ContainerStart(ctx, createResp.ID, container.StartOptions{}); err != nil {
		return nil, &compile.SpawnError{Executable: params.Executable, Err: err}
	}

	logs, err := r.client.ContainerLogs(ctx, createResp.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("compiledocker.Runner: %w", err)
	}
	defer logs.Close()

	stdout := &compile.LineWriter{Logger: logger, Stream: "stdout"}
	stderr := &compile.LineWriter{Logger: logger, Stream: "stderr"}
	copyErrCh := make(chan error, 1)
	go func() {
		defer close(copyErrCh)
		_, err := stdcopy.StdCopy(stdout, stderr, logs)
		stdout.Flush()
		stderr.Flush()
		copyErrCh <- err
	}()

	var waitResp container.WaitResponse
	waitRespCh, waitErrCh := r.client.ContainerWait(ctx, createResp.ID, container.WaitConditionNotRunning)
	select {
	case err = <-waitErrCh:
		return nil, fmt.Errorf("compiledocker.Runner: %w", err)
	case waitResp = <-waitRespCh:
	case <-ctx.Done():
		return nil, fmt.Errorf("compiledocker.Runner: %w", ctx.Err())
	}
	if waitResp.Error != nil {
		return nil, fmt.Errorf("compiledocker.Runner: %s", waitResp.Error.Message)
	}

	if err = <-copyErrCh; err != nil {
		return nil, fmt.Errorf("compiledocker.Runner: %w", err)
	}

	return &compile.Outcome{
		ExitCode: int(waitResp.StatusCode),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
