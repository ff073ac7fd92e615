package docker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// WorkDir is where the project directory is mounted inside the container.
const WorkDir = "/src"

// API is the part of the Docker Engine API used to run and clean up
// packaging containers. *client.Client implements it.
type API interface {
	ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

var _ API = (*client.Client)(nil)

// RunOptions describes a one-shot packaging container.
type RunOptions struct {
	// Image is the image that provides the packaging tool.
	Image string
	// Command replaces the image entrypoint, e.g. ["pyinstaller"].
	Command []string
	// Args are appended to Command. Paths in Args must be relative to
	// the project directory or use forward slashes below WorkDir.
	Args []string
	// ProjectDir is the absolute host directory bind-mounted at WorkDir.
	ProjectDir string
	// Labels are applied to the container.
	Labels map[string]string

	// Stdout and Stderr receive the container's output streams.
	Stdout io.Writer
	Stderr io.Writer
}

// ContainerSpec builds the create request for opts.
func ContainerSpec(opts RunOptions) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:        opts.Image,
		Cmd:          append([]string(nil), opts.Args...),
		WorkingDir:   WorkDir,
		Labels:       opts.Labels,
		AttachStdout: true,
		AttachStderr: true,
	}
	if len(opts.Command) > 0 {
		cfg.Entrypoint = append([]string(nil), opts.Command...)
	}

	hostCfg := &container.HostConfig{
		Binds: []string{filepath.Clean(opts.ProjectDir) + ":" + WorkDir},
	}
	return cfg, hostCfg
}

// Run creates the container described by opts, streams its output until
// it exits and removes it. The image is pulled when it is not present
// locally. A non-zero exit status is returned as *model.PackagingError;
// daemon failures are model.CLIError with ExitDockerNotRunning.
func Run(ctx context.Context, api API, opts RunOptions) error {
	if err := ensureImage(ctx, api, opts.Image, opts.Stderr); err != nil {
		return err
	}

	cfg, hostCfg := ContainerSpec(opts)
	created, err := api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create packaging container from %q", opts.Image),
			err,
		)
	}
	// The container is removed even when ctx is already cancelled.
	defer func() {
		_ = RemoveContainer(context.WithoutCancel(ctx), api, created.ID)
	}()

	// Register the wait before starting so a fast exit is not missed.
	waitCh, errCh := api.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", created.ID),
			err,
		)
	}

	logsDone := make(chan error, 1)
	logs, err := api.ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		logsDone <- err
	} else {
		go func() {
			defer logs.Close()
			_, err := stdcopy.StdCopy(writerOrDiscard(opts.Stdout), writerOrDiscard(opts.Stderr), logs)
			logsDone <- err
		}()
	}

	var status int64
	select {
	case res := <-waitCh:
		if res.Error != nil {
			return model.NewCLIError(model.ExitPackagingFailed, res.Error.Message)
		}
		status = res.StatusCode
	case err := <-errCh:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return model.WrapCLIError(model.ExitDockerNotRunning, "failed waiting for packaging container", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	// Output is best effort; the exit status decides the outcome.
	<-logsDone

	if status != 0 {
		return &model.PackagingError{ExitCode: int(status)}
	}
	return nil
}

// ensureImage pulls ref unless it already exists locally. Pull progress
// is written to progress.
func ensureImage(ctx context.Context, api API, ref string, progress io.Writer) error {
	_, err := api.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return model.WrapCLIError(model.ExitDockerNotRunning, fmt.Sprintf("failed to inspect image %q", ref), err)
	}

	rc, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning, fmt.Sprintf("failed to pull image %q", ref), err)
	}
	defer rc.Close()

	if _, err := io.Copy(writerOrDiscard(progress), rc); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning, fmt.Sprintf("failed to pull image %q", ref), err)
	}
	return nil
}

// RemoveContainer force-removes a container by ID.
func RemoveContainer(ctx context.Context, api API, containerID string) error {
	err := api.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// LeftoverContainer is a packaging container that outlived its build.
type LeftoverContainer struct {
	ID     string
	Name   string
	App    string
	Status string
}

// ListLeftovers returns packaging containers of projectDir that still
// exist, running or not. An empty projectDir lists those of every project.
func ListLeftovers(ctx context.Context, api API, projectDir string) ([]LeftoverContainer, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: ProjectFilter(projectDir),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]LeftoverContainer, 0, len(containers))
	for _, c := range containers {
		result = append(result, toLeftover(c))
	}
	return result, nil
}

func toLeftover(c container.Summary) LeftoverContainer {
	name := ""
	if len(c.Names) > 0 {
		// The API prefixes names with "/".
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return LeftoverContainer{
		ID:     c.ID,
		Name:   name,
		App:    c.Labels[LabelName],
		Status: string(c.State),
	}
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
