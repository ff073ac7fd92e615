package packager

import (
	"context"
	"fmt"
	"io"

	"github.com/shinji-kodama/effmap-pack/internal/docker"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/python"
)

// Backend runs the packaging tool.
type Backend interface {
	// Kind identifies the backend.
	Kind() model.Backend

	// Describe checks the toolchain is usable and returns a one-line
	// description of it (interpreter version and path, or image).
	Describe(ctx context.Context) (string, error)

	// Check probes the Python dependencies and installs missing ones
	// when install is true.
	Check(ctx context.Context, deps []model.Dependency, install bool, notify python.DependencyEvent) ([]model.DependencyStatus, error)

	// Package runs PyInstaller with args. A non-zero exit of the tool is
	// reported as *model.PackagingError.
	Package(ctx context.Context, args []string) error

	// Close releases connections held by the backend.
	Close() error
}

// Options are the inputs shared by every backend.
type Options struct {
	// ProjectDir is the absolute project directory.
	ProjectDir string
	// Stdout and Stderr receive the packaging tool's output.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns the backend selected by cfg. Nothing is probed until the
// first call on the backend.
func New(cfg *model.BuildConfig, opts Options) (Backend, error) {
	switch cfg.Packager.Backend {
	case model.BackendLocal:
		return &Local{Preferred: cfg.Python, Options: opts}, nil
	case model.BackendDocker:
		return &Docker{
			Image:   cfg.Packager.Image,
			Command: cfg.Packager.Command,
			Name:    cfg.Name,
			Options: opts,
		}, nil
	default:
		return nil, model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("unknown backend %q", cfg.Packager.Backend))
	}
}

// Local runs PyInstaller as `python -m PyInstaller` in the project
// directory.
type Local struct {
	// Preferred is the configured interpreter; empty auto-detects.
	Preferred string
	Options

	env *python.Env
}

// Kind returns model.BackendLocal.
func (l *Local) Kind() model.Backend { return model.BackendLocal }

// Env locates the interpreter on first use.
func (l *Local) Env() (*python.Env, error) {
	if l.env != nil {
		return l.env, nil
	}
	env, err := python.Locate(l.Preferred, l.ProjectDir)
	if err != nil {
		return nil, err
	}
	env.Stdout = l.Stdout
	env.Stderr = l.Stderr
	l.env = env
	return env, nil
}

// Describe returns e.g. "Python 3.11.4 (/usr/bin/python3)".
func (l *Local) Describe(ctx context.Context) (string, error) {
	env, err := l.Env()
	if err != nil {
		return "", err
	}
	version, err := env.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", version, env.Interpreter), nil
}

// Check probes and installs dependencies with the local interpreter.
func (l *Local) Check(ctx context.Context, deps []model.Dependency, install bool, notify python.DependencyEvent) ([]model.DependencyStatus, error) {
	env, err := l.Env()
	if err != nil {
		return nil, err
	}
	return env.EnsureDependencies(ctx, deps, install, notify)
}

// Package runs `python -m PyInstaller args...`.
func (l *Local) Package(ctx context.Context, args []string) error {
	env, err := l.Env()
	if err != nil {
		return err
	}
	return env.RunModule(ctx, ModuleName, args...)
}

// Close is a no-op.
func (l *Local) Close() error { return nil }

// Docker runs the packaging command inside Image with the project
// directory mounted at docker.WorkDir. The image is expected to ship
// PyInstaller and the application's dependencies.
type Docker struct {
	Image   string
	Command []string
	// Name labels the container with the application being packaged.
	Name string
	Options

	client *docker.Client
}

// Kind returns model.BackendDocker.
func (d *Docker) Kind() model.Backend { return model.BackendDocker }

func (d *Docker) connect(ctx context.Context) (*docker.Client, error) {
	if d.client != nil {
		return d.client, nil
	}
	c, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	d.client = c
	return c, nil
}

// Describe pings the daemon and returns the image name.
func (d *Docker) Describe(ctx context.Context) (string, error) {
	if _, err := d.connect(ctx); err != nil {
		return "", err
	}
	return d.Image, nil
}

// Check only verifies the daemon: dependencies live in the image and
// cannot be installed from outside it.
func (d *Docker) Check(ctx context.Context, deps []model.Dependency, install bool, notify python.DependencyEvent) ([]model.DependencyStatus, error) {
	if _, err := d.connect(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// Package runs the packaging container and waits for it to exit.
func (d *Docker) Package(ctx context.Context, args []string) error {
	c, err := d.connect(ctx)
	if err != nil {
		return err
	}
	return docker.Run(ctx, c.Inner(), d.RunOptions(args))
}

// RunOptions returns the container description for args.
func (d *Docker) RunOptions(args []string) docker.RunOptions {
	return docker.RunOptions{
		Image:      d.Image,
		Command:    d.Command,
		Args:       args,
		ProjectDir: d.ProjectDir,
		Labels:     docker.BuildLabels(d.Name, d.ProjectDir),
		Stdout:     d.Stdout,
		Stderr:     d.Stderr,
	}
}

// Client returns the connected Docker client, connecting on first use.
func (d *Docker) Client(ctx context.Context) (*docker.Client, error) {
	return d.connect(ctx)
}

// Close closes the Docker connection if one was opened.
func (d *Docker) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
