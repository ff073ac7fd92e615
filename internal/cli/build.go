// Package cli: build.go implements the "effmap-pack build" command.
//
// build runs the five packaging steps against a project directory and
// leaves the executable folder in <distDir>/<name>.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/config"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/packager"
	"github.com/shinji-kodama/effmap-pack/internal/pipeline"
)

// buildFlags holds the flag values for the build command.
type buildFlags struct {
	projectFlags

	// noInstall reports missing dependencies instead of pip-installing them.
	noInstall bool

	// backend and image override the config's packager backend.
	backend string
	image   string

	// skipIcon builds with PyInstaller's default icon.
	skipIcon bool
}

// NewBuildCommand creates the "build" cobra command.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the executable folder",
		Long: `Build the application into a standalone executable folder.

Steps:
  [1/5] check the Python dependencies, installing missing ones with pip
  [2/5] convert the icon PNG into an .ico file, if present
  [3/5] remove the previous build/, dist/ and .spec file
  [4/5] run PyInstaller
  [5/5] copy the configuration files next to the executable

Examples:
  effmap-pack build
  effmap-pack build --dir ./MotorEffMAP --lang zh --pause
  effmap-pack build --backend docker
  effmap-pack build --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), streamsOf(cmd), flags)
		},
	}

	flags.projectFlags.register(cmd)
	cmd.Flags().BoolVar(&flags.noInstall, "no-install", false, "Fail on missing dependencies instead of installing them")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Packaging backend: local, docker (overrides config)")
	cmd.Flags().StringVar(&flags.image, "image", "", "Container image for the docker backend (overrides config)")
	cmd.Flags().BoolVar(&flags.skipIcon, "skip-icon", false, "Do not convert the icon; use the PyInstaller default")

	return cmd
}

// runBuild is the main logic function for the build command.
func runBuild(ctx context.Context, s streams, flags *buildFlags) error {
	env, err := config.ParseEnv()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid environment", err)
	}
	// Command-line flags take precedence over EFFMAP_* variables.
	if flags.backend != "" {
		env.Backend = flags.backend
	}
	if flags.image != "" {
		env.Image = flags.image
	}

	proj, err := loadProject(&flags.projectFlags, env)
	if err != nil {
		return err
	}

	reporter, err := newReporter(s)
	if err != nil {
		return err
	}

	backend, err := packager.New(proj.cfg, packager.Options{
		ProjectDir: proj.ws.Root,
		Stdout:     s.progress(),
		Stderr:     s.err,
	})
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	VerboseLog("Building %s with the %s backend", proj.cfg.Name, backend.Kind())

	p := &pipeline.Pipeline{
		Config:    proj.cfg,
		Workspace: proj.ws,
		Backend:   backend,
		Reporter:  reporter,
		Options: pipeline.Options{
			Install:  !flags.noInstall,
			SkipIcon: flags.skipIcon,
		},
	}

	res, runErr := p.Run(ctx)
	if IsJSONOutput() {
		if err := printJSON(s.out, res); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}
