// Package cli: clean.go implements the "effmap-pack clean" command.
//
// clean runs only the cleanup step: it removes build/, dist/ and the
// generated .spec file. With --containers it also removes packaging
// containers that an interrupted docker build left behind.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/docker"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/pipeline"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	projectFlags

	// containers also removes leftover packaging containers of the project.
	containers bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove previous build output",
		Long: `Remove the build and dist directories and the generated .spec file.

Examples:
  effmap-pack clean
  effmap-pack clean --containers`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), streamsOf(cmd), flags)
		},
	}

	flags.projectFlags.register(cmd)
	cmd.Flags().BoolVar(&flags.containers, "containers", false, "Also remove leftover docker packaging containers")

	return cmd
}

// cleanResultJSON is the JSON output of the clean command.
type cleanResultJSON struct {
	Step       model.StepResult `json:"step"`
	Warnings   []string         `json:"warnings,omitempty"`
	Containers []string         `json:"containers,omitempty"`
}

// runClean is the main logic function for the clean command.
func runClean(ctx context.Context, s streams, flags *cleanFlags) error {
	proj, err := loadProject(&flags.projectFlags, nil)
	if err != nil {
		return err
	}

	reporter, err := newReporter(s)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Config:    proj.cfg,
		Workspace: proj.ws,
		Reporter:  reporter,
	}
	res := &model.BuildResult{Name: proj.cfg.Name}
	p.Clean(res)

	var removed []string
	if flags.containers {
		removed, err = removeLeftoverContainers(ctx, proj.ws.Root, reporter)
		if err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		return printJSON(s.out, cleanResultJSON{
			Step:       res.Steps[0],
			Warnings:   res.Warnings,
			Containers: removed,
		})
	}
	return nil
}

// removeLeftoverContainers force-removes the packaging containers of
// projectDir and returns their names.
func removeLeftoverContainers(ctx context.Context, projectDir string, reporter *pipeline.Reporter) ([]string, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}

	leftovers, err := docker.ListLeftovers(ctx, cli.Inner(), projectDir)
	if err != nil {
		return nil, err
	}
	VerboseLog("Found %d leftover packaging containers", len(leftovers))

	removed := make([]string, 0, len(leftovers))
	for _, c := range leftovers {
		if err := docker.RemoveContainer(ctx, cli.Inner(), c.ID); err != nil {
			return removed, err
		}
		reporter.Say("clean.container", c.Name)
		removed = append(removed, c.Name)
	}
	return removed, nil
}
