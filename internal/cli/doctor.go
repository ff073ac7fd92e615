// Package cli: doctor.go implements the "effmap-pack doctor" command.
//
// doctor runs only the dependency step of a build: it locates the
// interpreter (or pings Docker) and reports each Python dependency.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/packager"
	"github.com/shinji-kodama/effmap-pack/internal/pipeline"
)

// doctorFlags holds the flag values for the doctor command.
type doctorFlags struct {
	projectFlags

	// install pip-installs missing dependencies.
	install bool
}

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	flags := &doctorFlags{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the packaging toolchain",
		Long: `Check that a Python interpreter (or the Docker daemon) is available and
report whether each configured dependency is importable.

Exits with code 4 when a dependency is missing.

Examples:
  effmap-pack doctor
  effmap-pack doctor --install`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), streamsOf(cmd), flags)
		},
	}

	flags.projectFlags.register(cmd)
	cmd.Flags().BoolVar(&flags.install, "install", false, "Install missing dependencies with pip")

	return cmd
}

// doctorResultJSON is the JSON output of the doctor command.
type doctorResultJSON struct {
	Backend      model.Backend            `json:"backend"`
	Toolchain    string                   `json:"toolchain"`
	Dependencies []model.DependencyStatus `json:"dependencies"`
}

// runDoctor is the main logic function for the doctor command.
func runDoctor(ctx context.Context, s streams, flags *doctorFlags) error {
	proj, err := loadProject(&flags.projectFlags, nil)
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

	p := &pipeline.Pipeline{
		Config:    proj.cfg,
		Workspace: proj.ws,
		Backend:   backend,
		Reporter:  reporter,
	}

	res := p.NewResult()
	statuses, err := p.Dependencies(ctx, res, flags.install)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		out := doctorResultJSON{
			Backend:      backend.Kind(),
			Toolchain:    res.Toolchain,
			Dependencies: make([]model.DependencyStatus, 0, len(statuses)),
		}
		out.Dependencies = append(out.Dependencies, statuses...)
		if err := printJSON(s.out, out); err != nil {
			return err
		}
	}

	var missing []string
	for _, st := range statuses {
		if st.State == model.DependencyMissing {
			missing = append(missing, st.Module)
		}
	}
	if len(missing) > 0 {
		return model.NewCLIError(model.ExitDependencyFailed,
			fmt.Sprintf("missing Python modules: %s (run `effmap-pack doctor --install`)", strings.Join(missing, ", ")))
	}
	return nil
}
