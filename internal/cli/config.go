// Package cli: config.go implements the "effmap-pack config" command
// group: show, schema and init.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/config"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/workspace"
)

// NewConfigCommand creates the "config" cobra command and its subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the build configuration",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSchemaCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

// configShowFlags holds the flag values for "config show".
type configShowFlags struct {
	projectFlags

	// format is "yaml" or "json". --json implies json.
	format string
}

func newConfigShowCommand() *cobra.Command {
	flags := &configShowFlags{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration a build would use: defaults, overlaid with the
project config file and EFFMAP_* environment variables.

Examples:
  effmap-pack config show
  effmap-pack config show --format json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(streamsOf(cmd), flags)
		},
	}

	flags.projectFlags.register(cmd)
	cmd.Flags().StringVar(&flags.format, "format", "yaml", "Output format: yaml, json")

	return cmd
}

// runConfigShow is the main logic function for "config show".
func runConfigShow(s streams, flags *configShowFlags) error {
	proj, err := loadProject(&flags.projectFlags, nil)
	if err != nil {
		return err
	}

	if IsJSONOutput() || flags.format == "json" {
		return printJSON(s.out, proj.cfg)
	}
	if flags.format != "yaml" {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid format %q: valid values are yaml, json", flags.format))
	}

	data, err := config.Marshal(proj.cfg, "effmap-pack.yaml")
	if err != nil {
		return err
	}
	_, err = s.out.Write(data)
	return err
}

func newConfigSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}
}

// configInitFlags holds the flag values for "config init".
type configInitFlags struct {
	dir    string
	format string
	force  bool
}

func newConfigInitCommand() *cobra.Command {
	flags := &configInitFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write effmap-pack.jsonc (or effmap-pack.yaml) into the project directory,
pre-filled with the settings of the default MotorEffMAP build.

Examples:
  effmap-pack config init
  effmap-pack config init --format yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(streamsOf(cmd), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.dir, "dir", "C", ".", "Project directory")
	cmd.Flags().StringVar(&flags.format, "format", "jsonc", "File format: jsonc, yaml")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite an existing config file")

	return cmd
}

// runConfigInit is the main logic function for "config init".
func runConfigInit(s streams, flags *configInitFlags) error {
	var name string
	switch flags.format {
	case "jsonc":
		name = "effmap-pack.jsonc"
	case "yaml":
		name = "effmap-pack.yaml"
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid format %q: valid values are jsonc, yaml", flags.format))
	}

	ws, err := workspace.New(flags.dir)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid project directory", err)
	}

	if existing := config.Find(ws.Root); existing != "" && !flags.force {
		return model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("%s already exists (use --force to overwrite)", existing))
	}

	cfg := config.Default()
	data, err := config.Marshal(cfg, name)
	if err != nil {
		return err
	}

	path := filepath.Join(ws.Root, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write config file", err)
	}
	VerboseLog("Wrote %d bytes to %s", len(data), path)

	if IsJSONOutput() {
		return printJSON(s.out, map[string]string{"path": path})
	}
	_, err = fmt.Fprintf(s.out, "Wrote %s\n", path)
	return err
}
