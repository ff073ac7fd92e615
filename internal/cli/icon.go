// Package cli: icon.go implements the "effmap-pack icon" command.
//
// icon runs only the icon step and keeps the resulting .ico, which is
// handy for checking how the icon renders at each size.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/icon"
	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// iconFlags holds the flag values for the icon command.
type iconFlags struct {
	projectFlags

	// source, output and sizes override the config's icon settings.
	source string
	output string
	sizes  []int
}

// NewIconCommand creates the "icon" cobra command.
func NewIconCommand() *cobra.Command {
	flags := &iconFlags{}

	cmd := &cobra.Command{
		Use:   "icon",
		Short: "Convert the icon PNG into a Windows .ico",
		Long: `Convert the configured PNG (default 图标.png) into a multi-size .ico file.

Every size is rendered onto a transparent square canvas with the image
centred and its aspect ratio preserved.

Examples:
  effmap-pack icon
  effmap-pack icon --source logo.png --output app.ico --sizes 256,48,16`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runIcon(streamsOf(cmd), flags)
		},
	}

	flags.projectFlags.register(cmd)
	cmd.Flags().StringVar(&flags.source, "source", "", "PNG to convert (default from config)")
	cmd.Flags().StringVar(&flags.output, "output", "", "ICO to write (default from config)")
	cmd.Flags().IntSliceVar(&flags.sizes, "sizes", nil, "Edge lengths to embed, e.g. 256,128,48,32,16 (default from config)")

	return cmd
}

// iconResultJSON is the JSON output of the icon command.
type iconResultJSON struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Sizes  []int  `json:"sizes"`
}

// runIcon is the main logic function for the icon command.
func runIcon(s streams, flags *iconFlags) error {
	proj, err := loadProject(&flags.projectFlags, nil)
	if err != nil {
		return err
	}

	cfg := proj.cfg.Icon
	if flags.source != "" {
		cfg.Source = flags.source
	}
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if len(flags.sizes) > 0 {
		cfg.Sizes = flags.sizes
	}
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = icon.DefaultSizes
	}

	reporter, err := newReporter(s)
	if err != nil {
		return err
	}

	if !proj.ws.IsFile(cfg.Source) {
		return model.NewCLIError(model.ExitResourceMissing,
			fmt.Sprintf("icon source %s not found", proj.ws.Path(cfg.Source)))
	}

	reporter.Say("icon.found", cfg.Source)
	if err := icon.ConvertFile(proj.ws.Path(cfg.Source), proj.ws.Path(cfg.Output), cfg.Sizes); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "icon conversion failed", err)
	}
	reporter.Say("icon.written", proj.ws.Path(cfg.Output))

	if IsJSONOutput() {
		return printJSON(s.out, iconResultJSON{
			Source: proj.ws.Path(cfg.Source),
			Output: proj.ws.Path(cfg.Output),
			Sizes:  cfg.Sizes,
		})
	}
	return nil
}
