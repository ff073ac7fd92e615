// Package cli implements the cobra-based CLI commands for effmap-pack.
//
// Each subcommand (build, doctor, icon, clean, config) is defined in its
// own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/i18n"
	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput prints results as JSON on stdout. Progress messages move
	// to stderr so stdout stays machine-readable.
	jsonOutput bool

	// verbose enables diagnostic output on stderr.
	verbose bool

	// lang selects the message language ("en", "zh"). Empty falls back to
	// EFFMAP_LANG and then to the OS locale.
	lang string

	// pause waits for Enter before the process exits, so a window opened
	// by double-clicking the binary stays readable.
	pause bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; subcommands do.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "effmap-pack",
		Short: "Package the MotorEffMAP desktop application",
		Long: `effmap-pack bundles the MotorEffMAP Python application into a
standalone executable folder with PyInstaller.

A build checks the Python dependencies, converts 图标.png into a Windows
icon, removes the previous build output, runs PyInstaller and copies the
configuration files next to the executable.`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Message language: en, zh (default: EFFMAP_LANG or the OS locale)")
	rootCmd.PersistentFlags().BoolVar(&pause, "pause", false, "Wait for Enter before exiting")

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewIconCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by the
// returned error. SIGINT cancels the running command, which stops the
// packaging subprocess or container.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(os.Stderr, err)
	}
	if pause {
		waitForEnter(os.Stdin, os.Stderr)
	}
	os.Exit(int(model.ExitCodeOf(err)))
}

// printError writes err in the format selected by --json.
func printError(w io.Writer, err error) {
	message, underlying := err.Error(), error(nil)
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		// Keep any context wrapped around the CLIError as a message prefix.
		prefix := strings.TrimSuffix(err.Error(), cliErr.Error())
		message, underlying = prefix+cliErr.Message, cliErr.Err
	}

	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"code":    int(model.ExitCodeOf(err)),
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// waitForEnter prints the localized pause prompt and blocks until a line
// (or EOF) is read from r.
func waitForEnter(r io.Reader, w io.Writer) {
	tr, err := i18n.New(messageLanguage())
	if err != nil {
		return
	}
	fmt.Fprint(w, tr.T("pause.prompt"))
	_, _ = bufio.NewReader(r).ReadString('\n')
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
