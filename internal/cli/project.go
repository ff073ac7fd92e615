package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/effmap-pack/internal/config"
	"github.com/shinji-kodama/effmap-pack/internal/i18n"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/pipeline"
	"github.com/shinji-kodama/effmap-pack/internal/workspace"
)

// projectFlags locate the project and its config file. Every command that
// works on a project embeds them.
type projectFlags struct {
	dir        string
	configFile string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "dir", "C", ".", "Project directory containing run.py")
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "",
		"Config file (default: effmap-pack.{jsonc,json,yaml,yml} in the project directory)")
}

// project is a loaded project: its directory and effective configuration.
type project struct {
	cfg        *model.BuildConfig
	ws         *workspace.Workspace
	configFile string
}

// loadProject resolves the project directory and loads its configuration.
// env carries the EFFMAP_* overrides; nil reads them from the process
// environment.
func loadProject(f *projectFlags, env *config.Environment) (*project, error) {
	ws, err := workspace.New(f.dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigInvalid, "invalid project directory", err)
	}

	if env == nil {
		env, err = config.ParseEnv()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitConfigInvalid, "invalid environment", err)
		}
	}

	cfg, file, err := config.Load(config.Options{Dir: ws.Root, File: f.configFile, Env: env})
	if err != nil {
		return nil, err
	}

	if file == "" {
		VerboseLog("Project %s: no config file, using defaults", ws.Root)
	} else {
		VerboseLog("Project %s: loaded %s", ws.Root, file)
	}
	return &project{cfg: cfg, ws: ws, configFile: file}, nil
}

// streams are the output writers of a command.
type streams struct {
	out io.Writer
	err io.Writer
}

func streamsOf(cmd *cobra.Command) streams {
	return streams{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
}

// progress is where operator messages go: stdout, or stderr when stdout
// carries JSON.
func (s streams) progress() io.Writer {
	if IsJSONOutput() {
		return s.err
	}
	return s.out
}

// messageLanguage returns --lang, else EFFMAP_LANG, else "" (OS locale).
func messageLanguage() string {
	if lang != "" {
		return lang
	}
	if env, err := config.ParseEnv(); err == nil {
		return env.Lang
	}
	return ""
}

// newReporter returns a progress reporter in the selected language.
func newReporter(s streams) (*pipeline.Reporter, error) {
	tr, err := i18n.New(messageLanguage())
	if err != nil {
		return nil, err
	}
	r := pipeline.NewReporter(s.progress(), tr)
	r.Debug = VerboseLog
	return r, nil
}
