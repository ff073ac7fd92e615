package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/effmap-pack/internal/icon"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/python/pythontest"
)

// runCommand executes the root command with args and returns what it
// wrote to stdout and stderr. Global flags are reset first because cobra
// binds them to package variables.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	jsonOutput, verbose, lang, pause = false, false, "", false

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// newProject creates a MotorEffMAP project directory and points
// EFFMAP_PYTHON at a fake interpreter with the given modules.
func newProject(t *testing.T, modules ...string) (string, *pythontest.Fake) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"run.py":          "print('MotorEffMAP')\n",
		"MotorEffMAP.ini": "[main]\n",
		"目标.txt":          "1500\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	fake := pythontest.New(t, modules...)
	t.Setenv("EFFMAP_PYTHON", fake.Path)
	t.Setenv("EFFMAP_BACKEND", "")
	t.Setenv("EFFMAP_IMAGE", "")
	t.Setenv("EFFMAP_LANG", "")
	return dir, fake
}

func TestBuildCommand(t *testing.T) {
	dir, fake := newProject(t, "PyInstaller", "PIL")

	stdout, _, err := runCommand(t, "build", "--dir", dir, "--lang", "en")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[1/5] Checking dependencies...")
	assert.Contains(t, stdout, "INFO: PyInstaller: 6.3.0", "packager output is streamed")
	assert.Contains(t, stdout, "Build complete!")
	assert.FileExists(t, filepath.Join(dir, "dist", "MotorEffMAP", "目标.txt"))
	assert.Equal(t, "run.py", fake.PackagerArgs()[len(fake.PackagerArgs())-1])
}

// TestBuildCommand_JSON keeps stdout machine-readable: the result goes to
// stdout, progress to stderr.
func TestBuildCommand_JSON(t *testing.T) {
	dir, fake := newProject(t, "PyInstaller")
	fake.Provides(t, "pillow", "PIL")

	stdout, stderr, err := runCommand(t, "build", "--dir", dir, "--json", "--lang", "zh")
	require.NoError(t, err)

	var res model.BuildResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "MotorEffMAP", res.Name)
	assert.Equal(t, model.BackendLocal, res.Backend)
	assert.Len(t, res.Steps, 5)
	require.Len(t, res.Dependencies, 2)
	assert.Equal(t, model.DependencyInstalled, res.Dependencies[1].State, "pillow was installed")

	assert.Contains(t, stderr, "[1/5] 检查依赖环境...")
}

func TestBuildCommand_NoInstall(t *testing.T) {
	dir, fake := newProject(t, "PyInstaller")

	_, _, err := runCommand(t, "build", "--dir", dir, "--no-install")
	require.Error(t, err)
	assert.Equal(t, model.ExitDependencyFailed, model.ExitCodeOf(err))
	assert.Empty(t, fake.PipInstalls())
}

func TestBuildCommand_MissingInterpreter(t *testing.T) {
	dir, _ := newProject(t)
	t.Setenv("EFFMAP_PYTHON", filepath.Join(t.TempDir(), "missing-python"))

	_, _, err := runCommand(t, "build", "--dir", dir)
	assert.Equal(t, model.ExitPythonNotFound, model.ExitCodeOf(err))
}

func TestBuildCommand_InvalidBackendFlag(t *testing.T) {
	dir, _ := newProject(t)

	_, _, err := runCommand(t, "build", "--dir", dir, "--backend", "podman")
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))
}

func TestDoctorCommand(t *testing.T) {
	dir, fake := newProject(t, "PyInstaller")

	stdout, _, err := runCommand(t, "doctor", "--dir", dir, "--json")
	require.Error(t, err)
	assert.Equal(t, model.ExitDependencyFailed, model.ExitCodeOf(err))
	assert.Empty(t, fake.PipInstalls(), "doctor does not install by default")

	var out doctorResultJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Contains(t, out.Toolchain, "Python 3.11.4")
	require.Len(t, out.Dependencies, 2)
	assert.Equal(t, model.DependencyPresent, out.Dependencies[0].State)
	assert.Equal(t, model.DependencyMissing, out.Dependencies[1].State)

	fake.Provides(t, "pillow", "PIL")
	_, _, err = runCommand(t, "doctor", "--dir", dir, "--install")
	require.NoError(t, err)
	assert.Equal(t, []string{"pillow"}, fake.PipInstalls())
}

func TestIconCommand(t *testing.T) {
	dir, _ := newProject(t)
	f, err := os.Create(filepath.Join(dir, "图标.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 40, 20))))
	require.NoError(t, f.Close())

	_, _, err = runCommand(t, "icon", "--dir", dir, "--sizes", "48,16", "--output", "app.ico")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "app.ico"))
	require.NoError(t, err)
	entries, err := icon.ReadEntries(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 48, entries[0].Width)
}

func TestIconCommand_MissingSource(t *testing.T) {
	dir, _ := newProject(t)

	_, _, err := runCommand(t, "icon", "--dir", dir)
	assert.Equal(t, model.ExitResourceMissing, model.ExitCodeOf(err))
}

func TestCleanCommand(t *testing.T) {
	dir, _ := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist", "MotorEffMAP"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MotorEffMAP.spec"), nil, 0644))

	stdout, _, err := runCommand(t, "clean", "--dir", dir, "--json")
	require.NoError(t, err)

	var out cleanResultJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, model.StepDone, out.Step.Status)
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
	assert.NoFileExists(t, filepath.Join(dir, "MotorEffMAP.spec"))
	assert.FileExists(t, filepath.Join(dir, "run.py"))
}

func TestConfigInitAndShow(t *testing.T) {
	dir, _ := newProject(t)

	stdout, _, err := runCommand(t, "config", "init", "--dir", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "effmap-pack.yaml")
	assert.FileExists(t, filepath.Join(dir, "effmap-pack.yaml"))

	_, _, err = runCommand(t, "config", "init", "--dir", dir)
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err), "existing config is not overwritten")

	stdout, _, err = runCommand(t, "config", "show", "--dir", dir, "--format", "json")
	require.NoError(t, err)
	var cfg model.BuildConfig
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "MotorEffMAP", cfg.Name)
	assert.Equal(t, "MotorEffMAP.ico", cfg.Icon.Output)

	_, _, err = runCommand(t, "config", "show", "--dir", dir, "--format", "toml")
	assert.Error(t, err)
}

func TestConfigSchema(t *testing.T) {
	stdout, _, err := runCommand(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	assert.Contains(t, stdout, "packager")
}

func TestPrintError(t *testing.T) {
	jsonOutput = false
	var buf bytes.Buffer
	printError(&buf, model.WrapCLIError(model.ExitPackagingFailed, "packaging MotorEffMAP failed",
		&model.PackagingError{ExitCode: 1}))
	assert.Equal(t, "Error: packaging MotorEffMAP failed: packaging tool exited with code 1\n", buf.String())

	buf.Reset()
	printError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	wrapped := fmt.Errorf("load project: %w",
		model.WrapCLIError(model.ExitConfigInvalid, "invalid configuration", errors.New("bad yaml")))
	printError(&buf, wrapped)
	assert.Equal(t, "Error: load project: invalid configuration: bad yaml\n", buf.String())

	jsonOutput = true
	defer func() { jsonOutput = false }()
	buf.Reset()
	printError(&buf, model.NewCLIError(model.ExitResourceMissing, "missing 目标.txt"))

	var out map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(model.ExitResourceMissing), out["error"]["code"])
	assert.Equal(t, "missing 目标.txt", out["error"]["message"])

	buf.Reset()
	printError(&buf, fmt.Errorf("step 5: %w",
		model.WrapCLIError(model.ExitResourceMissing, "copy failed", errors.New("disk full"))))
	out = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(model.ExitResourceMissing), out["error"]["code"])
	assert.Equal(t, "step 5: copy failed", out["error"]["message"])
	assert.Equal(t, "disk full", out["error"]["detail"])
}

func TestWaitForEnter(t *testing.T) {
	lang = "zh"
	defer func() { lang = "" }()

	var prompt bytes.Buffer
	waitForEnter(strings.NewReader("\n"), &prompt)
	assert.Equal(t, "按回车键退出...", prompt.String())

	// EOF ends the wait as well.
	waitForEnter(strings.NewReader(""), &prompt)
}
