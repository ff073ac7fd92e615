// Package python wraps the Python interpreter used to package the
// application.
//
// Every operation shells out to the interpreter via os/exec rather than
// embedding anything: probing a module is `python -c "import X"`,
// installing is `python -m pip install X`, and packaging is
// `python -m PyInstaller ...`. Going through `-m` guarantees pip and
// PyInstaller belong to the same interpreter (and virtualenv) that will
// be bundled.
package python

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// Candidates lists the interpreter names probed when none is configured,
// in priority order. "py" is the Windows launcher.
var Candidates = []string{"python", "python3", "py"}

// Env is a located Python interpreter.
type Env struct {
	// Interpreter is the absolute path of the python executable.
	Interpreter string

	// Dir is the working directory for every invocation.
	Dir string

	// Stdout and Stderr receive the output of streamed commands
	// (pip install, PyInstaller). nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Locate resolves the interpreter. A non-empty preferred value is used
// instead of Candidates: a bare name is looked up on PATH, a relative path
// such as ".venv/bin/python" is resolved against dir.
//
// Returns a CLIError with ExitPythonNotFound when nothing is found, so a
// missing Python environment aborts the build before any side effect.
func Locate(preferred, dir string) (*Env, error) {
	names := Candidates
	if preferred != "" {
		names = []string{resolveRelative(preferred, dir)}
	}

	for _, name := range names {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return &Env{Interpreter: path, Dir: dir}, nil
	}

	return nil, model.NewCLIError(model.ExitPythonNotFound,
		fmt.Sprintf("Python interpreter not found (tried: %s); install Python or set EFFMAP_PYTHON",
			strings.Join(names, ", ")))
}

// resolveRelative joins a relative path with dir. Bare names are left for
// PATH lookup.
func resolveRelative(name, dir string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	if !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(dir, name)
}

// Version returns the interpreter version string, e.g. "Python 3.11.4".
func (e *Env) Version(ctx context.Context) (string, error) {
	out, err := e.output(ctx, "--version")
	if err != nil {
		return "", model.WrapCLIError(model.ExitPythonNotFound,
			fmt.Sprintf("%s is not a working Python interpreter", e.Interpreter), err)
	}
	return strings.TrimSpace(out), nil
}

// HasModule reports whether module is importable by the interpreter.
func (e *Env) HasModule(ctx context.Context, module string) bool {
	_, err := e.output(ctx, "-c", "import "+module)
	return err == nil
}

// Install runs `python -m pip install pkg`, streaming pip's output.
func (e *Env) Install(ctx context.Context, pkg string) error {
	if err := e.stream(ctx, "-m", "pip", "install", pkg); err != nil {
		return model.WrapCLIError(model.ExitDependencyFailed,
			fmt.Sprintf("pip install %s failed", pkg), err)
	}
	return nil
}

// RunModule runs `python -m module args...`, streaming its output. A
// non-zero exit is reported as *model.PackagingError so the caller can
// print the tool's own exit code.
func (e *Env) RunModule(ctx context.Context, module string, args ...string) error {
	fullArgs := append([]string{"-m", module}, args...)
	return e.stream(ctx, fullArgs...)
}

// output runs the interpreter and captures stdout. stderr is folded into
// the returned error so failures stay diagnosable.
func (e *Env) output(ctx context.Context, args ...string) (string, error) {
	// #nosec G204: the interpreter path comes from LookPath and the
	// arguments are constructed internally.
	cmd := exec.CommandContext(ctx, e.Interpreter, args...)
	cmd.Dir = e.Dir
	cmd.Env = e.environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("python %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, lastLine(stderrStr))
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	// Python 2 and some 3.x builds print --version to stderr.
	if stdout.Len() == 0 {
		return stderr.String(), nil
	}
	return stdout.String(), nil
}

// stream runs the interpreter with output forwarded to e.Stdout/e.Stderr.
func (e *Env) stream(ctx context.Context, args ...string) error {
	// #nosec G204: see output.
	cmd := exec.CommandContext(ctx, e.Interpreter, args...)
	cmd.Dir = e.Dir
	cmd.Env = e.environ()
	cmd.Stdout = writerOrDiscard(e.Stdout)
	cmd.Stderr = writerOrDiscard(e.Stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &model.PackagingError{ExitCode: exitErr.ExitCode()}
	}
	return err
}

// environ returns the child environment. PYTHONIOENCODING keeps pip and
// PyInstaller from failing on the Chinese file names on Windows consoles
// that default to a legacy code page.
func (e *Env) environ() []string {
	env := os.Environ()
	if runtime.GOOS == "windows" {
		env = append(env, "PYTHONIOENCODING=utf-8")
	}
	return env
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// lastLine returns the final line of s, which for a Python traceback is
// the exception message.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
