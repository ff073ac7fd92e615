// Package pythontest provides a fake Python interpreter for tests.
//
// The fake is a POSIX shell script that understands the handful of
// invocations effmap-pack makes (--version, -c "import X", -m pip install,
// -m PyInstaller) and records them in a state directory, so tests can
// exercise the real os/exec paths without a Python installation.
package pythontest

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

const script = `#!/bin/sh
state="$FAKE_PY_STATE"
case "$1" in
--version)
	echo "Python 3.11.4"
	;;
-c)
	mod="${2#import }"
	[ -f "$state/modules/$mod" ]
	;;
-m)
	tool="$2"
	shift 2
	case "$tool" in
	pip)
		echo "$2" >> "$state/pip.log"
		[ -z "$FAKE_PIP_FAIL" ] || { echo "ERROR: no matching distribution" >&2; exit 1; }
		mod="$2"
		[ ! -f "$state/provides/$2" ] || mod=$(cat "$state/provides/$2")
		touch "$state/modules/$mod"
		;;
	PyInstaller)
		printf '%s\n' "$@" > "$state/pyinstaller.args"
		echo "INFO: PyInstaller: 6.3.0"
		[ -z "$FAKE_PYINSTALLER_EXIT" ] || exit "$FAKE_PYINSTALLER_EXIT"
		name=""
		dist="dist"
		work="build"
		while [ $# -gt 0 ]; do
			case "$1" in
			--name) name="$2"; shift ;;
			--distpath) dist="$2"; shift ;;
			--workpath) work="$2"; shift ;;
			esac
			shift
		done
		mkdir -p "$dist/$name" "$work/$name"
		echo "exe" > "$dist/$name/$name.exe"
		echo "# spec" > "$name.spec"
		;;
	*)
		echo "No module named $tool" >&2
		exit 1
		;;
	esac
	;;
*)
	exit 2
	;;
esac
`

// Fake is an installed fake interpreter.
type Fake struct {
	// Path is the absolute path of the interpreter script.
	Path string

	// StateDir records installed modules and invocation logs.
	StateDir string
}

// New writes the fake interpreter into a temp dir and points the
// FAKE_PY_STATE environment variable at its state directory. The listed
// modules start out importable.
//
// Tests using New cannot run in parallel because of t.Setenv. The fake
// needs /bin/sh, so the test is skipped on Windows.
func New(t *testing.T, modules ...string) *Fake {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake python interpreter requires /bin/sh")
	}

	dir := t.TempDir()
	state := filepath.Join(dir, "state")
	if err := os.MkdirAll(filepath.Join(state, "modules"), 0755); err != nil {
		t.Fatalf("create fake python state: %v", err)
	}

	path := filepath.Join(dir, "python")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake python: %v", err)
	}
	t.Setenv("FAKE_PY_STATE", state)
	t.Setenv("FAKE_PIP_FAIL", "")
	t.Setenv("FAKE_PYINSTALLER_EXIT", "")

	f := &Fake{Path: path, StateDir: state}
	for _, m := range modules {
		f.MarkInstalled(t, m)
	}
	return f
}

// MarkInstalled makes module importable.
func (f *Fake) MarkInstalled(t *testing.T, module string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.StateDir, "modules", module), nil, 0644); err != nil {
		t.Fatalf("mark %s installed: %v", module, err)
	}
}

// Provides makes pip install of pkg add module instead of a module named
// after the package, like pillow providing PIL.
func (f *Fake) Provides(t *testing.T, pkg, module string) {
	t.Helper()
	dir := filepath.Join(f.StateDir, "provides")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create provides dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, pkg), []byte(module), 0644); err != nil {
		t.Fatalf("register %s -> %s: %v", pkg, module, err)
	}
}

// FailPip makes every pip install exit 1.
func (f *Fake) FailPip(t *testing.T) {
	t.Setenv("FAKE_PIP_FAIL", "1")
}

// FailPackaging makes PyInstaller exit with code.
func (f *Fake) FailPackaging(t *testing.T, code int) {
	t.Setenv("FAKE_PYINSTALLER_EXIT", strconv.Itoa(code))
}

// PipInstalls returns the packages passed to pip install, in order.
func (f *Fake) PipInstalls() []string {
	return f.lines("pip.log")
}

// PackagerArgs returns the arguments of the last PyInstaller run, or nil
// if it never ran.
func (f *Fake) PackagerArgs() []string {
	return f.lines("pyinstaller.args")
}

func (f *Fake) lines(name string) []string {
	data, err := os.ReadFile(filepath.Join(f.StateDir, name))
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
