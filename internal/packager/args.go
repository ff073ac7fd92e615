// Package packager turns a BuildConfig into a PyInstaller invocation and
// runs it on one of two backends: the local Python interpreter or a
// one-shot Docker container.
package packager

import (
	"path/filepath"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// ModuleName is the module run with `python -m` by the local backend.
const ModuleName = "PyInstaller"

// Default output locations. PyInstaller uses these when --distpath and
// --workpath are not given, so they are only passed for other values.
const (
	DefaultDistDir  = "dist"
	DefaultBuildDir = "build"
)

// Args builds the PyInstaller argument list for cfg. iconPath is the ICO
// to embed; empty leaves the packager's default icon. Paths are passed
// relative to the project directory with forward slashes, which both
// backends accept.
//
// With the default configuration the result is
//
//	--noconfirm --onedir --windowed --name MotorEffMAP --clean [--icon=MotorEffMAP.ico] run.py
func Args(cfg *model.BuildConfig, iconPath string) []string {
	p := cfg.Packager
	args := make([]string, 0, 10+len(p.ExtraArgs))

	if p.NoConfirm {
		args = append(args, "--noconfirm")
	}
	args = append(args, p.Mode.Flag())
	if p.Windowed {
		args = append(args, "--windowed")
	}
	args = append(args, "--name", cfg.Name)
	if p.Clean {
		args = append(args, "--clean")
	}
	if iconPath != "" {
		args = append(args, "--icon="+filepath.ToSlash(iconPath))
	}
	if cfg.DistDir != DefaultDistDir {
		args = append(args, "--distpath", filepath.ToSlash(cfg.DistDir))
	}
	if cfg.BuildDir != DefaultBuildDir {
		args = append(args, "--workpath", filepath.ToSlash(cfg.BuildDir))
	}
	args = append(args, p.ExtraArgs...)
	args = append(args, filepath.ToSlash(cfg.Entry))
	return args
}

// OutputDir returns the folder, relative to the project directory, that
// holds the executable once packaging succeeds. Resources are copied
// there.
func OutputDir(cfg *model.BuildConfig) string {
	if cfg.Packager.Mode == model.ModeOneFile {
		return cfg.DistDir
	}
	return filepath.Join(cfg.DistDir, cfg.Name)
}

// ExecutableName returns the file name of the bundled executable on goos.
// The docker backend always targets Windows.
func ExecutableName(cfg *model.BuildConfig, goos string) string {
	if goos == "windows" || cfg.Packager.Backend == model.BackendDocker {
		return cfg.Name + ".exe"
	}
	return cfg.Name
}
