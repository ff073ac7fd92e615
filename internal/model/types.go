package model

import (
	"fmt"
	"strings"
)

// Backend selects where the packaging tool runs.
type Backend string

const (
	// BackendLocal runs PyInstaller through the local Python interpreter.
	BackendLocal Backend = "local"

	// BackendDocker runs PyInstaller inside a one-shot container with the
	// work directory bind-mounted at /src.
	BackendDocker Backend = "docker"
)

// String returns the string representation of Backend.
func (b Backend) String() string {
	return string(b)
}

// IsValid checks whether the Backend value is one of the predefined backends.
func (b Backend) IsValid() bool {
	switch b {
	case BackendLocal, BackendDocker:
		return true
	default:
		return false
	}
}

// ParseBackend converts a string to a Backend.
// Returns an error if the string does not match any valid backend.
func ParseBackend(s string) (Backend, error) {
	backend := Backend(strings.ToLower(strings.TrimSpace(s)))
	if !backend.IsValid() {
		return "", fmt.Errorf("invalid backend: %q (valid: local, docker)", s)
	}
	return backend, nil
}

// BundleMode is the PyInstaller output layout.
type BundleMode string

const (
	// ModeOneDir produces dist/<name>/ with the executable and its libraries.
	ModeOneDir BundleMode = "onedir"

	// ModeOneFile produces a single self-extracting executable.
	ModeOneFile BundleMode = "onefile"
)

// String returns the string representation of BundleMode.
func (m BundleMode) String() string {
	return string(m)
}

// Flag returns the PyInstaller command-line flag for the mode.
func (m BundleMode) Flag() string {
	return "--" + string(m)
}

// BuildConfig is the complete description of one packaging run.
//
// The zero value is not usable; start from config.Default() and overlay
// a config file and environment overrides on top of it.
type BuildConfig struct {
	// Name is the executable and output folder name.
	Name string `json:"name" yaml:"name" validate:"required,excludesall=/\\:*?<>,filename" jsonschema:"description=Executable and output folder name"`

	// Entry is the Python entry-point script handed to the packager.
	Entry string `json:"entry" yaml:"entry" validate:"required" jsonschema:"description=Python entry-point script"`

	// Python is the interpreter name or path. Empty means auto-detect.
	Python string `json:"python,omitempty" yaml:"python,omitempty"`

	// DistDir and BuildDir are the packager's output and work directories,
	// relative to the project directory. Both are deleted by the clean
	// step, so they must name a subdirectory of the project.
	DistDir  string `json:"distDir" yaml:"distDir" validate:"required,subdir"`
	BuildDir string `json:"buildDir" yaml:"buildDir" validate:"required,subdir"`

	Icon         IconConfig     `json:"icon" yaml:"icon"`
	Packager     PackagerConfig `json:"packager" yaml:"packager"`
	Dependencies []Dependency   `json:"dependencies" yaml:"dependencies" validate:"dive"`
	Resources    []Resource     `json:"resources" yaml:"resources" validate:"dive"`
}

// SpecFile returns the name of the PyInstaller spec file generated for this build.
func (c *BuildConfig) SpecFile() string {
	return c.Name + ".spec"
}

// IconConfig controls the optional PNG to ICO conversion.
type IconConfig struct {
	// Source is the PNG image to convert. A missing file is not an error:
	// the packager falls back to its default icon.
	Source string `json:"source" yaml:"source"`

	// Output is the temporary ICO written next to the project files.
	Output string `json:"output" yaml:"output" validate:"omitempty,subdir"`

	// Sizes lists the square edge lengths embedded in the ICO.
	Sizes []int `json:"sizes" yaml:"sizes" validate:"omitempty,dive,min=16,max=256"`

	// CopyToDist copies the ICO into the output folder so the application
	// can load it for its window icon at runtime.
	CopyToDist bool `json:"copyToDist" yaml:"copyToDist"`
}

// PackagerConfig holds the fixed PyInstaller flags and the backend selection.
type PackagerConfig struct {
	Backend   Backend    `json:"backend" yaml:"backend" validate:"required,oneof=local docker"`
	Mode      BundleMode `json:"mode" yaml:"mode" validate:"required,oneof=onedir onefile"`
	Windowed  bool       `json:"windowed" yaml:"windowed"`
	Clean     bool       `json:"clean" yaml:"clean"`
	NoConfirm bool       `json:"noConfirm" yaml:"noConfirm"`

	// ExtraArgs are passed to PyInstaller verbatim, before the entry script.
	ExtraArgs []string `json:"extraArgs,omitempty" yaml:"extraArgs,omitempty"`

	// Image is the container image used by the docker backend.
	Image string `json:"image,omitempty" yaml:"image,omitempty" validate:"required_if=Backend docker"`

	// Command is the packager invocation inside the container.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Dependency is a Python package the build needs, identified by the
// module name used to probe for it and the pip package that provides it.
type Dependency struct {
	Module  string `json:"module" yaml:"module" validate:"required"`
	Package string `json:"package" yaml:"package" validate:"required"`
}

// Resource is an auxiliary file copied into the output folder.
type Resource struct {
	Path string `json:"path" yaml:"path" validate:"required"`

	// Optional resources that are missing produce a warning instead of
	// failing the build.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// DependencyState is the outcome of probing one dependency.
type DependencyState string

const (
	// DependencyPresent means the module was importable on the first probe.
	DependencyPresent DependencyState = "present"

	// DependencyInstalled means the module was missing and pip installed it.
	DependencyInstalled DependencyState = "installed"

	// DependencyMissing means the module is not importable and was not installed.
	DependencyMissing DependencyState = "missing"
)

// DependencyStatus pairs a dependency with its probe outcome.
type DependencyStatus struct {
	Dependency
	State DependencyState `json:"state"`
}

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepWarned  StepStatus = "warned"
	StepFailed  StepStatus = "failed"
)

// StepResult records what happened in one pipeline step.
type StepResult struct {
	// Index is 1-based, matching the "[n/5]" progress prefix.
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// SourceRevision identifies the version-control state a build was made
// from.
type SourceRevision struct {
	Commit string `json:"commit" yaml:"commit"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// Dirty is true when tracked files had uncommitted changes.
	Dirty bool `json:"dirty" yaml:"dirty"`

	// Worktree is true when the project is a linked git worktree rather
	// than the main checkout.
	Worktree bool `json:"worktree,omitempty" yaml:"worktree,omitempty"`
}

// BuildResult is the summary of a completed (or failed) build.
type BuildResult struct {
	Name         string             `json:"name"`
	Backend      Backend            `json:"backend"`
	Toolchain    string             `json:"toolchain,omitempty"`
	Source       *SourceRevision    `json:"source,omitempty"`
	OutputDir    string             `json:"outputDir"`
	IconUsed     bool               `json:"iconUsed"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	Steps        []StepResult       `json:"steps"`
	Copied       []string           `json:"copied"`
	Warnings     []string           `json:"warnings,omitempty"`
	ManifestPath string             `json:"manifestPath,omitempty"`
}

// AddWarning appends a warning to the result.
func (r *BuildResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
