// Package pipeline runs the five build steps in order:
//
//  1. check (and install) the Python dependencies
//  2. convert the PNG icon to ICO, when there is one
//  3. remove the output of the previous build
//  4. run PyInstaller
//  5. copy the resource files next to the executable
//
// A preflight check runs before step 1 so that a project missing its entry
// script or a required resource fails before anything is deleted. Each
// step can also be run on its own, which is what the doctor, icon and
// clean commands do.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shinji-kodama/effmap-pack/internal/config"
	"github.com/shinji-kodama/effmap-pack/internal/icon"
	"github.com/shinji-kodama/effmap-pack/internal/model"
	"github.com/shinji-kodama/effmap-pack/internal/packager"
	"github.com/shinji-kodama/effmap-pack/internal/source"
	"github.com/shinji-kodama/effmap-pack/internal/workspace"
)

// Step names recorded in model.StepResult.
const (
	StepDependencies = "dependencies"
	StepIcon         = "icon"
	StepClean        = "clean"
	StepPackage      = "package"
	StepCopy         = "copy"
)

// Options tune a build.
type Options struct {
	// Install pip-installs missing dependencies. Without it a missing
	// dependency fails the build.
	Install bool

	// SkipIcon builds with the packager's default icon even when the
	// source image exists.
	SkipIcon bool
}

// Pipeline builds one project.
type Pipeline struct {
	Config    *model.BuildConfig
	Workspace *workspace.Workspace
	Backend   packager.Backend
	Reporter  *Reporter
	Options   Options
}

// NewResult returns an empty result for the configured project.
func (p *Pipeline) NewResult() *model.BuildResult {
	return &model.BuildResult{
		Name:      p.Config.Name,
		Backend:   p.Backend.Kind(),
		OutputDir: p.Workspace.Path(packager.OutputDir(p.Config)),
		Steps:     []model.StepResult{},
		Copied:    []string{},
	}
}

// Run executes the whole build. The returned result is never nil and
// describes the steps that ran, also when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (*model.BuildResult, error) {
	res := p.NewResult()
	p.Reporter.Banner(p.Config.Name)

	if err := p.Preflight(); err != nil {
		return res, err
	}
	p.inspectSource(ctx, res)

	statuses, err := p.Dependencies(ctx, res, p.Options.Install)
	if err != nil {
		return res, err
	}
	if missing := missingModules(statuses); len(missing) > 0 {
		return res, model.NewCLIError(model.ExitDependencyFailed,
			fmt.Sprintf("missing Python modules: %s", strings.Join(missing, ", ")))
	}

	iconPath := ""
	if !p.Options.SkipIcon {
		iconPath = p.Icon(res)
	} else {
		p.Reporter.Step(2, "step.icon")
		p.Reporter.Say("icon.skipped")
		p.record(res, 2, StepIcon, model.StepSkipped, "")
	}
	if iconPath != "" {
		// The ICO is a temporary input; it only survives as the copy in
		// the output folder.
		defer func() {
			if err := p.Workspace.Remove(iconPath); err != nil {
				res.AddWarning("remove %s: %v", iconPath, err)
			}
		}()
	}

	p.Clean(res)

	if err := p.Package(ctx, res, iconPath); err != nil {
		return res, err
	}

	if err := p.CopyResources(res, iconPath); err != nil {
		return res, err
	}

	p.Reporter.Done(res.OutputDir, packager.ExecutableName(p.Config, runtime.GOOS))
	return res, nil
}

// Preflight checks that the entry script and every required resource
// exist. It has no side effects.
func (p *Pipeline) Preflight() error {
	if err := config.Validate(p.Config); err != nil {
		return err
	}

	var missing []string
	if !p.Workspace.IsFile(p.Config.Entry) {
		p.Reporter.Error("preflight.entry", p.Config.Entry)
		missing = append(missing, p.Config.Entry)
	}
	for _, r := range p.Config.Resources {
		if r.Optional || p.Workspace.IsFile(r.Path) {
			continue
		}
		p.Reporter.Error("preflight.resource", r.Path)
		missing = append(missing, r.Path)
	}
	if len(missing) > 0 {
		return model.NewCLIError(model.ExitResourceMissing,
			fmt.Sprintf("missing project files in %s: %s", p.Workspace.Root, strings.Join(missing, ", ")))
	}
	return nil
}

// Dependencies is step 1. It verifies the toolchain and probes each
// dependency, installing missing ones when install is true.
func (p *Pipeline) Dependencies(ctx context.Context, res *model.BuildResult, install bool) ([]model.DependencyStatus, error) {
	p.Reporter.Step(1, "step.deps")

	desc, err := p.Backend.Describe(ctx)
	if err != nil {
		p.Reporter.Error("deps.failed", err)
		p.record(res, 1, StepDependencies, model.StepFailed, err.Error())
		return nil, err
	}
	res.Toolchain = desc
	if p.Backend.Kind() == model.BackendDocker {
		p.Reporter.Info("deps.docker", desc)
	} else {
		p.Reporter.Info("deps.python", desc)
	}

	notify := func(dep model.Dependency, state model.DependencyState) {
		switch state {
		case model.DependencyPresent:
			p.Reporter.Info("deps.present", dep.Module)
		case model.DependencyInstalled:
			p.Reporter.Info("deps.installed", dep.Package)
		case model.DependencyMissing:
			if install {
				p.Reporter.Info("deps.installing", dep.Package)
			} else {
				p.Reporter.Warn("deps.missing", dep.Module, dep.Package)
			}
		}
	}

	statuses, err := p.Backend.Check(ctx, p.Config.Dependencies, install, notify)
	res.Dependencies = statuses
	if err != nil {
		p.Reporter.Error("deps.failed", err)
		p.record(res, 1, StepDependencies, model.StepFailed, err.Error())
		return statuses, err
	}

	if missing := missingModules(statuses); len(missing) > 0 {
		p.record(res, 1, StepDependencies, model.StepWarned, "missing: "+strings.Join(missing, ", "))
	} else {
		p.record(res, 1, StepDependencies, model.StepDone, desc)
	}
	return statuses, nil
}

// Icon is step 2. It converts the configured PNG into the temporary ICO
// and returns its path, or "" when the packager should use its default
// icon. Conversion problems are warnings, never errors.
func (p *Pipeline) Icon(res *model.BuildResult) string {
	p.Reporter.Step(2, "step.icon")
	cfg := p.Config.Icon

	if cfg.Source == "" || !p.Workspace.IsFile(cfg.Source) {
		p.Reporter.Say("icon.missing", cfg.Source)
		p.record(res, 2, StepIcon, model.StepSkipped, "no source image")
		return ""
	}

	p.Reporter.Say("icon.found", cfg.Source)
	err := icon.ConvertFile(p.Workspace.Path(cfg.Source), p.Workspace.Path(cfg.Output), cfg.Sizes)
	if err != nil {
		p.Reporter.Warn("icon.failed", err)
		p.Reporter.Say("icon.default")
		res.AddWarning("icon conversion failed: %v", err)
		p.record(res, 2, StepIcon, model.StepWarned, err.Error())
		return ""
	}

	p.Reporter.Say("icon.done")
	res.IconUsed = true
	p.record(res, 2, StepIcon, model.StepDone, cfg.Output)
	return cfg.Output
}

// Clean is step 3. It removes the build and dist directories and the
// generated spec file. Paths that cannot be removed become warnings.
func (p *Pipeline) Clean(res *model.BuildResult) {
	p.Reporter.Step(3, "step.clean")

	results := p.Workspace.Clean(p.Config.BuildDir, p.Config.DistDir, p.Config.SpecFile())
	removed, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			p.Reporter.Warn("clean.failed", r.Path, r.Err)
			res.AddWarning("cannot remove %s: %v", r.Path, r.Err)
		case r.Removed:
			removed++
			p.Reporter.Say("clean.removed", r.Path)
		}
	}
	if removed == 0 && failed == 0 {
		p.Reporter.Say("clean.nothing")
	}

	status := model.StepDone
	if failed > 0 {
		status = model.StepWarned
	}
	p.record(res, 3, StepClean, status, fmt.Sprintf("%d removed", removed))
}

// Package is step 4. It runs the packaging tool with the ICO at iconPath
// ("" for the default icon).
func (p *Pipeline) Package(ctx context.Context, res *model.BuildResult, iconPath string) error {
	p.Reporter.Step(4, "step.package")

	args := packager.Args(p.Config, iconPath)
	p.Reporter.debugf("%s backend: %s %s", p.Backend.Kind(), packager.ModuleName, strings.Join(args, " "))

	err := p.Backend.Package(ctx, args)
	if err == nil {
		p.record(res, 4, StepPackage, model.StepDone, "")
		return nil
	}

	p.record(res, 4, StepPackage, model.StepFailed, err.Error())
	var pkgErr *model.PackagingError
	if errors.As(err, &pkgErr) {
		p.Reporter.Error("package.failed", pkgErr.ExitCode)
		return model.WrapCLIError(model.ExitPackagingFailed,
			fmt.Sprintf("packaging %s failed", p.Config.Name), err)
	}
	return err
}

// CopyResources is step 5. It copies the resources and the ICO into the
// output folder and writes the build manifest. A required resource that
// cannot be copied fails the build; optional ones only warn.
func (p *Pipeline) CopyResources(res *model.BuildResult, iconPath string) error {
	p.Reporter.Step(5, "step.copy")

	outRel := packager.OutputDir(p.Config)
	outDir := p.Workspace.Path(outRel)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		p.record(res, 5, StepCopy, model.StepFailed, err.Error())
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot create output folder %s", outDir), err)
	}

	manifest := &workspace.Manifest{
		Name:    p.Config.Name,
		Entry:   filepath.ToSlash(p.Config.Entry),
		Backend: p.Backend.Kind().String(),
		Icon:    iconPath != "",
		Source:  res.Source,
	}

	status := model.StepDone
	for _, r := range p.Config.Resources {
		if !p.Workspace.IsFile(r.Path) {
			if r.Optional {
				p.Reporter.Warn("copy.missing", r.Path)
				res.AddWarning("optional resource %s not found", r.Path)
				status = model.StepWarned
				continue
			}
			p.Reporter.Error("copy.required", r.Path)
			p.record(res, 5, StepCopy, model.StepFailed, r.Path)
			return model.NewCLIError(model.ExitResourceMissing,
				fmt.Sprintf("required resource %s is missing", r.Path))
		}

		dst, err := p.Workspace.CopyFile(r.Path, outRel)
		if err != nil {
			if r.Optional {
				p.Reporter.Warn("copy.failed", r.Path, err)
				res.AddWarning("cannot copy %s: %v", r.Path, err)
				status = model.StepWarned
				continue
			}
			p.Reporter.Error("copy.failed", r.Path, err)
			p.record(res, 5, StepCopy, model.StepFailed, r.Path)
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("cannot copy %s", r.Path), err)
		}
		p.Reporter.Say("copy.copied", r.Path)
		res.Copied = append(res.Copied, r.Path)
		if err := manifest.AddFile(outDir, dst); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to record manifest entry", err)
		}
	}

	if iconPath != "" && p.Config.Icon.CopyToDist {
		dst, err := p.Workspace.CopyFile(iconPath, outRel)
		if err != nil {
			p.Reporter.Warn("copy.failed", iconPath, err)
			res.AddWarning("cannot copy %s: %v", iconPath, err)
			status = model.StepWarned
		} else {
			p.Reporter.Say("copy.icon", iconPath)
			res.Copied = append(res.Copied, iconPath)
			if err := manifest.AddFile(outDir, dst); err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to record manifest entry", err)
			}
		}
	}

	path, err := manifest.Write(outDir)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write build manifest", err)
	}
	res.ManifestPath = path
	p.Reporter.Say("copy.manifest", filepath.Join(outRel, workspace.ManifestFile))

	p.record(res, 5, StepCopy, status, fmt.Sprintf("%d files", len(res.Copied)))
	return nil
}

// inspectSource records the project's git revision. Not being a checkout
// is normal; a failing git only costs the manifest its source entry.
func (p *Pipeline) inspectSource(ctx context.Context, res *model.BuildResult) {
	rev, err := source.Inspect(ctx, p.Workspace.Root)
	if err != nil {
		p.Reporter.debugf("cannot read git revision: %v", err)
		return
	}
	if rev != nil {
		p.Reporter.debugf("source revision %s (branch %q, dirty %t)", rev.Commit, rev.Branch, rev.Dirty)
	}
	res.Source = rev
}

func (p *Pipeline) record(res *model.BuildResult, index int, name string, status model.StepStatus, detail string) {
	res.Steps = append(res.Steps, model.StepResult{
		Index:  index,
		Name:   name,
		Status: status,
		Detail: detail,
	})
}

func missingModules(statuses []model.DependencyStatus) []string {
	var missing []string
	for _, s := range statuses {
		if s.State == model.DependencyMissing {
			missing = append(missing, s.Module)
		}
	}
	return missing
}
