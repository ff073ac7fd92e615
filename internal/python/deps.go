package python

import (
	"context"
	"fmt"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// DependencyEvent is reported for every dependency as it is processed.
// State is DependencyMissing while an install is about to start.
type DependencyEvent func(dep model.Dependency, state model.DependencyState)

// EnsureDependencies probes each dependency and, when install is true,
// pip-installs the missing ones and probes again. The check is
// idempotent: present modules never trigger an install.
//
// With install false, missing modules are returned with
// DependencyMissing and no error, which is what `doctor` reports.
// With install true, a module that is still missing after pip is an
// ExitDependencyFailed error.
func (e *Env) EnsureDependencies(ctx context.Context, deps []model.Dependency, install bool, notify DependencyEvent) ([]model.DependencyStatus, error) {
	if notify == nil {
		notify = func(model.Dependency, model.DependencyState) {}
	}

	statuses := make([]model.DependencyStatus, 0, len(deps))
	for _, dep := range deps {
		if e.HasModule(ctx, dep.Module) {
			notify(dep, model.DependencyPresent)
			statuses = append(statuses, model.DependencyStatus{Dependency: dep, State: model.DependencyPresent})
			continue
		}

		notify(dep, model.DependencyMissing)
		if !install {
			statuses = append(statuses, model.DependencyStatus{Dependency: dep, State: model.DependencyMissing})
			continue
		}

		if err := e.Install(ctx, dep.Package); err != nil {
			return statuses, err
		}
		if !e.HasModule(ctx, dep.Module) {
			return statuses, model.NewCLIError(model.ExitDependencyFailed,
				fmt.Sprintf("module %s is still not importable after installing %s", dep.Module, dep.Package))
		}

		notify(dep, model.DependencyInstalled)
		statuses = append(statuses, model.DependencyStatus{Dependency: dep, State: model.DependencyInstalled})
	}
	return statuses, nil
}
