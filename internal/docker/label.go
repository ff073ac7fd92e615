package docker

import (
	"path/filepath"

	"github.com/docker/docker/api/types/filters"
)

// Label keys set on every packaging container. They let "clean" find
// containers left behind by an interrupted build without keeping any
// state on disk.
const (
	// LabelPrefix is the common prefix for all effmap-pack labels.
	LabelPrefix = "effmap-pack."

	// LabelManagedBy identifies containers created by this tool.
	// Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelName stores the application name being packaged.
	LabelName = LabelPrefix + "name"

	// LabelProject stores the absolute project directory that was mounted.
	LabelProject = LabelPrefix + "project"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "effmap-pack"

// BuildLabels returns the labels for a container packaging app name from
// projectDir.
func BuildLabels(name, projectDir string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      name,
		LabelProject:   filepath.Clean(projectDir),
	}
}

// ProjectFilter returns list filters matching the packaging containers of
// projectDir. An empty projectDir matches every managed container.
func ProjectFilter(projectDir string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)
	if projectDir != "" {
		args.Add("label", LabelProject+"="+filepath.Clean(projectDir))
	}
	return args
}
