package docker

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("MotorEffMAP", "/home/dev/effmap/")

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "MotorEffMAP", labels[LabelName])
	assert.Equal(t, "/home/dev/effmap", labels[LabelProject], "project path is cleaned")
}

func TestProjectFilter(t *testing.T) {
	all := ProjectFilter("")
	assert.Equal(t, []string{"effmap-pack.managed-by=effmap-pack"}, all.Get("label"))

	one := ProjectFilter("/home/dev/effmap")
	assert.ElementsMatch(t, []string{
		"effmap-pack.managed-by=effmap-pack",
		"effmap-pack.project=/home/dev/effmap",
	}, one.Get("label"))
}

func TestContainerSpec(t *testing.T) {
	opts := RunOptions{
		Image:      "cdrx/pyinstaller-windows:python3",
		Command:    []string{"pyinstaller"},
		Args:       []string{"--noconfirm", "--onedir", "--name", "MotorEffMAP", "run.py"},
		ProjectDir: "/home/dev/effmap",
		Labels:     BuildLabels("MotorEffMAP", "/home/dev/effmap"),
	}

	cfg, hostCfg := ContainerSpec(opts)
	require.NotNil(t, cfg)
	require.NotNil(t, hostCfg)

	assert.Equal(t, opts.Image, cfg.Image)
	assert.Equal(t, []string{"pyinstaller"}, []string(cfg.Entrypoint))
	assert.Equal(t, opts.Args, []string(cfg.Cmd))
	assert.Equal(t, WorkDir, cfg.WorkingDir)
	assert.Equal(t, "MotorEffMAP", cfg.Labels[LabelName])
	assert.Equal(t, []string{"/home/dev/effmap:/src"}, hostCfg.Binds)

	// The returned config owns its slices.
	opts.Args[0] = "mutated"
	assert.Equal(t, "--noconfirm", cfg.Cmd[0])
}

func TestContainerSpec_KeepsImageEntrypoint(t *testing.T) {
	cfg, _ := ContainerSpec(RunOptions{Image: "img", Args: []string{"run.py"}})
	assert.Nil(t, cfg.Entrypoint)
}

func TestToLeftover(t *testing.T) {
	got := toLeftover(container.Summary{
		ID:     "abc123",
		Names:  []string{"/eager_turing"},
		Labels: map[string]string{LabelName: "MotorEffMAP"},
		State:  "exited",
	})
	assert.Equal(t, LeftoverContainer{
		ID:     "abc123",
		Name:   "eager_turing",
		App:    "MotorEffMAP",
		Status: "exited",
	}, got)

	assert.Empty(t, toLeftover(container.Summary{ID: "x"}).Name)
}
