package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// writeFile is a test helper that writes content to dir/name.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestDefault verifies the defaults reproduce the original build script:
// one-directory windowed bundle, clean cache, no confirmation prompt.
func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "MotorEffMAP", cfg.Name)
	assert.Equal(t, "run.py", cfg.Entry)
	assert.Equal(t, "图标.png", cfg.Icon.Source)
	assert.Equal(t, []int{256, 128, 64, 48, 32, 16}, cfg.Icon.Sizes)
	assert.Equal(t, model.ModeOneDir, cfg.Packager.Mode)
	assert.True(t, cfg.Packager.Windowed)
	assert.True(t, cfg.Packager.Clean)
	assert.True(t, cfg.Packager.NoConfirm)
	assert.Equal(t, []model.Resource{{Path: "MotorEffMAP.ini"}, {Path: "目标.txt"}}, cfg.Resources)

	Normalize(cfg)
	assert.Equal(t, "MotorEffMAP.ico", cfg.Icon.Output)
	assert.NoError(t, Validate(cfg))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", Find(dir))

	writeFile(t, dir, "effmap-pack.yaml", "name: A\n")
	assert.Equal(t, filepath.Join(dir, "effmap-pack.yaml"), Find(dir))

	// JSONC has priority over YAML.
	writeFile(t, dir, "effmap-pack.jsonc", "{}")
	assert.Equal(t, filepath.Join(dir, "effmap-pack.jsonc"), Find(dir))
}

// TestLoadFile_JSONC verifies comments and trailing commas are accepted and
// that fields missing from the file keep their defaults.
func TestLoadFile_JSONC(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "effmap-pack.jsonc", `{
  // product name
  "name": "EffTool",
  "packager": {
    "windowed": false, /* console build for debugging */
  },
  "resources": [{"path": "a.ini"}, {"path": "notes.txt", "optional": true},],
}`)

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))

	assert.Equal(t, "EffTool", cfg.Name)
	assert.False(t, cfg.Packager.Windowed)
	assert.True(t, cfg.Packager.Clean, "unset fields keep defaults")
	assert.Equal(t, "run.py", cfg.Entry)
	assert.Equal(t, []model.Resource{{Path: "a.ini"}, {Path: "notes.txt", Optional: true}}, cfg.Resources)
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "effmap-pack.yml", `
name: EffTool
entry: main.py
icon:
  sizes: [64, 32]
packager:
  backend: docker
  extraArgs: ["--hidden-import", "scipy.special"]
dependencies:
  - module: PyInstaller
    package: pyinstaller==6.3.0
`)

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))

	assert.Equal(t, "main.py", cfg.Entry)
	assert.Equal(t, []int{64, 32}, cfg.Icon.Sizes)
	assert.Equal(t, "图标.png", cfg.Icon.Source)
	assert.Equal(t, model.BackendDocker, cfg.Packager.Backend)
	assert.Equal(t, []string{"--hidden-import", "scipy.special"}, cfg.Packager.ExtraArgs)
	require.Len(t, cfg.Dependencies, 1)
	assert.Equal(t, "pyinstaller==6.3.0", cfg.Dependencies[0].Package)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	err := LoadFile(Default(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))

	bad := writeFile(t, dir, "bad.json", `{"name": }`)
	err = LoadFile(Default(), bad)
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))
}

func TestLoad_LayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "effmap-pack.json", `{"name": "EffTool", "python": "python3.11"}`)

	cfg, file, err := Load(Options{
		Dir: dir,
		Env: &Environment{Python: "/opt/py/bin/python", Backend: "docker"},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "effmap-pack.json"), file)
	assert.Equal(t, "EffTool", cfg.Name)
	assert.Equal(t, "EffTool.ico", cfg.Icon.Output)
	assert.Equal(t, "/opt/py/bin/python", cfg.Python, "env wins over file")
	assert.Equal(t, model.BackendDocker, cfg.Packager.Backend)
	assert.Equal(t, DefaultImage, cfg.Packager.Image)
	assert.Equal(t, []string{"pyinstaller"}, cfg.Packager.Command)
}

func TestLoad_ExplicitRelativeFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "custom.yaml", "name: Custom\n")

	cfg, file, err := Load(Options{Dir: dir, File: "custom.yaml", Env: &Environment{}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.yaml"), file)
	assert.Equal(t, "Custom", cfg.Name)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, file, err := Load(Options{Dir: t.TempDir(), Env: &Environment{}})
	require.NoError(t, err)
	assert.Equal(t, "", file)
	assert.Equal(t, "MotorEffMAP", cfg.Name)
}

func TestEnvironment_Apply_InvalidBackend(t *testing.T) {
	err := (&Environment{Backend: "vm"}).Apply(Default())
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))
}

func TestParseEnv(t *testing.T) {
	t.Setenv("EFFMAP_PYTHON", "py")
	t.Setenv("EFFMAP_LANG", "zh")

	e, err := ParseEnv()
	require.NoError(t, err)
	assert.Equal(t, "py", e.Python)
	assert.Equal(t, "zh", e.Lang)
	assert.Equal(t, "", e.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *model.BuildConfig)
		wantMsg string
	}{
		{"empty name", func(c *model.BuildConfig) { c.Name = "" }, "name: is required"},
		{"path in name", func(c *model.BuildConfig) { c.Name = "a/b" }, "name: must not contain"},
		{"dot name", func(c *model.BuildConfig) { c.Name = "." }, `name: must not be "."`},
		{"parent name", func(c *model.BuildConfig) { c.Name = ".." }, `name: must not be ".."`},
		{"dist is project", func(c *model.BuildConfig) { c.DistDir = "." }, "distDir: must be a relative path inside"},
		{"dist collapses to project", func(c *model.BuildConfig) { c.DistDir = "dist/.." }, "distDir: must be a relative path inside"},
		{"dist outside project", func(c *model.BuildConfig) { c.DistDir = "../dist" }, "distDir: must be a relative path inside"},
		{"absolute dist", func(c *model.BuildConfig) { c.DistDir = "/" }, "distDir: must be a relative path inside"},
		{"build is parent", func(c *model.BuildConfig) { c.BuildDir = ".." }, "buildDir: must be a relative path inside"},
		{"absolute build", func(c *model.BuildConfig) { c.BuildDir = "/tmp/build" }, "buildDir: must be a relative path inside"},
		{"icon output outside", func(c *model.BuildConfig) { c.Icon.Output = "../app.ico" }, "icon.output: must be a relative path inside"},
		{"icon output is project", func(c *model.BuildConfig) { c.Icon.Output = "." }, "icon.output: must be a relative path inside"},
		{"empty entry", func(c *model.BuildConfig) { c.Entry = "" }, "entry: is required"},
		{"bad mode", func(c *model.BuildConfig) { c.Packager.Mode = "zipapp" }, "packager.mode: must be one of"},
		{"icon too large", func(c *model.BuildConfig) { c.Icon.Sizes = []int{512} }, "icon.sizes[0]: must be <= 256"},
		{"icon too small", func(c *model.BuildConfig) { c.Icon.Sizes = []int{256, 8} }, "icon.sizes[1]: must be >= 16"},
		{"dependency without package", func(c *model.BuildConfig) {
			c.Dependencies = []model.Dependency{{Module: "PIL"}}
		}, "dependencies[0].package: is required"},
		{"resource without path", func(c *model.BuildConfig) {
			c.Resources = []model.Resource{{Optional: true}}
		}, "resources[0].path: is required"},
		{"docker without image", func(c *model.BuildConfig) {
			c.Packager.Backend = model.BackendDocker
		}, "packager.image: is required when"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// TestMarshal_RoundTrip verifies that `config init` output loads back to
// the same configuration in both supported formats.
func TestValidate_AcceptsNestedDirs(t *testing.T) {
	cfg := Default()
	cfg.DistDir = "out/dist"
	cfg.BuildDir = "./out/build"
	cfg.Icon.Output = "assets/app.ico"
	assert.NoError(t, Validate(cfg))
}

func TestIsSubdir(t *testing.T) {
	assert.True(t, IsSubdir("dist"))
	assert.True(t, IsSubdir("a/b/.."))
	assert.False(t, IsSubdir(""))
	assert.False(t, IsSubdir("."))
	assert.False(t, IsSubdir("a/.."))
	assert.False(t, IsSubdir(".."))
	assert.False(t, IsSubdir("/"))
}

func TestMarshal_RoundTrip(t *testing.T) {
	for _, name := range []string{"effmap-pack.jsonc", "effmap-pack.yaml"} {
		t.Run(name, func(t *testing.T) {
			want := Default()
			Normalize(want)

			data, err := Marshal(want, name)
			require.NoError(t, err)

			path := writeFile(t, t.TempDir(), name, string(data))
			got := &model.BuildConfig{}
			require.NoError(t, LoadFile(got, path))
			assert.Equal(t, want, got)
		})
	}
}

func TestMarshal_JSONCHeader(t *testing.T) {
	data, err := Marshal(Default(), "effmap-pack.jsonc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "// effmap-pack build configuration."))
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "effmap-pack build configuration", doc["title"])

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok, "schema should expose top-level properties")
	for _, key := range []string{"name", "entry", "icon", "packager", "dependencies", "resources"} {
		assert.Contains(t, props, key)
	}
}
