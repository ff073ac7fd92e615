// Package config loads the build configuration for effmap-pack.
//
// A configuration is assembled in layers:
//  1. Default() reproduces the MotorEffMAP build script exactly
//  2. An optional project file (JSONC or YAML) overlays it field by field
//  3. EFFMAP_* environment variables override individual settings
//  4. Normalize fills derived values and Validate checks the result
//
// JSONC (JSON with comments) is parsed via github.com/tidwall/jsonc, YAML
// via gopkg.in/yaml.v3.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// FileNames lists the project config file names probed by Find, in
// priority order.
var FileNames = []string{
	"effmap-pack.jsonc",
	"effmap-pack.json",
	"effmap-pack.yaml",
	"effmap-pack.yml",
}

// DefaultImage is the container image suggested for the docker backend.
// It ships Wine, a Windows CPython and PyInstaller, so it produces Windows
// executables from a Linux or macOS host.
const DefaultImage = "cdrx/pyinstaller-windows:python3"

// Default returns the configuration that matches the original MotorEffMAP
// build: one-directory windowed bundle named MotorEffMAP built from
// run.py, with the icon taken from 图标.png and two resource files copied
// next to the executable.
func Default() *model.BuildConfig {
	return &model.BuildConfig{
		Name:     "MotorEffMAP",
		Entry:    "run.py",
		DistDir:  "dist",
		BuildDir: "build",
		Icon: model.IconConfig{
			Source:     "图标.png",
			Sizes:      []int{256, 128, 64, 48, 32, 16},
			CopyToDist: true,
		},
		Packager: model.PackagerConfig{
			Backend:   model.BackendLocal,
			Mode:      model.ModeOneDir,
			Windowed:  true,
			Clean:     true,
			NoConfirm: true,
		},
		Dependencies: []model.Dependency{
			{Module: "PyInstaller", Package: "pyinstaller"},
			{Module: "PIL", Package: "pillow"},
		},
		Resources: []model.Resource{
			{Path: "MotorEffMAP.ini"},
			{Path: "目标.txt"},
		},
	}
}

// Find returns the path of the first project config file present in dir,
// or "" when the project has none.
func Find(dir string) string {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadFile overlays the config file at path onto cfg. Fields absent from
// the file keep their current values; lists present in the file replace
// the current list entirely.
func LoadFile(cfg *model.BuildConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitConfigInvalid,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		// .json and .jsonc share the JSONC path: plain JSON is valid JSONC.
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// Options controls Load.
type Options struct {
	// Dir is the project directory. Relative paths in the config resolve
	// against it.
	Dir string

	// File is an explicit config file. Empty means Find(Dir).
	File string

	// Env carries environment overrides. nil means ParseEnv().
	Env *Environment
}

// Load assembles, normalizes and validates the configuration for a project.
// It returns the config together with the file it was read from ("" when
// only defaults were used).
func Load(opts Options) (*model.BuildConfig, string, error) {
	cfg := Default()

	file := opts.File
	if file == "" {
		file = Find(opts.Dir)
	} else if !filepath.IsAbs(file) {
		file = filepath.Join(opts.Dir, file)
	}
	if file != "" {
		if err := LoadFile(cfg, file); err != nil {
			return nil, "", err
		}
	}

	envOverrides := opts.Env
	if envOverrides == nil {
		parsed, err := ParseEnv()
		if err != nil {
			return nil, "", model.WrapCLIError(model.ExitConfigInvalid, "invalid environment", err)
		}
		envOverrides = parsed
	}
	if err := envOverrides.Apply(cfg); err != nil {
		return nil, "", err
	}

	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, file, nil
}

// Normalize fills derived defaults that depend on other fields.
func Normalize(cfg *model.BuildConfig) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Icon.Output == "" && cfg.Name != "" {
		cfg.Icon.Output = cfg.Name + ".ico"
	}
	if cfg.Packager.Backend == model.BackendDocker {
		if cfg.Packager.Image == "" {
			cfg.Packager.Image = DefaultImage
		}
		if len(cfg.Packager.Command) == 0 {
			cfg.Packager.Command = []string{"pyinstaller"}
		}
	}
}

// Marshal renders cfg as JSONC (with a header comment) or YAML, chosen by
// the extension of path.
func Marshal(cfg *model.BuildConfig, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		header := "// effmap-pack build configuration.\n" +
			"// Run `effmap-pack config schema` for the full list of settings.\n"
		return append([]byte(header), append(data, '\n')...), nil
	}
}
