package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// Environment holds the EFFMAP_* overrides. Empty fields leave the
// configuration untouched.
type Environment struct {
	Python  string `env:"EFFMAP_PYTHON"`
	Backend string `env:"EFFMAP_BACKEND"`
	Image   string `env:"EFFMAP_IMAGE"`
	Lang    string `env:"EFFMAP_LANG"`
}

// ParseEnv loads overrides from the process environment.
func ParseEnv() (*Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// Apply writes the non-empty overrides into cfg.
func (e *Environment) Apply(cfg *model.BuildConfig) error {
	if e.Python != "" {
		cfg.Python = e.Python
	}
	if e.Backend != "" {
		backend, err := model.ParseBackend(e.Backend)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigInvalid, "invalid EFFMAP_BACKEND", err)
		}
		cfg.Packager.Backend = backend
	}
	if e.Image != "" {
		cfg.Packager.Image = e.Image
	}
	return nil
}
