package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// validate is a package-level singleton; building a validator parses and
// caches struct metadata, so it is reused across calls.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field paths using the JSON names users write in config files.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// subdir: a path strictly below the project directory.
	_ = v.RegisterValidation("subdir", func(fl validator.FieldLevel) bool {
		return IsSubdir(fl.Field().String())
	})
	// filename: a single path element that does not refer to a directory
	// by itself.
	_ = v.RegisterValidation("filename", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != "." && name != ".."
	})
	return v
}

// IsSubdir reports whether p is relative, stays inside its base directory
// and does not resolve to the base directory itself.
func IsSubdir(p string) bool {
	return filepath.IsLocal(p) && filepath.Clean(p) != "."
}

// Validate checks cfg against the constraints declared on model.BuildConfig.
// All violations are reported in a single CLIError with ExitConfigInvalid.
func Validate(cfg *model.BuildConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid configuration", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return model.NewCLIError(model.ExitConfigInvalid,
		"invalid configuration: "+strings.Join(problems, "; "))
}

// describe turns a validator field error into "path: reason".
func describe(fe validator.FieldError) string {
	// Namespace is "BuildConfig.packager.image"; drop the root type name.
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}

	switch fe.Tag() {
	case "required":
		return path + ": is required"
	case "required_if":
		return fmt.Sprintf("%s: is required when %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s: must be %s %s, got %v", path, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	case "subdir":
		return fmt.Sprintf("%s: must be a relative path inside the project directory, got %q", path, fe.Value())
	case "filename":
		return fmt.Sprintf("%s: must not be %q", path, fe.Value())
	case "excludesall":
		return fmt.Sprintf("%s: must not contain any of %q", path, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %q", path, fe.Tag())
	}
}
