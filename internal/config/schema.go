package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// Schema returns the JSON Schema (Draft 2020-12) describing the project
// config file, for editor completion in effmap-pack.json(c).
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&model.BuildConfig{})
	schema.Title = "effmap-pack build configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
