package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the configuration file, for editor
// completion and `kiwix-reader config schema`.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:              "toml",
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = "https://github.com/kiwix/kiwix-reader/config.schema.json"
	schema.Title = "kiwix-reader configuration"
	schema.Description = "Configuration for kiwix-reader, an offline ZIM archive reader"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
