package claude

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// ToolFor declares a tool whose input schema is reflected from T. Field
// names follow T's json tags and `jsonschema` tags add descriptions.
func ToolFor[T any](name, description string) (Tool, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	schema := reflector.Reflect(&v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return Tool{}, errors.Wrapf(err, "claude: marshal schema for tool %q", name)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Tool{}, errors.Wrapf(err, "claude: decode schema for tool %q", name)
	}
	delete(m, "$schema")

	return Tool{
		Name:        name,
		Description: description,
		InputSchema: m,
	}, nil
}
