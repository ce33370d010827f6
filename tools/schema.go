package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsv6 "github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache memoises compiled validators by their serialized schema, the
// same keyed-by-content cache the teacher's pluginsdk.ValidateConfig uses.
var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[string]*jsv6.Schema{}
)

// ValidateArgs checks args against schema (a JSON-Schema-shaped map), per
// spec.md §4.2's validation-error class. A nil or empty schema always
// validates: tools aren't required to declare one.
func ValidateArgs(toolName string, schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return &Error{Kind: ErrValidation, ToolName: toolName, Message: "invalid schema", Err: err}
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return &Error{Kind: ErrValidation, ToolName: toolName, Message: "encode args", Err: err}
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &Error{Kind: ErrValidation, ToolName: toolName, Message: "decode args", Err: err}
	}

	if err := compiled.Validate(decoded); err != nil {
		return &Error{Kind: ErrValidation, ToolName: toolName, Message: "arguments fail schema", Err: err}
	}
	return nil
}

func compileSchema(schema map[string]any) (*jsv6.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(raw)

	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	if cached, ok := schemaCache[key]; ok {
		return cached, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	compiler := jsv6.NewCompiler()
	const resourceName = "tool-args.json"
	if err := compiler.AddResource(resourceName, decoded); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	schemaCache[key] = compiled
	return compiled, nil
}

// GenerateSchema reflects a Go struct (passed as a pointer, e.g. new(MyArgs))
// into a JSON-Schema-shaped map using invopop/jsonschema, for tool authors
// who'd rather declare their argument shape as a Go type than hand-write
// JSON Schema.
func GenerateSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
