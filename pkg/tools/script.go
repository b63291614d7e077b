package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/scripts"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// ScriptTool exposes one manifest-backed script as a tool. Parameters are
// validated against the manifest, merged with declared defaults, and handed
// to the script as a JSON document on stdin.
type ScriptTool struct {
	spec   scripts.Spec
	runner *scripts.Runner
}

// NewScriptTool wraps a discovered script spec with its runner.
func NewScriptTool(spec scripts.Spec, runner *scripts.Runner) *ScriptTool {
	return &ScriptTool{spec: spec, runner: runner}
}

func (t *ScriptTool) Name() string {
	return t.spec.Name
}

func (t *ScriptTool) Description() string {
	return t.spec.Description
}

func (t *ScriptTool) GenerateSchema() *jsonschema.Schema {
	properties := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, param := range t.spec.Parameters {
		properties.Set(param.Name, &jsonschema.Schema{
			Type:        string(param.Type),
			Description: param.Description,
		})
		if param.Required() {
			required = append(required, param.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func (t *ScriptTool) ValidateInput(_ tooltypes.State, parameters string) error {
	input, err := t.decode(parameters)
	if err != nil {
		return err
	}

	declared := make(map[string]scripts.Parameter, len(t.spec.Parameters))
	for _, param := range t.spec.Parameters {
		declared[param.Name] = param
	}

	for name, value := range input {
		param, ok := declared[name]
		if !ok {
			return errors.Errorf("unknown parameter %q", name)
		}
		if !matchesType(param.Type, value) {
			return errors.Errorf("parameter %q expects type %s", name, param.Type)
		}
	}

	var missing []string
	for _, param := range t.spec.Parameters {
		if !param.Required() {
			continue
		}
		if _, ok := input[param.Name]; !ok {
			missing = append(missing, param.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required parameters: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (t *ScriptTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input, err := t.decode(parameters)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}

	for _, param := range t.spec.Parameters {
		if param.Default == nil {
			continue
		}
		if _, ok := input[param.Name]; !ok {
			input[param.Name] = param.Default
		}
	}

	stdin, err := json.Marshal(input)
	if err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "failed to encode script input").Error()}
	}

	output, err := t.runner.RunWithInput(ctx, t.spec.Path, stdin)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}
	return tooltypes.BaseToolResult{Result: strings.TrimSpace(output)}
}

func (t *ScriptTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{
		attribute.String("tool", t.spec.Name),
		attribute.String("script", t.spec.Path),
	}, nil
}

func (t *ScriptTool) decode(parameters string) (map[string]any, error) {
	input := map[string]any{}
	if strings.TrimSpace(parameters) == "" {
		return input, nil
	}
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, errors.Wrap(err, "invalid tool parameters")
	}
	return input, nil
}

// matchesType checks a decoded JSON value against a manifest parameter type.
// JSON numbers decode as float64, so integer checks require a whole value.
func matchesType(t scripts.ParameterType, value any) bool {
	switch t {
	case scripts.TypeString:
		_, ok := value.(string)
		return ok
	case scripts.TypeInteger:
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case scripts.TypeNumber:
		_, ok := value.(float64)
		return ok
	case scripts.TypeBoolean:
		_, ok := value.(bool)
		return ok
	case scripts.TypeArray:
		_, ok := value.([]any)
		return ok
	default:
		return false
	}
}
