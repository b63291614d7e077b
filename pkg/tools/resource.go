package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/skills"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// ReadResourceToolName reads reference files bundled with the skill.
const ReadResourceToolName = "read_resource"

// maxResourceSize caps how much of a resource is returned to the sub-agent.
const maxResourceSize = 256 * 1024

// ReadResourceInput is the parameter shape of the read_resource tool.
type ReadResourceInput struct {
	Path string `json:"path" jsonschema:"required,description=Resource path relative to the skill directory"`
}

// ReadResourceTool returns the text content of a resource the skill
// declares. Only declared paths are readable, binary content is refused, and
// symlinks cannot escape the skill directory.
type ReadResourceTool struct{}

func (t *ReadResourceTool) Name() string {
	return ReadResourceToolName
}

func (t *ReadResourceTool) Description() string {
	return "Read a text resource bundled with the current skill. The path must be one of the skill's declared resources."
}

func (t *ReadResourceTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ReadResourceInput]()
}

func (t *ReadResourceTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input ReadResourceInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	_, err := skills.ResolveResource(state.SkillDir(), state.Resources(), input.Path)
	return err
}

func (t *ReadResourceTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input ReadResourceInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "invalid tool parameters").Error()}
	}

	path, err := skills.ResolveResource(state.SkillDir(), state.Resources(), input.Path)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrapf(err, "failed to read resource %s", input.Path).Error()}
	}
	if len(content) > maxResourceSize {
		return tooltypes.BaseToolResult{
			Error: fmt.Sprintf("resource %s is too large (%d bytes, limit %d)", input.Path, len(content), maxResourceSize),
		}
	}
	if !utf8.Valid(content) {
		return tooltypes.BaseToolResult{
			Error: fmt.Sprintf("resource %s is not valid text", input.Path),
		}
	}

	return tooltypes.BaseToolResult{Result: string(content)}
}

func (t *ReadResourceTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input ReadResourceInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("tool", ReadResourceToolName),
		attribute.String("resource", input.Path),
	}, nil
}
