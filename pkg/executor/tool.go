package executor

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/tools"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// ExecuteSkillToolName is the delegation tool exposed to the outer agent.
const ExecuteSkillToolName = "execute_skill"

// ExecuteSkillInput is the parameter shape of the execute_skill tool.
type ExecuteSkillInput struct {
	Skill string `json:"skill" jsonschema:"required,description=Name of the skill to execute"`
	Task  string `json:"task" jsonschema:"required,description=Complete description of the task; the skill sees nothing else"`
}

// ExecuteSkillTool lets the outer agent delegate a task to a skill. The
// result carries the sub-agent's final output; a state change additionally
// surfaces as a STATE_DELTA event in the structured payload.
type ExecuteSkillTool struct {
	executor *Executor
}

// NewExecuteSkillTool wraps an executor as the outer agent's delegation
// tool.
func NewExecuteSkillTool(executor *Executor) *ExecuteSkillTool {
	return &ExecuteSkillTool{executor: executor}
}

func (t *ExecuteSkillTool) Name() string {
	return ExecuteSkillToolName
}

func (t *ExecuteSkillTool) Description() string {
	return "Delegate a task to a named skill. The skill runs in isolation and returns its final result; include everything the skill needs in the task."
}

func (t *ExecuteSkillTool) GenerateSchema() *jsonschema.Schema {
	return tools.GenerateSchema[ExecuteSkillInput]()
}

func (t *ExecuteSkillTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input ExecuteSkillInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	if input.Skill == "" {
		return errors.New("skill is required")
	}
	if input.Task == "" {
		return errors.New("task is required")
	}
	_, err := t.executor.Registry().Get(input.Skill)
	return err
}

func (t *ExecuteSkillTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	var input ExecuteSkillInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "invalid tool parameters").Error()}
	}

	result, err := t.executor.Execute(ctx, input.Skill, input.Task)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}

	output := result.Output
	if event := result.DeltaEvent(); event != nil {
		encoded, err := json.Marshal(event)
		if err != nil {
			return tooltypes.BaseToolResult{Error: errors.Wrap(err, "failed to encode state delta").Error()}
		}
		output += "\n\n" + string(encoded)
	}
	return tooltypes.BaseToolResult{Result: output}
}

func (t *ExecuteSkillTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input ExecuteSkillInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("tool", ExecuteSkillToolName),
		attribute.String("skill", input.Skill),
	}, nil
}
