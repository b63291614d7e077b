package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/scripts"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// RunScriptToolName is the generic script runner exposed to sub-agents of
// skills that bundle scripts.
const RunScriptToolName = "run_script"

// RunScriptInput is the parameter shape of the run_script tool.
type RunScriptInput struct {
	Path string   `json:"path" jsonschema:"required,description=Script path relative to the skill's scripts directory"`
	Args []string `json:"args,omitempty" jsonschema:"description=Positional arguments passed to the script"`
}

// RunScriptTool runs an arbitrary script bundled with the skill, by relative
// path. Path validation happens before any subprocess is spawned.
type RunScriptTool struct {
	runner *scripts.Runner
}

// NewRunScriptTool creates the generic runner tool for one skill directory.
func NewRunScriptTool(runner *scripts.Runner) *RunScriptTool {
	return &RunScriptTool{runner: runner}
}

func (t *RunScriptTool) Name() string {
	return RunScriptToolName
}

func (t *RunScriptTool) Description() string {
	return "Run a script bundled with the current skill. The path is relative to the skill's scripts directory; output is the script's stdout."
}

func (t *RunScriptTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RunScriptInput]()
}

func (t *RunScriptTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input RunScriptInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	if input.Path == "" {
		return errors.New("path is required")
	}

	// Reject traversal here so a bad path never reaches a subprocess.
	scriptsRoot := filepath.Join(state.SkillDir(), scripts.ScriptsDirName)
	if _, err := scripts.ResolvePath(scriptsRoot, input.Path); err != nil {
		return err
	}
	return nil
}

func (t *RunScriptTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	var input RunScriptInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: errors.Wrap(err, "invalid tool parameters").Error()}
	}

	output, err := t.runner.Run(ctx, input.Path, input.Args)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}
	return tooltypes.BaseToolResult{Result: strings.TrimSpace(output)}
}

func (t *RunScriptTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input RunScriptInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("tool", RunScriptToolName),
		attribute.String("script", input.Path),
	}, nil
}
