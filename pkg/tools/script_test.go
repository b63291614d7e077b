package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillet-ai/skillet/pkg/scripts"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// testState is a minimal execution state for tool tests.
type testState struct {
	tools     []tooltypes.Tool
	skillDir  string
	resources []string
	value     map[string]any
	hasValue  bool
}

func (s *testState) Tools() []tooltypes.Tool { return s.tools }

func (s *testState) SkillDir() string { return s.skillDir }

func (s *testState) Resources() []string { return s.resources }

func (s *testState) StateValue() (map[string]any, bool) { return s.value, s.hasValue }

func (s *testState) SetStateValue(value map[string]any) { s.value = value }

func setupScriptSkill(t *testing.T) (string, *scripts.Runner) {
	t.Helper()
	skillDir := t.TempDir()
	scriptsDir := filepath.Join(skillDir, scripts.ScriptsDirName)
	require.NoError(t, os.MkdirAll(scriptsDir, 0o755))
	return skillDir, scripts.NewRunner(skillDir, 5*time.Second)
}

func TestScriptToolSchema(t *testing.T) {
	spec := scripts.Spec{
		Name:        "calc_add",
		Description: "Add two numbers",
		Parameters: []scripts.Parameter{
			{Name: "a", Type: scripts.TypeNumber},
			{Name: "b", Type: scripts.TypeNumber, Default: float64(0)},
		},
		Path: "add.sh",
	}
	tool := NewScriptTool(spec, nil)

	assert.Equal(t, "calc_add", tool.Name())
	assert.Equal(t, "Add two numbers", tool.Description())

	schema := tool.GenerateSchema()
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"a"}, schema.Required)
	assert.Equal(t, 2, schema.Properties.Len())
}

func TestScriptToolValidateInput(t *testing.T) {
	spec := scripts.Spec{
		Name:        "calc_add",
		Description: "Add two numbers",
		Parameters: []scripts.Parameter{
			{Name: "a", Type: scripts.TypeNumber},
			{Name: "flag", Type: scripts.TypeBoolean, Default: false},
		},
	}
	tool := NewScriptTool(spec, nil)
	state := &testState{}

	assert.NoError(t, tool.ValidateInput(state, `{"a": 2}`))
	assert.NoError(t, tool.ValidateInput(state, `{"a": 2, "flag": true}`))

	err := tool.ValidateInput(state, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameters: a")

	err = tool.ValidateInput(state, `{"a": 2, "stranger": 1}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parameter")

	err = tool.ValidateInput(state, `{"a": "two"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects type number")

	err = tool.ValidateInput(state, `not json`)
	require.Error(t, err)
}

func TestScriptToolExecute(t *testing.T) {
	skillDir, runner := setupScriptSkill(t)
	script := "#!/bin/bash\ncat\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(skillDir, scripts.ScriptsDirName, "echo.sh"), []byte(script), 0o755))

	spec := scripts.Spec{
		Name:        "echo_args",
		Description: "Echo the JSON input",
		Parameters: []scripts.Parameter{
			{Name: "who", Type: scripts.TypeString, Default: "world"},
		},
		Path: "echo.sh",
	}
	tool := NewScriptTool(spec, runner)

	// The default is merged into the stdin document.
	result := tool.Execute(context.Background(), &testState{}, `{}`)
	require.False(t, result.IsError(), result.GetError())
	assert.JSONEq(t, `{"who": "world"}`, result.GetResult())

	result = tool.Execute(context.Background(), &testState{}, `{"who": "go"}`)
	require.False(t, result.IsError())
	assert.JSONEq(t, `{"who": "go"}`, result.GetResult())
}

func TestScriptToolExecuteFailure(t *testing.T) {
	skillDir, runner := setupScriptSkill(t)
	script := "#!/bin/bash\necho 'bad input' >&2\nexit 2\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(skillDir, scripts.ScriptsDirName, "fail.sh"), []byte(script), 0o755))

	tool := NewScriptTool(scripts.Spec{
		Name:        "fail",
		Description: "Always fails",
		Path:        "fail.sh",
	}, runner)

	result := tool.Execute(context.Background(), &testState{}, `{}`)
	require.True(t, result.IsError())
	assert.Contains(t, result.GetError(), "bad input")
	assert.Contains(t, result.AssistantFacing(), "<error>")
}

func TestMatchesType(t *testing.T) {
	assert.True(t, matchesType(scripts.TypeString, "x"))
	assert.True(t, matchesType(scripts.TypeNumber, 1.5))
	assert.True(t, matchesType(scripts.TypeInteger, float64(3)))
	assert.False(t, matchesType(scripts.TypeInteger, 3.5))
	assert.True(t, matchesType(scripts.TypeBoolean, true))
	assert.True(t, matchesType(scripts.TypeArray, []any{1}))
	assert.False(t, matchesType(scripts.TypeString, 1.0))
}
