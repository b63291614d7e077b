package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillet-ai/skillet/pkg/scripts"
)

func TestRunScriptTool(t *testing.T) {
	skillDir, runner := setupScriptSkill(t)
	script := "#!/bin/bash\necho \"got: $1\"\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(skillDir, scripts.ScriptsDirName, "show.sh"), []byte(script), 0o755))

	tool := NewRunScriptTool(runner)
	state := &testState{skillDir: skillDir}

	params := `{"path": "show.sh", "args": ["hello"]}`
	require.NoError(t, tool.ValidateInput(state, params))

	result := tool.Execute(context.Background(), state, params)
	require.False(t, result.IsError(), result.GetError())
	assert.Equal(t, "got: hello", result.GetResult())
}

func TestRunScriptToolRejectsTraversalBeforeSpawn(t *testing.T) {
	skillDir, runner := setupScriptSkill(t)

	// The escaping target exists and would happily run if reached.
	secret := filepath.Join(skillDir, "secret.sh")
	require.NoError(t, os.WriteFile(secret, []byte("#!/bin/bash\necho leaked\n"), 0o755))

	tool := NewRunScriptTool(runner)
	state := &testState{skillDir: skillDir}

	err := tool.ValidateInput(state, `{"path": "../secret.sh"}`)
	require.Error(t, err)

	var traversal *scripts.PathTraversalError
	assert.True(t, errors.As(err, &traversal))
}

func TestRunScriptToolRequiresPath(t *testing.T) {
	_, runner := setupScriptSkill(t)
	tool := NewRunScriptTool(runner)

	err := tool.ValidateInput(&testState{}, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}
